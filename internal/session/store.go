package session

import (
	"context"
	"time"

	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/internal/narrative"
)

// ErrNotFound 表示会话不存在或已过期。
var ErrNotFound = xerrors.New(xerrors.CodeNotFound, "session not found")

// DefaultTTL 是会话的默认存活时间，每次上报都会续期。
const DefaultTTL = 30 * time.Minute

// Session 是一个访客的激活区块状态。
type Session struct {
	ID        string              `json:"id"`
	Section   narrative.SectionID `json:"section"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// VisibilityUpdate 是某个区块在一次采样中的可见状态。
type VisibilityUpdate struct {
	Section narrative.SectionID
	InView  bool
}

// Store 保存每个会话的当前激活区块，写入遵循“最后写入者获胜”。
type Store interface {
	// Create 以初始区块创建会话。
	Create(ctx context.Context, id string, initial narrative.SectionID) (Session, error)
	// Report 覆盖当前区块并返回覆盖前的值。
	Report(ctx context.Context, id string, section narrative.SectionID) (prev narrative.SectionID, err error)
	// MarkVisibility 合并本次采样的可见状态，返回由不可见变为可见的区块，
	// 顺序与 updates 一致。未出现在 updates 中的区块保持原状态。
	MarkVisibility(ctx context.Context, id string, updates []VisibilityUpdate) (rising []narrative.SectionID, err error)
	// Current 返回当前区块。
	Current(ctx context.Context, id string) (Session, error)
	Close() error
}
