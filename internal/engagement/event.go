package engagement

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	xerrors "GYST-Loop/internal/errors"
)

// Kind 表示互动事件类型。
type Kind string

const (
	KindSectionView Kind = "section_view"
	KindCallCreated Kind = "call_created"
	KindCallFailed  Kind = "call_failed"
)

// Valid 判断事件类型是否已知。
func (k Kind) Valid() bool {
	switch k {
	case KindSectionView, KindCallCreated, KindCallFailed:
		return true
	default:
		return false
	}
}

// ParseKinds 解析逗号分隔的事件类型列表。
func ParseKinds(raw string) ([]Kind, error) {
	var kinds []Kind
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k := Kind(part)
		if !k.Valid() {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("未知的事件类型 %q", part))
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Event 是一次访客互动记录。
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	SessionID  string    `json:"session_id,omitempty"`
	Section    string    `json:"section,omitempty"`
	AgentID    string    `json:"agent_id,omitempty"`
	Status     int       `json:"status,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Validate 检查事件是否可以持久化。
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "事件 ID 不能为空")
	}
	if !e.Kind.Valid() {
		return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("未知的事件类型 %q", e.Kind))
	}
	return nil
}

// Encode 将事件序列化为队列负载。
func Encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return payload, nil
}

// Decode 从队列负载还原事件。
func Decode(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析事件失败")
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
