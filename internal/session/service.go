package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"GYST-Loop/internal/engagement"
	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/internal/narrative"
	"GYST-Loop/internal/observability/metrics"
	"GYST-Loop/pkg/logger"
)

// Observation 是客户端上报的一次区块几何采样。
type Observation struct {
	Section  string             `json:"section"`
	Geometry narrative.Geometry `json:"geometry"`
}

// Service 在 Store 之上实现会话的创建、上报与查询。
type Service struct {
	store    Store
	recorder *engagement.Recorder
	newID    func() string
	logger   *slog.Logger
}

// ServiceOption 定义可选配置。
type ServiceOption func(*Service)

// WithRecorder 在激活区块变化时记录 section_view 事件。
func WithRecorder(r *engagement.Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithIDGenerator 替换会话 ID 生成器。
func WithIDGenerator(gen func() string) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService 构造会话服务。
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		newID:  uuid.NewString,
		logger: logger.Named("session"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create 新建会话，initial 为空时从 hero 开始。
func (s *Service) Create(ctx context.Context, initial string) (Session, error) {
	section := narrative.SectionHero
	if strings.TrimSpace(initial) != "" {
		parsed, err := parseSection(initial)
		if err != nil {
			return Session{}, err
		}
		section = parsed
	}
	return s.store.Create(ctx, s.newID(), section)
}

// Get 返回会话当前状态。
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	if err := validateID(id); err != nil {
		return Session{}, err
	}
	return s.store.Current(ctx, id)
}

// Report 将 section 写为会话的激活区块。
func (s *Service) Report(ctx context.Context, id, section string) (Session, error) {
	if err := validateID(id); err != nil {
		return Session{}, err
	}
	next, err := parseSection(section)
	if err != nil {
		return Session{}, err
	}
	if err := s.apply(ctx, id, next); err != nil {
		return Session{}, err
	}
	return s.store.Current(ctx, id)
}

// Observe 与 narrative.Reporter 相同，只在区块由不可见变为可见时上报。
// 同一次请求中多个区块同时进入视口时按采样顺序上报，最后一个获胜；
// 重复提交相同的几何采样不会改变激活区块。未知区块与不参与上报的区块被忽略。
func (s *Service) Observe(ctx context.Context, id string, observations []Observation) (Session, error) {
	if err := validateID(id); err != nil {
		return Session{}, err
	}
	updates := make([]VisibilityUpdate, 0, len(observations))
	for _, obs := range observations {
		section, ok := narrative.ParseSectionID(obs.Section)
		if !ok {
			continue
		}
		spec, ok := narrative.ObserverFor(section)
		if !ok {
			continue
		}
		updates = append(updates, VisibilityUpdate{Section: section, InView: narrative.InView(obs.Geometry, spec)})
	}
	if len(updates) > 0 {
		rising, err := s.store.MarkVisibility(ctx, id, updates)
		if err != nil {
			return Session{}, err
		}
		for _, section := range rising {
			if err := s.apply(ctx, id, section); err != nil {
				return Session{}, err
			}
		}
	}
	return s.store.Current(ctx, id)
}

func (s *Service) apply(ctx context.Context, id string, next narrative.SectionID) error {
	prev, err := s.store.Report(ctx, id, next)
	if err != nil {
		return err
	}
	if prev == next {
		return nil
	}
	metrics.ObserveSectionChange(string(prev), string(next))
	logger.Audit().Info("session_report",
		slog.String("session_id", id),
		slog.String("from", string(prev)),
		slog.String("to", string(next)),
	)
	if s.recorder != nil {
		if _, err := s.recorder.Record(ctx, engagement.Event{
			Kind:      engagement.KindSectionView,
			SessionID: id,
			Section:   string(next),
		}); err != nil {
			s.logger.Warn("记录区块浏览失败", slog.String("session_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return xerrors.New(xerrors.CodeNotFound, "session not found")
	}
	return nil
}

func parseSection(raw string) (narrative.SectionID, error) {
	section, ok := narrative.ParseSectionID(raw)
	if !ok {
		return "", xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("unknown section %q", raw))
	}
	return section, nil
}
