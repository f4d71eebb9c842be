package engagement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"GYST-Loop/internal/observability/metrics"
	"GYST-Loop/pkg/logger"
)

// Recorder 为事件补全 ID 与时间戳后投递到队列。
type Recorder struct {
	producer Producer
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// RecorderOption 定义可选配置。
type RecorderOption func(*Recorder)

// WithRecorderClock 替换时间来源。
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRecorderLogger 指定日志输出。
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = l
	}
}

// NewRecorder 构造 Recorder。
func NewRecorder(producer Producer, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		producer: producer,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logger.Named("engagement"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Record 投递一条事件并返回补全后的记录。
func (r *Recorder) Record(ctx context.Context, e Event) (Event, error) {
	if e.ID == "" {
		e.ID = r.newID()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now().UTC()
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	payload, err := Encode(e)
	if err != nil {
		return Event{}, err
	}
	if err := r.producer.Publish(ctx, payload); err != nil {
		r.logger.Warn("投递互动事件失败", slog.String("kind", string(e.Kind)), slog.Any("error", err))
		return Event{}, err
	}
	metrics.IncEvent(string(e.Kind))
	return e, nil
}
