package engagement

import (
	"context"
	"log/slog"
	"time"

	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/internal/observability/alerting"
	"GYST-Loop/pkg/logger"
)

const (
	defaultSaveAttempts = 3
	defaultRetryBackoff = 200 * time.Millisecond
)

// Processor 从队列消费事件并写入存储。写入失败时在进程内有限次退避重试，
// 用尽后告警一次并丢弃该事件，不交回队列重投。
type Processor struct {
	store        Store
	consumer     Consumer
	workerCount  int
	saveAttempts int
	retryBackoff time.Duration
	logger       *slog.Logger
	alerter      alerting.Dispatcher
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// WithSaveRetry 设置单个事件的写入次数与首次退避时长，退避按 2 倍递增。
func WithSaveRetry(attempts int, backoff time.Duration) ProcessorOption {
	return func(p *Processor) {
		if attempts > 0 {
			p.saveAttempts = attempts
		}
		if backoff >= 0 {
			p.retryBackoff = backoff
		}
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerter = dispatcher
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(store Store, consumer Consumer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:        store,
		consumer:     consumer,
		workerCount:  1,
		saveAttempts: defaultSaveAttempts,
		retryBackoff: defaultRetryBackoff,
		logger:       logger.Named("engagement"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Start 阻塞消费，直到 ctx 取消或队列关闭。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil || p.store == nil {
		return xerrors.New(xerrors.CodeMisconfigured, "engagement processor 未初始化")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, payload []byte) error {
	e, err := Decode(payload)
	if err != nil {
		// 无法解析的负载重投也无意义，直接丢弃。
		p.logger.Warn("丢弃无法解析的事件", slog.Any("error", err), slog.Int("bytes", len(payload)))
		return nil
	}
	err = p.save(ctx, e)
	if err == nil {
		p.logger.Debug("事件已保存", slog.String("event_id", e.ID), slog.String("kind", string(e.Kind)))
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		// 停止消费时交回队列，由下一个消费者处理。
		return ctxErr
	}
	p.logger.Error("保存事件失败，已丢弃",
		slog.Any("error", err),
		slog.String("event_id", e.ID),
		slog.Int("attempts", p.saveAttempts),
	)
	p.emitAlert(ctx, e, err)
	return nil
}

func (p *Processor) save(ctx context.Context, e Event) error {
	backoff := p.retryBackoff
	var err error
	for attempt := 1; attempt <= p.saveAttempts; attempt++ {
		if err = p.store.Save(ctx, e); err == nil {
			return nil
		}
		if attempt == p.saveAttempts {
			break
		}
		p.logger.Warn("保存事件失败，准备重试", slog.Any("error", err), slog.Int("attempt", attempt))
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		backoff *= 2
	}
	return err
}

func (p *Processor) emitAlert(ctx context.Context, e Event, err error) {
	if p.alerter == nil || !xerrors.ShouldAlert(err) {
		return
	}
	event := alerting.FromError("engagement", err)
	if event.Metadata == nil {
		event.Metadata = map[string]string{}
	}
	event.Metadata["event_id"] = e.ID
	event.Metadata["kind"] = string(e.Kind)
	if alertErr := p.alerter.Notify(ctx, event); alertErr != nil {
		p.logger.Warn("发送告警失败", slog.Any("error", alertErr))
	}
}
