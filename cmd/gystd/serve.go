package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"GYST-Loop/internal/api"
	"GYST-Loop/internal/auth"
	"GYST-Loop/internal/config"
	"GYST-Loop/internal/content"
	"GYST-Loop/internal/engagement"
	"GYST-Loop/internal/observability/alerting"
	"GYST-Loop/internal/observability/metrics"
	"GYST-Loop/internal/retell"
	"GYST-Loop/internal/session"
	"GYST-Loop/internal/site"
	"GYST-Loop/pkg/logger"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the landing page, its API and the engagement processor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Logging); err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg)
		},
	}
}

// runtime 持有 serve 期间需要关闭的组件。
type runtime struct {
	server    *api.Server
	processor *engagement.Processor
	closers   []func() error
}

func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			logger.L().Warn("关闭组件失败", slog.Any("error", err))
		}
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.server.Start(gctx) })
	g.Go(func() error { return rt.processor.Start(gctx) })
	if cfg.Server.MetricsAddress != "" {
		g.Go(func() error { return metrics.StartServer(gctx, cfg.Server.MetricsAddress) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.L().Info("gystd 已停止")
		return nil
	}
	return err
}

func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{}
	fail := func(err error) (*runtime, error) {
		rt.close()
		return nil, err
	}

	tl, err := timelineFor(cfg)
	if err != nil {
		return nil, err
	}
	catalog, err := content.Load(cfg.Content.CatalogPath)
	if err != nil {
		return nil, err
	}
	renderer, err := site.NewRenderer(catalog, site.Options{
		Title:          cfg.Content.Title,
		PinnedDistance: cfg.Narrative.PinnedDistance,
		Completion:     tl.Completion,
	})
	if err != nil {
		return nil, err
	}

	queue, err := newQueue(cfg.Engagement.Queue)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, queue.Close)

	store, err := newEventStore(ctx, cfg.Engagement.Store)
	if err != nil {
		return fail(err)
	}
	rt.closers = append(rt.closers, store.Close)

	sessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	rt.closers = append(rt.closers, sessions.Close)

	guard, err := auth.NewService(cfg.Auth)
	if err != nil {
		return fail(err)
	}

	alerts := newAlerts(cfg.Alerting)
	recorder := engagement.NewRecorder(queue, engagement.WithRecorderLogger(logger.Named("recorder")))
	rt.processor = engagement.NewProcessor(store, queue,
		engagement.WithProcessorLogger(logger.Named("processor")),
		engagement.WithWorkerCount(cfg.Engagement.Workers),
		engagement.WithSaveRetry(cfg.Engagement.SaveAttempts, time.Duration(cfg.Engagement.RetryBackoffMS)*time.Millisecond),
		engagement.WithAlertDispatcher(alerts),
	)

	deps := api.Dependencies{
		Renderer:       renderer,
		CredentialName: cfg.Retell.APIKeyEnv,
		Sessions:       session.NewService(sessions, session.WithRecorder(recorder)),
		Events:         store,
		Recorder:       recorder,
		Alerts:         alerts,
		Auth:           guard,
		Timeline:       tl,
		PinnedDistance: cfg.Narrative.PinnedDistance,
	}
	if key := cfg.RetellAPIKey(); key != "" {
		client, err := retell.NewClient(retell.Config{
			APIKey:  key,
			BaseURL: cfg.Retell.BaseURL,
			Timeout: cfg.RetellTimeout(),
		})
		if err != nil {
			return fail(err)
		}
		deps.Calls = client
	} else {
		logger.L().Warn("未配置语音服务密钥，通话接口将返回配置错误", slog.String("env", cfg.Retell.APIKeyEnv))
	}
	rt.server = api.NewServer(cfg.Server.Address, deps)
	return rt, nil
}

func newQueue(cfg config.QueueConfig) (engagement.Queue, error) {
	switch cfg.Driver {
	case "", "memory":
		return engagement.NewMemoryQueue(cfg.BufferSize), nil
	case "redis":
		return engagement.NewRedisQueue(engagement.RedisQueueConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Queue:     cfg.Redis.Queue,
			BlockWait: time.Duration(cfg.Redis.BlockWait) * time.Second,
		})
	case "rabbitmq":
		return engagement.NewRabbitMQQueue(engagement.RabbitMQConfig{
			URL:        cfg.RabbitMQ.URL,
			Queue:      cfg.RabbitMQ.Queue,
			Prefetch:   cfg.RabbitMQ.Prefetch,
			Durable:    cfg.RabbitMQ.Durable,
			AutoDelete: cfg.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.Driver)
	}
}

func newEventStore(ctx context.Context, cfg config.EventStoreConfig) (engagement.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return engagement.NewMemoryStore(cfg.Capacity), nil
	case "mysql":
		return engagement.NewMySQLStore(ctx, engagement.MySQLConfig{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("未知的事件存储驱动: %s", cfg.Driver)
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Driver {
	case "", "memory":
		return session.NewMemoryStore(cfg.SessionTTL()), nil
	case "redis":
		return session.NewRedisStore(ctx, session.RedisConfig{
			Address:  cfg.Session.Redis.Address,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
			TTL:      cfg.SessionTTL(),
		})
	default:
		return nil, fmt.Errorf("未知的会话驱动: %s", cfg.Session.Driver)
	}
}

func newAlerts(cfg config.AlertingConfig) *alerting.FanoutDispatcher {
	var notifiers []alerting.Notifier
	if cfg.Log {
		notifiers = append(notifiers, alerting.LogNotifier{})
	}
	if cfg.Webhook.URL != "" {
		notifiers = append(notifiers, &alerting.WebhookNotifier{URL: cfg.Webhook.URL, Headers: cfg.Webhook.Headers})
	}
	return alerting.NewFanout(notifiers...)
}
