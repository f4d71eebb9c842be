package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"GYST-Loop/internal/auth"
	"GYST-Loop/internal/engagement"
	"GYST-Loop/internal/narrative"
	"GYST-Loop/internal/observability/alerting"
	"GYST-Loop/internal/observability/metrics"
	"GYST-Loop/internal/retell"
	"GYST-Loop/internal/session"
	"GYST-Loop/internal/site"
	"GYST-Loop/pkg/logger"
)

// CallCreator 创建网页语音通话，由 retell.Client 实现。
type CallCreator interface {
	CreateWebCall(ctx context.Context, agentID string) (*retell.WebCall, error)
}

// Dependencies 汇总 HTTP 层依赖的组件。未配置的组件保持为 nil，对应接口会返回错误。
type Dependencies struct {
	Renderer *site.Renderer
	// Calls 为 nil 表示服务端未配置语音服务密钥。
	Calls CallCreator
	// CredentialName 仅用于服务端日志，指明缺失的密钥来源。
	CredentialName string
	Sessions       *session.Service
	Events         engagement.Store
	Recorder       *engagement.Recorder
	Alerts         alerting.Dispatcher
	// Auth 保护运维接口，为 nil 时不校验。
	Auth           *auth.Service
	Timeline       narrative.Timeline
	PinnedDistance float64
}

// Server 负责暴露页面与 REST 接口。
type Server struct {
	addr   string
	deps   Dependencies
	logger *slog.Logger
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, deps Dependencies) *Server {
	if deps.PinnedDistance <= 0 {
		deps.PinnedDistance = narrative.DefaultPinnedDistance
	}
	if len(deps.Timeline.Transitions) == 0 {
		deps.Timeline = narrative.DefaultTimeline()
	}
	if deps.CredentialName == "" {
		deps.CredentialName = "RETELL_API_KEY"
	}
	return &Server{addr: addr, deps: deps, logger: logger.Named("api")}
}

// Handler 返回完整的路由，每个路由都经过指标中间件。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, name string, h http.HandlerFunc) {
		mux.Handle(pattern, metrics.Middleware(name, h))
	}

	route("/{$}", "page", s.handlePage)
	route("/healthz", "healthz", s.handleHealth)
	route("/api/create-retell-call", "create_retell_call", s.handleCreateRetellCall)
	route("/api/v1/narrative/frame", "narrative_frame", s.handleFrame)
	route("/api/v1/narrative/visual", "narrative_visual", s.handleVisual)
	route("/api/v1/sessions", "sessions", s.handleSessions)
	route("/api/v1/sessions/{id}", "session_detail", s.handleSessionDetail)
	route("/api/v1/sessions/{id}/report", "session_report", s.handleSessionReport)
	route("/api/v1/sessions/{id}/observations", "session_observations", s.handleSessionObservations)
	guard := s.deps.Auth.Middleware(auth.MiddlewareConfig{AuditEvent: "engagement_list"})
	mux.Handle("/api/v1/engagement", metrics.Middleware("engagement", guard(http.HandlerFunc(s.handleEngagement))))
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP 服务已启动", slog.String("addr", s.addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.deps.Renderer == nil {
		writeError(w, http.StatusServiceUnavailable, "page renderer not configured")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.Renderer.Render(w); err != nil {
		s.logger.Error("渲染页面失败", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeError(w, http.StatusServiceUnavailable, "server shutting down")
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
