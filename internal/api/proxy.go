package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"GYST-Loop/internal/engagement"
	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/internal/observability/alerting"
	"GYST-Loop/internal/retell"
	"GYST-Loop/pkg/logger"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgAgentRequired    = "agent_id is required"
	msgMisconfigured    = "Server configuration error"
	msgInternal         = "Internal server error"
	msgInvalidJSON      = "Invalid JSON body"

	sideEffectTimeout = 2 * time.Second
)

// handleCreateRetellCall 代理浏览器的建通话请求，每个请求只调用上游一次。
func (s *Server) handleCreateRetellCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	agentID, err := decodeAgentID(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if agentID == "" {
		writeError(w, http.StatusBadRequest, msgAgentRequired)
		return
	}

	ctx := r.Context()
	if s.deps.Calls == nil {
		s.logger.Error(s.deps.CredentialName + " environment variable is not set")
		cause := xerrors.New(xerrors.CodeMisconfigured, "", xerrors.WithMetadata("credential", s.deps.CredentialName))
		s.finishCall(ctx, agentID, http.StatusInternalServerError, cause)
		writeError(w, http.StatusInternalServerError, msgMisconfigured)
		return
	}

	call, err := s.deps.Calls.CreateWebCall(ctx, agentID)
	if err != nil {
		var upstream *retell.UpstreamError
		switch {
		case errors.As(err, &upstream):
			s.logger.Warn("retell 返回错误", slog.Int("status", upstream.StatusCode), slog.String("message", upstream.Message))
			cause := xerrors.Wrap(xerrors.CodeUpstreamFailure, err, upstream.Message, xerrors.WithStatus(upstream.StatusCode))
			s.finishCall(ctx, agentID, upstream.StatusCode, cause)
			writeError(w, upstream.StatusCode, upstream.Message)
		case xerrors.CodeOf(err) == xerrors.CodeMisconfigured:
			s.logger.Error("retell 客户端配置错误", slog.Any("error", err))
			s.finishCall(ctx, agentID, http.StatusInternalServerError, err)
			writeError(w, http.StatusInternalServerError, msgMisconfigured)
		default:
			s.logger.Error("创建语音通话失败", slog.Any("error", err))
			s.finishCall(ctx, agentID, http.StatusInternalServerError, err)
			writeError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	s.finishCall(ctx, agentID, http.StatusOK, nil)
	logger.Audit().Info("retell_call",
		slog.String("agent_id", agentID),
		slog.String("call_id", call.CallID),
		slog.Int("status", http.StatusOK),
	)
	writeJSON(w, http.StatusOK, call)
}

// decodeAgentID 读取请求体中的 agent_id。空请求体视为 {}；非字符串或空白值返回空串。
func decodeAgentID(body io.Reader) (string, error) {
	if body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", err
	}
	value, _ := payload["agent_id"].(string)
	return strings.TrimSpace(value), nil
}

// finishCall 记录互动事件；失败结果写入审计日志，5xx 同时触发告警。
func (s *Server) finishCall(ctx context.Context, agentID string, status int, cause error) {
	event := engagement.Event{Kind: engagement.KindCallCreated, AgentID: agentID, Status: status}
	if cause != nil {
		event.Kind = engagement.KindCallFailed
		event.Detail = string(xerrors.CodeOf(cause))
		logger.Audit().Warn("retell_call",
			slog.String("agent_id", agentID),
			slog.Int("status", status),
			slog.String("code", string(xerrors.CodeOf(cause))),
		)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if s.deps.Recorder != nil {
		if _, err := s.deps.Recorder.Record(ctx, event); err != nil {
			s.logger.Warn("记录通话事件失败", slog.Any("error", err))
		}
	}
	if cause == nil || status < http.StatusInternalServerError || s.deps.Alerts == nil {
		return
	}
	alert := alerting.FromError("retell", cause)
	if alert.Metadata == nil {
		alert.Metadata = make(map[string]string)
	}
	alert.Metadata["agent_id"] = agentID
	alert.Metadata["status"] = strconv.Itoa(status)
	if err := s.deps.Alerts.Notify(ctx, alert); err != nil {
		s.logger.Warn("发送告警失败", slog.Any("error", err))
	}
}
