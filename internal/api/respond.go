package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	xerrors "GYST-Loop/internal/errors"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure 按错误码写回状态码；5xx 只返回错误码的通用描述。
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := xerrors.StatusOf(err)
	message := xerrors.PublicMessage(err)
	if status >= http.StatusInternalServerError {
		message = xerrors.AttributesOf(xerrors.CodeOf(err)).Message
		s.logger.Error("请求处理失败", slog.Any("error", err))
	}
	writeError(w, status, message)
}
