package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"GYST-Loop/pkg/logger"
)

type credential struct {
	name   string
	digest [sha256.Size]byte
}

// Service 负责运维接口的身份验证。
type Service struct {
	mode        Mode
	credentials []credential
	audit       *slog.Logger
}

// NewService 构造身份认证服务实例。
func NewService(cfg Config) (*Service, error) {
	svc := &Service{mode: normaliseMode(cfg.Mode), audit: logger.Audit()}

	switch svc.mode {
	case ModeDisabled:
		return svc, nil
	case ModeToken:
		for i, t := range cfg.Tokens {
			token := strings.TrimSpace(t.Token)
			if token == "" {
				return nil, fmt.Errorf("token #%d is empty", i)
			}
			name := strings.TrimSpace(t.Name)
			if name == "" {
				name = fmt.Sprintf("token-%d", i)
			}
			svc.credentials = append(svc.credentials, credential{name: name, digest: sha256.Sum256([]byte(token))})
		}
		if len(svc.credentials) == 0 {
			return nil, errors.New("token mode requires at least one token")
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

// Mode 返回当前身份认证服务的工作模式。
func (s *Service) Mode() Mode {
	if s == nil {
		return ModeDisabled
	}
	return s.mode
}

// AuthenticateRequest 校验 Authorization 头中的 Bearer 令牌。
// 比较的是令牌摘要，并且会遍历全部凭据，耗时与命中位置无关。
func (s *Service) AuthenticateRequest(_ context.Context, header string) (*Operator, error) {
	if s == nil || s.mode == ModeDisabled {
		return &Operator{Name: "anonymous"}, nil
	}
	token, ok := bearerToken(header)
	if !ok {
		return nil, ErrMissingToken
	}
	digest := sha256.Sum256([]byte(token))
	matched := ""
	for _, c := range s.credentials {
		if subtle.ConstantTimeCompare(digest[:], c.digest[:]) == 1 {
			matched = c.name
		}
	}
	if matched == "" {
		return nil, ErrInvalidToken
	}
	return &Operator{Name: matched}, nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}
