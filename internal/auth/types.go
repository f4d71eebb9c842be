package auth

import (
	"errors"
	"strings"
)

// Common errors returned by the authentication subsystem.
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Mode 表示认证模式。
type Mode string

const (
	// ModeDisabled 不做任何校验。
	ModeDisabled Mode = "disabled"
	// ModeToken 要求请求携带预先配置的 Bearer 令牌。
	ModeToken Mode = "token"
)

// Config 描述运维接口的认证配置。
type Config struct {
	Mode   Mode          `json:"mode"`
	Tokens []TokenConfig `json:"tokens"`
}

// TokenConfig 是一个具名的静态令牌。
type TokenConfig struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Operator 是通过认证的调用方，经由上下文传给处理函数。
type Operator struct {
	Name string
}

func normaliseMode(m Mode) Mode {
	mode := Mode(strings.ToLower(strings.TrimSpace(string(m))))
	if mode == "" {
		return ModeDisabled
	}
	return mode
}
