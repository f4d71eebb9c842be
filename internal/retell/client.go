package retell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "GYST-Loop/internal/errors"
)

const (
	defaultBaseURL = "https://api.retellai.com"
	defaultTimeout = 15 * time.Second

	createWebCallPath = "/v2/create-web-call"

	// FallbackMessage 在上游错误响应没有 message 字段时使用。
	FallbackMessage = "Failed to create web call"
)

// Config 描述调用语音通话服务所需的信息。
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// WebCall 是返回给浏览器的最小字段集合。SampleRate 保留上游的数字原文，
// 整数与浮点写法都原样透传。
type WebCall struct {
	AccessToken string      `json:"access_token"`
	SampleRate  json.Number `json:"sample_rate"`
	// CallID 仅用于服务端记录，不写回客户端。
	CallID string `json:"-"`
}

// UpstreamError 表示上游返回了非 2xx 状态。
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("retell 返回错误状态 %d: %s", e.StatusCode, e.Message)
}

// Client 通过 HTTP 创建网页语音通话。
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient 根据配置创建客户端，未提供密钥时返回 CodeMisconfigured。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, xerrors.New(xerrors.CodeMisconfigured, "")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// CreateWebCall 为指定 agent 创建一次网页通话。每次调用只请求上游一次，不重试。
func (c *Client) CreateWebCall(ctx context.Context, agentID string) (*WebCall, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "agent_id is required")
	}

	payload, err := json.Marshal(map[string]string{"agent_id": agentID})
	if err != nil {
		return nil, fmt.Errorf("序列化 retell 请求失败: %w", err)
	}

	endpoint := c.baseURL + createWebCallPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建 retell 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "")
		}
		return nil, fmt.Errorf("请求 retell 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: upstreamMessage(body)}
	}

	var decoded struct {
		AccessToken string      `json:"access_token"`
		SampleRate  json.Number `json:"sample_rate"`
		CallID      string      `json:"call_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("解析 retell 响应失败: %w", err)
	}
	return &WebCall{AccessToken: decoded.AccessToken, SampleRate: decoded.SampleRate, CallID: decoded.CallID}, nil
}

func upstreamMessage(body []byte) string {
	var decoded struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return FallbackMessage
	}
	if msg := strings.TrimSpace(decoded.Message); msg != "" {
		return msg
	}
	return FallbackMessage
}
