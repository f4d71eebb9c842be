package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"GYST-Loop/internal/auth"
	"GYST-Loop/pkg/logger"
)

// EnvConfigPath 是指定配置文件路径的环境变量。
const EnvConfigPath = "GYST_CONFIG"

// Config 描述了 gystd 在启动阶段需要加载的核心配置。
type Config struct {
	Server     ServerConfig     `json:"server"`
	Logging    logger.Config    `json:"logging"`
	Retell     RetellConfig     `json:"retell"`
	Narrative  NarrativeConfig  `json:"narrative"`
	Content    ContentConfig    `json:"content"`
	Session    SessionConfig    `json:"session"`
	Engagement EngagementConfig `json:"engagement"`
	Alerting   AlertingConfig   `json:"alerting"`
	Auth       auth.Config      `json:"auth"`
}

// ServerConfig 控制 API 与指标服务的监听地址。MetricsAddress 为空时不单独启动指标服务。
type ServerConfig struct {
	Address        string `json:"address"`
	MetricsAddress string `json:"metrics_address"`
}

// RetellConfig 描述语音通话服务。密钥优先取 APIKey，其次读取 APIKeyEnv 指定的环境变量。
type RetellConfig struct {
	APIKey         string `json:"api_key"`
	APIKeyEnv      string `json:"api_key_env"`
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// NarrativeConfig 调整置顶区块与可视化的参数。
type NarrativeConfig struct {
	PinnedDistance      float64 `json:"pinned_distance"`
	CompletionThreshold float64 `json:"completion_threshold"`
	ViewportHeight      float64 `json:"viewport_height"`
	TimelinePath        string  `json:"timeline_path"`
}

// ContentConfig 指定页面标题与可选的内容目录覆盖文件。
type ContentConfig struct {
	Title       string `json:"title"`
	CatalogPath string `json:"catalog_path"`
}

// RedisConfig 是 Redis 连接参数。
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// SessionConfig 选择会话存储驱动。
type SessionConfig struct {
	Driver     string      `json:"driver"`
	TTLSeconds int         `json:"ttl_seconds"`
	Redis      RedisConfig `json:"redis"`
}

// EngagementConfig 描述互动事件的队列与持久化。
type EngagementConfig struct {
	Queue   QueueConfig      `json:"queue"`
	Store   EventStoreConfig `json:"store"`
	Workers int              `json:"workers"`
	// SaveAttempts 是单个事件的写入次数上限，RetryBackoffMS 为首次重试前的等待。
	SaveAttempts   int `json:"save_attempts"`
	RetryBackoffMS int `json:"retry_backoff_ms"`
}

// QueueConfig 选择事件队列驱动。
type QueueConfig struct {
	Driver     string              `json:"driver"`
	BufferSize int                 `json:"buffer_size"`
	Redis      RedisQueueConfig    `json:"redis"`
	RabbitMQ   RabbitMQQueueConfig `json:"rabbitmq"`
}

// RedisQueueConfig 是基于 Redis list 的队列参数。
type RedisQueueConfig struct {
	RedisConfig
	Queue     string `json:"queue"`
	BlockWait int    `json:"block_wait_seconds"`
}

// RabbitMQQueueConfig 是 RabbitMQ 队列参数。
type RabbitMQQueueConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// EventStoreConfig 选择事件存储驱动。
type EventStoreConfig struct {
	Driver                 string `json:"driver"`
	DSN                    string `json:"dsn"`
	Capacity               int    `json:"capacity"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `json:"conn_max_idle_time_seconds"`
}

// AlertingConfig 控制告警渠道。
type AlertingConfig struct {
	Log     bool          `json:"log"`
	Webhook WebhookConfig `json:"webhook"`
}

// WebhookConfig 是 Webhook 告警参数，URL 为空时不启用。
type WebhookConfig struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回全部使用默认值的配置，用于未提供配置文件的场景。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	return cfg
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Retell.APIKeyEnv == "" {
		c.Retell.APIKeyEnv = "RETELL_API_KEY"
	}
	if c.Retell.TimeoutSeconds <= 0 {
		c.Retell.TimeoutSeconds = 15
	}

	if c.Narrative.PinnedDistance == 0 {
		c.Narrative.PinnedDistance = 3000
	}
	if c.Narrative.CompletionThreshold == 0 {
		c.Narrative.CompletionThreshold = 0.85
	}
	if c.Narrative.ViewportHeight == 0 {
		c.Narrative.ViewportHeight = 900
	}
	c.Narrative.TimelinePath = resolve(baseDir, c.Narrative.TimelinePath)

	if c.Content.Title == "" {
		c.Content.Title = "GYST Loop"
	}
	c.Content.CatalogPath = resolve(baseDir, c.Content.CatalogPath)

	if c.Session.Driver == "" {
		c.Session.Driver = "memory"
	}
	if c.Session.TTLSeconds <= 0 {
		c.Session.TTLSeconds = 1800
	}

	if c.Engagement.Queue.Driver == "" {
		c.Engagement.Queue.Driver = "memory"
	}
	if c.Engagement.Queue.BufferSize <= 0 {
		c.Engagement.Queue.BufferSize = 1024
	}
	if c.Engagement.Store.Driver == "" {
		c.Engagement.Store.Driver = "memory"
	}
	if c.Engagement.Workers <= 0 {
		c.Engagement.Workers = 2
	}
	if c.Engagement.SaveAttempts <= 0 {
		c.Engagement.SaveAttempts = 3
	}
	if c.Engagement.RetryBackoffMS <= 0 {
		c.Engagement.RetryBackoffMS = 200
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = auth.ModeDisabled
	}
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Validate 检查驱动名称与驱动所需的连接信息。
func (c *Config) Validate() error {
	var errs []error
	if c.Narrative.PinnedDistance <= 0 {
		errs = append(errs, errors.New("narrative.pinned_distance 必须大于 0"))
	}
	if c.Narrative.CompletionThreshold <= 0 || c.Narrative.CompletionThreshold >= 1 {
		errs = append(errs, errors.New("narrative.completion_threshold 必须位于 (0, 1)"))
	}
	if c.Narrative.ViewportHeight <= 0 {
		errs = append(errs, errors.New("narrative.viewport_height 必须大于 0"))
	}

	switch c.Session.Driver {
	case "memory":
	case "redis":
		if c.Session.Redis.Address == "" {
			errs = append(errs, errors.New("session.redis.address 不能为空"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的会话驱动: %s", c.Session.Driver))
	}

	switch c.Engagement.Queue.Driver {
	case "memory":
	case "redis":
		if c.Engagement.Queue.Redis.Address == "" {
			errs = append(errs, errors.New("engagement.queue.redis.address 不能为空"))
		}
	case "rabbitmq":
		if c.Engagement.Queue.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("engagement.queue.rabbitmq.url 不能为空"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的队列驱动: %s", c.Engagement.Queue.Driver))
	}

	switch c.Engagement.Store.Driver {
	case "memory":
	case "mysql":
		if c.Engagement.Store.DSN == "" {
			errs = append(errs, errors.New("engagement.store.dsn 不能为空"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的事件存储驱动: %s", c.Engagement.Store.Driver))
	}
	switch c.Auth.Mode {
	case auth.ModeDisabled:
	case auth.ModeToken:
		if len(c.Auth.Tokens) == 0 {
			errs = append(errs, errors.New("auth.tokens 不能为空"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的认证模式: %s", c.Auth.Mode))
	}
	return errors.Join(errs...)
}

// RetellAPIKey 返回语音服务密钥，未配置时返回空串。
func (c *Config) RetellAPIKey() string {
	if key := strings.TrimSpace(c.Retell.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv(c.Retell.APIKeyEnv))
}

// RetellTimeout 返回调用语音服务的超时时间。
func (c *Config) RetellTimeout() time.Duration {
	return time.Duration(c.Retell.TimeoutSeconds) * time.Second
}

// SessionTTL 返回会话存活时间。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSeconds) * time.Second
}
