package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/internal/narrative"
)

const (
	keyPrefix  = "gyst:session:"
	viewSuffix = ":view"
)

// markVisibility 在一个脚本内读取并更新可见状态哈希，返回上升沿区块。
// 会话键不存在时返回 nil，对应 redis.Nil。
var markVisibility = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
local rising = {}
for i = 1, #ARGV - 1, 2 do
  local prev = redis.call('HGET', KEYS[2], ARGV[i])
  if ARGV[i + 1] == '1' and prev ~= '1' then
    table.insert(rising, ARGV[i])
  end
  redis.call('HSET', KEYS[2], ARGV[i], ARGV[i + 1])
end
redis.call('PEXPIRE', KEYS[1], ARGV[#ARGV])
redis.call('PEXPIRE', KEYS[2], ARGV[#ARGV])
return rising
`)

// RedisConfig 描述 Redis 会话存储的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore 把会话保存为带过期时间的字符串键。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 连接 Redis 并创建会话存储。
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 Redis 失败")
	}
	return NewRedisStoreWithClient(client, cfg.TTL), nil
}

// NewRedisStoreWithClient 复用已有的 Redis 客户端。
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string { return keyPrefix + id }

func viewKey(id string) string { return keyPrefix + id + viewSuffix }

func visibilityArgs(updates []VisibilityUpdate, ttl time.Duration) []any {
	args := make([]any, 0, len(updates)*2+1)
	for _, u := range updates {
		flag := "0"
		if u.InView {
			flag = "1"
		}
		args = append(args, string(u.Section), flag)
	}
	return append(args, ttl.Milliseconds())
}

// Create 写入会话键。
func (s *RedisStore) Create(ctx context.Context, id string, initial narrative.SectionID) (Session, error) {
	if initial == "" {
		initial = narrative.SectionHero
	}
	if err := s.client.Set(ctx, redisKey(id), string(initial), s.ttl).Err(); err != nil {
		return Session{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入会话失败")
	}
	return Session{ID: id, Section: initial, ExpiresAt: time.Now().Add(s.ttl)}, nil
}

// Report 使用 SET XX GET 原子地覆盖并取回旧值，键不存在时返回 ErrNotFound。
func (s *RedisStore) Report(ctx context.Context, id string, section narrative.SectionID) (narrative.SectionID, error) {
	prev, err := s.client.SetArgs(ctx, redisKey(id), string(section), redis.SetArgs{
		Mode: "XX",
		TTL:  s.ttl,
		Get:  true,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新会话失败")
	}
	return narrative.SectionID(prev), nil
}

// MarkVisibility 原子地合并可见状态并为会话续期。
func (s *RedisStore) MarkVisibility(ctx context.Context, id string, updates []VisibilityUpdate) ([]narrative.SectionID, error) {
	keys := []string{redisKey(id), viewKey(id)}
	values, err := markVisibility.Run(ctx, s.client, keys, visibilityArgs(updates, s.ttl)...).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新可见状态失败")
	}
	rising := make([]narrative.SectionID, 0, len(values))
	for _, v := range values {
		rising = append(rising, narrative.SectionID(v))
	}
	return rising, nil
}

// Current 读取会话当前区块与剩余存活时间。
func (s *RedisStore) Current(ctx context.Context, id string) (Session, error) {
	key := redisKey(id)
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Session{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取会话失败")
	}
	value, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取会话失败")
	}
	sess := Session{ID: id, Section: narrative.SectionID(value)}
	if ttl, err := ttlCmd.Result(); err == nil && ttl > 0 {
		sess.ExpiresAt = time.Now().Add(ttl)
	}
	return sess, nil
}

// Close 关闭 Redis 连接。
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
