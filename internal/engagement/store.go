package engagement

import (
	"context"
	"sort"
	"sync"
)

// ListOptions 控制查询事件时的过滤条件。
type ListOptions struct {
	Limit     int
	Kinds     []Kind
	SessionID string
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (opts *ListOptions) applyDefaults() {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
}

func (opts ListOptions) matches(e Event) bool {
	if opts.SessionID != "" && e.SessionID != opts.SessionID {
		return false
	}
	if len(opts.Kinds) == 0 {
		return true
	}
	for _, k := range opts.Kinds {
		if e.Kind == k {
			return true
		}
	}
	return false
}

// Store 持久化互动事件。Save 以事件 ID 幂等。
type Store interface {
	Save(ctx context.Context, e Event) error
	List(ctx context.Context, opts ListOptions) ([]Event, error)
	Close() error
}

// MemoryStore 在内存中保存事件，按容量淘汰最旧的记录。
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	ids      map[string]struct{}
	capacity int
}

// NewMemoryStore 创建内存存储，capacity 不大于 0 时使用 10000。
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryStore{ids: make(map[string]struct{}), capacity: capacity}
}

// Save 保存事件，重复 ID 会被忽略。
func (s *MemoryStore) Save(_ context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[e.ID]; ok {
		return nil
	}
	s.events = append(s.events, e)
	s.ids[e.ID] = struct{}{}
	if over := len(s.events) - s.capacity; over > 0 {
		for _, old := range s.events[:over] {
			delete(s.ids, old.ID)
		}
		s.events = append([]Event(nil), s.events[over:]...)
	}
	return nil
}

// List 按发生时间倒序返回事件。
func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]Event, error) {
	opts.applyDefaults()
	s.mu.RLock()
	matched := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if opts.matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})
	if len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// Close 释放资源。
func (s *MemoryStore) Close() error { return nil }
