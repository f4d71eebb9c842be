package session

import (
	"context"
	"sync"
	"time"

	"GYST-Loop/internal/narrative"
)

type memoryEntry struct {
	registry  *narrative.Registry
	inView    map[narrative.SectionID]bool
	expiresAt time.Time
}

// MemoryStore 为每个会话维护一个 narrative.Registry，过期会话在访问时清理。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption 定义可选配置。
type MemoryOption func(*MemoryStore)

// WithMemoryClock 替换时间来源。
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore 创建内存会话存储。
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{entries: make(map[string]*memoryEntry), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create 创建会话，同时清理已过期的会话。
func (s *MemoryStore) Create(_ context.Context, id string, initial narrative.SectionID) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	entry := &memoryEntry{
		registry:  narrative.NewRegistry(initial),
		inView:    make(map[narrative.SectionID]bool),
		expiresAt: now.Add(s.ttl),
	}
	s.entries[id] = entry
	return Session{ID: id, Section: entry.registry.Current(), ExpiresAt: entry.expiresAt}, nil
}

// Report 覆盖会话的当前区块并续期。
func (s *MemoryStore) Report(_ context.Context, id string, section narrative.SectionID) (narrative.SectionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(id)
	if err != nil {
		return "", err
	}
	prev := entry.registry.Current()
	entry.registry.Report(section)
	entry.expiresAt = s.now().Add(s.ttl)
	return prev, nil
}

// MarkVisibility 记录每个区块的可见状态，只返回上升沿。
func (s *MemoryStore) MarkVisibility(_ context.Context, id string, updates []VisibilityUpdate) ([]narrative.SectionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	var rising []narrative.SectionID
	for _, u := range updates {
		if u.InView && !entry.inView[u.Section] {
			rising = append(rising, u.Section)
		}
		entry.inView[u.Section] = u.InView
	}
	entry.expiresAt = s.now().Add(s.ttl)
	return rising, nil
}

// Current 返回会话状态。
func (s *MemoryStore) Current(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookupLocked(id)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, Section: entry.registry.Current(), ExpiresAt: entry.expiresAt}, nil
}

// Len 返回未过期的会话数量。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.entries)
}

// Close 清空全部会话。
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.entries = make(map[string]*memoryEntry)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) lookupLocked(id string) (*memoryEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
