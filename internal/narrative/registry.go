package narrative

import "sync"

// Listener 在激活区块发生变化后被同步调用。
// Listener 内部不能再调用 Report，否则会死锁。
type Listener func(prev, next SectionID)

// Sink 接收区块可见性上报，Registry 与会话存储都实现了它。
type Sink interface {
	Report(id SectionID)
}

// Registry 保存当前激活的区块，写入遵循“最后写入者获胜”。
type Registry struct {
	writeMu sync.Mutex // 串行化 Report，保证监听者看到的顺序与写入顺序一致

	mu        sync.RWMutex
	current   SectionID
	listeners map[int]Listener
	nextID    int
}

// NewRegistry 创建 Registry，initial 为空时使用第一个区块。
func NewRegistry(initial SectionID) *Registry {
	if initial == "" {
		initial = sectionOrder[0]
	}
	return &Registry{current: initial, listeners: make(map[int]Listener)}
}

// Report 无条件覆盖当前值，值发生变化时通知监听者。
func (r *Registry) Report(id SectionID) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	prev := r.current
	r.current = id
	if prev == id {
		r.mu.Unlock()
		return
	}
	listeners := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	for _, l := range listeners {
		l(prev, id)
	}
}

// Current 返回最近一次上报的区块。
func (r *Registry) Current() SectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Subscribe 注册监听者，返回的函数用于取消订阅，可重复调用。
func (r *Registry) Subscribe(l Listener) (cancel func()) {
	if l == nil {
		return func() {}
	}
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

var _ Sink = (*Registry)(nil)
