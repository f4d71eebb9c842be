package narrative

import (
	"sort"
	"sync"
)

type layoutEntry struct {
	id     SectionID
	top    float64 // 文档坐标
	height float64
	pin    float64 // 置顶期间消耗的滚动距离
}

// Layout 将区块按顺序首尾相接排布，每个区块高度为一个视口；
// 置顶区块额外占用 pinnedDistance 像素的滚动距离。
type Layout struct {
	entries        []layoutEntry
	viewportHeight float64
	pinnedDistance float64
}

// NewLayout 根据区块顺序构造布局。
func NewLayout(order []SectionID, viewportHeight, pinnedDistance float64) *Layout {
	l := &Layout{pinnedDistance: pinnedDistance}
	l.entries = make([]layoutEntry, len(order))
	for i, id := range order {
		l.entries[i].id = id
	}
	l.relayout(viewportHeight)
	return l
}

func (l *Layout) relayout(viewportHeight float64) {
	l.viewportHeight = viewportHeight
	offset := 0.0
	for i := range l.entries {
		e := &l.entries[i]
		e.top = offset
		e.height = viewportHeight
		e.pin = 0
		if e.id == SectionProblem {
			e.pin = l.pinnedDistance
		}
		offset += e.height + e.pin
	}
}

// ViewportHeight 返回当前视口高度。
func (l *Layout) ViewportHeight() float64 { return l.viewportHeight }

// PinnedDistance 返回置顶区块的虚拟滚动距离。
func (l *Layout) PinnedDistance() float64 { return l.pinnedDistance }

// Total 返回文档总高度。
func (l *Layout) Total() float64 {
	if len(l.entries) == 0 {
		return 0
	}
	last := l.entries[len(l.entries)-1]
	return last.top + last.height + last.pin
}

// PinStart 返回区块顶部到达视口顶部时的滚动偏移。
func (l *Layout) PinStart(id SectionID) (float64, bool) {
	for _, e := range l.entries {
		if e.id == id {
			return e.top, true
		}
	}
	return 0, false
}

// Geometry 计算滚动到 scrollY 时区块相对视口的位置。置顶区块在置顶期间停留在视口顶部。
func (l *Layout) Geometry(id SectionID, scrollY float64) (Geometry, bool) {
	for _, e := range l.entries {
		if e.id != id {
			continue
		}
		top := e.top - scrollY
		if e.pin > 0 && scrollY >= e.top {
			if scrollY <= e.top+e.pin {
				top = 0
			} else {
				top = e.top + e.pin - scrollY
			}
		}
		return Geometry{Top: top, Height: e.height, ViewportHeight: l.viewportHeight}, true
	}
	return Geometry{}, false
}

// Viewport 是进程内的相交观察实现：持有布局和滚动位置，
// 每次 ScrollTo 或 Resize 都会向已启动的 Emitter 推送最新几何信息。
type Viewport struct {
	mu       sync.Mutex
	layout   *Layout
	scrollY  float64
	nextID   int
	watchers map[int]*viewportEmitter
}

// NewViewport 创建视口。
func NewViewport(layout *Layout) *Viewport {
	return &Viewport{layout: layout, watchers: make(map[int]*viewportEmitter)}
}

// Emitter 返回观察指定区块的 Emitter。
func (v *Viewport) Emitter(id SectionID) Emitter {
	return &viewportEmitter{viewport: v, section: id, key: -1}
}

// Layout 返回当前布局。
func (v *Viewport) Layout() *Layout {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layout
}

// ScrollY 返回当前滚动偏移。
func (v *Viewport) ScrollY() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollY
}

// ScrollTo 更新滚动位置并通知观察者。
func (v *Viewport) ScrollTo(y float64) {
	v.mu.Lock()
	if y < 0 {
		y = 0
	}
	v.scrollY = y
	v.mu.Unlock()
	v.dispatch()
}

// Resize 以新的视口高度重新排布，并通知观察者。
func (v *Viewport) Resize(viewportHeight float64) {
	v.mu.Lock()
	v.layout.relayout(viewportHeight)
	v.mu.Unlock()
	v.dispatch()
}

// Watching 返回仍在观察中的 Emitter 数量。
func (v *Viewport) Watching() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watchers)
}

type delivery struct {
	callback func(Geometry)
	geometry Geometry
}

func (v *Viewport) dispatch() {
	v.mu.Lock()
	keys := make([]int, 0, len(v.watchers))
	for key := range v.watchers {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	pending := make([]delivery, 0, len(keys))
	for _, key := range keys {
		w := v.watchers[key]
		if g, ok := v.layout.Geometry(w.section, v.scrollY); ok {
			pending = append(pending, delivery{callback: w.callback, geometry: g})
		}
	}
	v.mu.Unlock()

	for _, d := range pending {
		d.callback(d.geometry)
	}
}

type viewportEmitter struct {
	viewport *Viewport
	section  SectionID
	key      int
	callback func(Geometry)
}

func (e *viewportEmitter) Start(callback func(Geometry)) error {
	v := e.viewport
	v.mu.Lock()
	e.callback = callback
	e.key = v.nextID
	v.nextID++
	v.watchers[e.key] = e
	g, ok := v.layout.Geometry(e.section, v.scrollY)
	v.mu.Unlock()

	if ok {
		callback(g)
	}
	return nil
}

func (e *viewportEmitter) Stop() {
	v := e.viewport
	v.mu.Lock()
	delete(v.watchers, e.key)
	v.mu.Unlock()
}
