package narrative

import (
	"errors"
	"sync"
	"time"
)

// DefaultPinnedDistance 是置顶区块的虚拟滚动距离。
const DefaultPinnedDistance = 3000

// PageOrder 是页面中区块的排布顺序，与声明顺序不同：技术栈紧跟在首屏之后。
var PageOrder = []SectionID{
	SectionHero,
	SectionTechStack,
	SectionProblem,
	SectionWhy,
	SectionIntent,
	SectionDiagnosis,
	SectionMemory,
	SectionPlanning,
	SectionExecution,
	SectionVerification,
	SectionCTA,
	SectionIteration,
	SectionOffer,
	SectionFinal,
}

// PageConfig 描述一次页面装配。
type PageConfig struct {
	ViewportHeight float64
	PinnedDistance float64
	Timeline       Timeline
	Output         Output
	Clock          func() time.Time
}

// Snapshot 是一次滚动之后页面的完整状态。
type Snapshot struct {
	ScrollY    float64    `json:"scroll_y"`
	Active     SectionID  `json:"active"`
	Frame      Frame      `json:"frame"`
	Appearance Appearance `json:"appearance"`
}

// Page 把布局、视口、区块观察者、Registry、可视化环与时间轴装配在一起，
// 用于离线模拟整页滚动。
type Page struct {
	mu         sync.Mutex
	viewport   *Viewport
	registry   *Registry
	visualizer *Visualizer
	sequencer  *Sequencer
	reporters  []*Reporter
	closed     bool
}

// NewPage 创建页面并启动全部区块观察者。
func NewPage(cfg PageConfig) (*Page, error) {
	if cfg.ViewportHeight <= 0 {
		return nil, errors.New("viewport height 必须大于 0")
	}
	if cfg.PinnedDistance <= 0 {
		cfg.PinnedDistance = DefaultPinnedDistance
	}
	if cfg.Timeline.Duration == 0 {
		cfg.Timeline = DefaultTimeline()
	}
	if err := cfg.Timeline.Validate(); err != nil {
		return nil, err
	}

	layout := NewLayout(PageOrder, cfg.ViewportHeight, cfg.PinnedDistance)
	p := &Page{
		viewport: NewViewport(layout),
		registry: NewRegistry(SectionHero),
	}
	p.visualizer = NewVisualizer(p.registry, WithClock(cfg.Clock))
	p.sequencer = NewSequencer(cfg.Timeline, WithOutput(cfg.Output))

	for _, id := range PageOrder {
		spec, ok := ObserverFor(id)
		if !ok {
			continue
		}
		r := NewReporter(id, spec, p.viewport.Emitter(id), p.registry)
		if err := r.Start(); err != nil {
			p.Close()
			return nil, err
		}
		p.reporters = append(p.reporters, r)
	}
	p.tickLocked()
	return p, nil
}

// Scroll 滚动到 y 并返回新的页面状态。
func (p *Page) Scroll(y float64) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.viewport.ScrollTo(y)
		p.tickLocked()
	}
	return p.snapshotLocked()
}

// Resize 修改视口高度，置顶几何在下一次 Tick 时重新读取。
func (p *Page) Resize(viewportHeight float64) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed && viewportHeight > 0 {
		p.viewport.Resize(viewportHeight)
		p.tickLocked()
	}
	return p.snapshotLocked()
}

// Snapshot 返回当前状态，不触发滚动。
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Registry 返回页面使用的 Registry。
func (p *Page) Registry() *Registry { return p.registry }

// Visualizer 返回页面使用的可视化环。
func (p *Page) Visualizer() *Visualizer { return p.visualizer }

// Layout 返回页面布局。
func (p *Page) Layout() *Layout { return p.viewport.Layout() }

// Close 停止全部观察者与定时器，可重复调用。
func (p *Page) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	reporters := p.reporters
	p.mu.Unlock()

	for _, r := range reporters {
		r.Stop()
	}
	if p.visualizer != nil {
		p.visualizer.Close()
	}
}

func (p *Page) tickLocked() {
	layout := p.viewport.Layout()
	start, _ := layout.PinStart(SectionProblem)
	p.sequencer.Tick(p.viewport.ScrollY(), Pin{Start: start, Distance: layout.PinnedDistance()})
}

func (p *Page) snapshotLocked() Snapshot {
	return Snapshot{
		ScrollY:    p.viewport.ScrollY(),
		Active:     p.registry.Current(),
		Frame:      p.sequencer.Last(),
		Appearance: p.visualizer.Appearance(),
	}
}
