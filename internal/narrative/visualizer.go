package narrative

import (
	"sync"
	"time"
)

// Visualizer 订阅 Registry，在激活区块变化时切换外观，并负责延迟标签的定时器。
type Visualizer struct {
	mu         sync.Mutex
	animator   *Animator
	section    SectionID
	labelShown bool
	timer      *time.Timer
	generation int
	closed     bool
	now        func() time.Time
	cancel     func()
}

// VisualizerOption 定义可选配置。
type VisualizerOption func(*Visualizer)

// WithClock 替换时间来源，用于测试与离线模拟。
func WithClock(now func() time.Time) VisualizerOption {
	return func(v *Visualizer) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVisualizer 创建 Visualizer 并订阅 registry。
func NewVisualizer(registry *Registry, opts ...VisualizerOption) *Visualizer {
	v := &Visualizer{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	v.section = registry.Current()
	v.animator = NewAnimator(DescriptorFor(v.section), v.now())
	v.armLabel(DescriptorFor(v.section))
	v.cancel = registry.Subscribe(v.onChange)
	return v
}

func (v *Visualizer) onChange(_, next SectionID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.section = next
	target := DescriptorFor(next)
	v.animator.Retarget(target, v.now())
	v.stopLabelLocked()
	v.armLabelLocked(target)
}

func (v *Visualizer) armLabel(d Descriptor) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.armLabelLocked(d)
}

func (v *Visualizer) armLabelLocked(d Descriptor) {
	if d.Label.Text == "" {
		return
	}
	gen := v.generation
	v.timer = time.AfterFunc(d.Label.Delay, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.closed || v.generation != gen {
			return
		}
		v.labelShown = true
	})
}

// stopLabelLocked 立即移除标签并作废尚未触发的定时器。
func (v *Visualizer) stopLabelLocked() {
	v.generation++
	v.labelShown = false
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

// Section 返回当前展示的区块。
func (v *Visualizer) Section() SectionID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.section
}

// LabelVisible 返回延迟标签是否已显示。
func (v *Visualizer) LabelVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.labelShown
}

// Appearance 返回当前时刻的外观。
func (v *Visualizer) Appearance() Appearance {
	v.mu.Lock()
	defer v.mu.Unlock()
	a := v.animator.Sample(v.now())
	a.LabelVisible = v.labelShown
	return a
}

// Close 取消订阅并清理定时器，可重复调用。
func (v *Visualizer) Close() {
	if v.cancel != nil {
		v.cancel()
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.stopLabelLocked()
	v.closed = true
}
