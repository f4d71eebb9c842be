package narrative

// Pin 描述置顶区块当前的几何，每次 Tick 都重新读取，避免窗口尺寸变化后沿用旧值。
type Pin struct {
	Start    float64 `json:"start"`
	Distance float64 `json:"distance"`
}

// Output 接收每帧的直接写入。SetCards 与 SetProgress 每帧都会调用，
// SetCompleted 只在完成标记翻转时调用。
type Output interface {
	SetCards(cards [CardCount]CardState)
	SetProgress(fill float64, label string)
	SetCompleted(done bool)
}

// Sequencer 以滚动事件驱动时间轴，每次 Tick 为 O(1)。
type Sequencer struct {
	timeline  Timeline
	out       Output
	completed bool
	last      Frame
}

// SequencerOption 定义可选配置。
type SequencerOption func(*Sequencer)

// WithOutput 指定帧输出目标。
func WithOutput(out Output) SequencerOption {
	return func(s *Sequencer) {
		s.out = out
	}
}

// WithCompletionThreshold 覆盖完成阈值。
func WithCompletionThreshold(threshold float64) SequencerOption {
	return func(s *Sequencer) {
		if threshold >= 0 && threshold <= 1 {
			s.timeline.Completion = threshold
		}
	}
}

// NewSequencer 构造 Sequencer。
func NewSequencer(tl Timeline, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{timeline: tl}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.last = FrameAt(0, s.timeline)
	return s
}

// Timeline 返回使用中的时间轴。
func (s *Sequencer) Timeline() Timeline { return s.timeline }

// Tick 处理一次滚动事件。
func (s *Sequencer) Tick(scrollY float64, pin Pin) Frame {
	f := ComputeFrame(scrollY, pin.Start, pin.Distance, s.timeline)
	s.last = f
	if s.out == nil {
		s.completed = f.Completed
		return f
	}
	s.out.SetCards(f.Cards)
	s.out.SetProgress(f.Fill, f.Label)
	if f.Completed != s.completed {
		s.completed = f.Completed
		s.out.SetCompleted(f.Completed)
	}
	return f
}

// Last 返回最近一次 Tick 的结果。
func (s *Sequencer) Last() Frame { return s.last }

// Completed 返回当前完成标记。
func (s *Sequencer) Completed() bool { return s.completed }
