package narrative

import "testing"

type recordingOutput struct {
	cards     int
	labels    []string
	completed []bool
}

func (o *recordingOutput) SetCards([CardCount]CardState) { o.cards++ }

func (o *recordingOutput) SetProgress(_ float64, label string) {
	o.labels = append(o.labels, label)
}

func (o *recordingOutput) SetCompleted(done bool) {
	o.completed = append(o.completed, done)
}

func TestSequencerTogglesCompletionOnce(t *testing.T) {
	out := &recordingOutput{}
	seq := NewSequencer(DefaultTimeline(), WithOutput(out))
	pin := Pin{Start: 0, Distance: 1000}

	for _, y := range []float64{100, 860, 900, 1000, 500, 400} {
		seq.Tick(y, pin)
	}
	if out.cards != 6 || len(out.labels) != 6 {
		t.Fatalf("every tick must write cards and progress: %d %d", out.cards, len(out.labels))
	}
	if len(out.completed) != 2 || !out.completed[0] || out.completed[1] {
		t.Fatalf("unexpected completion toggles: %v", out.completed)
	}
	if seq.Completed() {
		t.Fatalf("sequencer should not be completed after scrolling back")
	}
}

func TestSequencerReadsPinEveryTick(t *testing.T) {
	seq := NewSequencer(DefaultTimeline())
	if f := seq.Tick(1500, Pin{Start: 1000, Distance: 1000}); f.Percentage != 50 {
		t.Fatalf("unexpected percentage %d", f.Percentage)
	}
	// 视口变化后置顶起点后移，同一滚动位置的进度随之改变。
	if f := seq.Tick(1500, Pin{Start: 1250, Distance: 1000}); f.Percentage != 25 {
		t.Fatalf("unexpected percentage after resize %d", f.Percentage)
	}
	if seq.Last().Percentage != 25 {
		t.Fatalf("Last should return the latest frame")
	}
}

func TestCompletionThresholdOption(t *testing.T) {
	seq := NewSequencer(DefaultTimeline(), WithCompletionThreshold(0.5))
	if f := seq.Tick(510, Pin{Distance: 1000}); !f.Completed {
		t.Fatalf("expected custom threshold to apply")
	}
	seq = NewSequencer(DefaultTimeline(), WithCompletionThreshold(3))
	if seq.Timeline().Completion != DefaultCompletion {
		t.Fatalf("out of range threshold should be ignored")
	}
}
