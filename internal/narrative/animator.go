package narrative

import (
	"math"
	"time"
)

// TransitionDuration 是外观切换的插值时长。
const TransitionDuration = 800 * time.Millisecond

// Appearance 是某一时刻可视化环的实际外观。
type Appearance struct {
	Descriptor
	Angle        float64 `json:"angle"`
	LabelVisible bool    `json:"label_visible"`
}

// Animator 在当前外观与目标外观之间插值虚线与旋转角度，其余属性立即切换。
type Animator struct {
	from      Descriptor
	fromAngle float64
	target    Descriptor
	start     time.Time
	duration  time.Duration
}

// NewAnimator 以 initial 为起点创建 Animator，初始状态不做插值。
func NewAnimator(initial Descriptor, now time.Time) *Animator {
	return &Animator{from: initial, target: initial, start: now.Add(-TransitionDuration), duration: TransitionDuration}
}

// Retarget 从当前采样值出发切换到新目标。
func (a *Animator) Retarget(target Descriptor, now time.Time) {
	current := a.Sample(now)
	a.from = current.Descriptor
	a.fromAngle = current.Angle
	a.target = target
	a.start = now
}

// Target 返回当前目标外观。
func (a *Animator) Target() Descriptor { return a.target }

// Sample 计算 now 时刻的外观。
func (a *Animator) Sample(now time.Time) Appearance {
	elapsed := now.Sub(a.start)
	if elapsed < 0 {
		elapsed = 0
	}
	t := 1.0
	if a.duration > 0 {
		t = clamp01(float64(elapsed) / float64(a.duration))
	}
	e := standardEase.At(t)

	out := a.target
	out.Dash = Dash{
		Arc: lerp(a.from.Dash.Arc, a.target.Dash.Arc, e),
		Gap: lerp(a.from.Dash.Gap, a.target.Dash.Gap, e),
	}
	out.Opacity = lerp(a.from.Opacity, a.target.Opacity, e)
	out.Scale = lerp(a.from.Scale, a.target.Scale, e)

	angle := lerp(a.fromAngle, 0, e)
	if r := a.target.Rotation; r.Continuous && r.Period > 0 {
		angle += 360 * math.Mod(float64(elapsed), float64(r.Period)) / float64(r.Period)
	}
	return Appearance{Descriptor: out, Angle: math.Mod(angle, 360)}
}
