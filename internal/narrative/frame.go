package narrative

import (
	"fmt"
	"math"
)

// Role 表示卡片在当前帧中的视觉角色。
type Role string

const (
	RoleHidden     Role = "hidden"
	RoleEntering   Role = "entering"
	RoleFocused    Role = "focused"
	RoleRetreating Role = "retreating"
	RoleDimmed     Role = "dimmed"
)

// CardState 是卡片在某一帧的变换。
type CardState struct {
	Role    Role    `json:"role"`
	Y       float64 `json:"y"`
	Opacity float64 `json:"opacity"`
	Scale   float64 `json:"scale"`
}

var (
	hiddenPose  = CardState{Role: RoleHidden, Y: 150, Opacity: 0, Scale: 0.95}
	focusedPose = CardState{Role: RoleFocused, Y: 0, Opacity: 1, Scale: 1}
	dimmedPose  = CardState{Role: RoleDimmed, Y: -20, Opacity: 0.4, Scale: 0.92}
)

func blend(role Role, from, to CardState, t float64) CardState {
	return CardState{
		Role:    role,
		Y:       lerp(from.Y, to.Y, t),
		Opacity: lerp(from.Opacity, to.Opacity, t),
		Scale:   lerp(from.Scale, to.Scale, t),
	}
}

// Frame 是置顶区块在某个滚动位置的完整输出。
type Frame struct {
	Progress   float64              `json:"progress"`
	Phase      int                  `json:"phase"`
	Completed  bool                 `json:"completed"`
	Percentage int                  `json:"percentage"`
	Label      string               `json:"label"`
	Fill       float64              `json:"fill"`
	Pinned     bool                 `json:"pinned"`
	Cards      [CardCount]CardState `json:"cards"`
}

// Progress 计算置顶区块的滚动进度，结果限制在 [0, 1]。
func Progress(scrollY, pinStart, pinnedDistance float64) float64 {
	if pinnedDistance <= 0 {
		return 0
	}
	return clamp01((scrollY - pinStart) / pinnedDistance)
}

// Percentage 返回进度对应的整数百分比，范围 [0, 100]。
func Percentage(p float64) int {
	pct := int(math.Floor(clamp01(p) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ComputeFrame 由滚动偏移和置顶几何计算一帧，是纯函数。
func ComputeFrame(scrollY, pinStart, pinnedDistance float64, tl Timeline) Frame {
	p := Progress(scrollY, pinStart, pinnedDistance)
	f := FrameAt(p, tl)
	f.Pinned = pinnedDistance > 0 && scrollY >= pinStart && scrollY <= pinStart+pinnedDistance
	return f
}

// FrameAt 由进度直接计算一帧。
func FrameAt(p float64, tl Timeline) Frame {
	p = clamp01(p)
	pct := Percentage(p)
	f := Frame{
		Progress:   p,
		Completed:  p > tl.Completion,
		Percentage: pct,
		Label:      fmt.Sprintf("%d%%", pct),
		Fill:       p,
	}

	at := p * tl.Duration
	for _, tr := range tl.Transitions {
		if at >= tr.At {
			f.Phase++
		}
	}
	if f.Phase > CardCount-1 {
		f.Phase = CardCount - 1
	}

	for i := 0; i < CardCount; i++ {
		f.Cards[i] = cardAt(i, at, tl.Transitions)
	}
	return f
}

// cardAt 计算卡片 i 在时间轴位置 at 的状态。transitions[i-1] 负责卡片 i 进入，
// transitions[i] 负责卡片 i 退后。
func cardAt(i int, at float64, transitions []Transition) CardState {
	if i > 0 && i-1 < len(transitions) {
		enter := transitions[i-1]
		if at < enter.At {
			return hiddenPose
		}
		if at < enter.End() {
			return blend(RoleEntering, hiddenPose, focusedPose, easeOutQuad((at-enter.At)/enter.Span))
		}
	}
	if i < len(transitions) {
		leave := transitions[i]
		if at >= leave.End() {
			return dimmedPose
		}
		if at >= leave.At {
			return blend(RoleRetreating, focusedPose, dimmedPose, easeOutQuad((at-leave.At)/leave.Span))
		}
	}
	return focusedPose
}
