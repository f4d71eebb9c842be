package narrative

import "math"

// Geometry 描述某一时刻区块相对视口的位置，单位为像素。
type Geometry struct {
	Top            float64 `json:"top"`
	Height         float64 `json:"height"`
	ViewportHeight float64 `json:"viewport_height"`
}

// ObserverSpec 定义区块何时被视为“主导视口”。
// Margin 按视口高度的比例从上下两侧收缩观察带；Threshold 为最小相交比例，
// 为 0 时表示只要有重叠即可。
type ObserverSpec struct {
	Margin    float64 `json:"margin"`
	Threshold float64 `json:"threshold"`
}

var (
	// HeroObserver 观察视口中部 60% 的区域。
	HeroObserver = ObserverSpec{Margin: 0.20}
	// StandardObserver 观察视口中部 20% 的区域。
	StandardObserver = ObserverSpec{Margin: 0.40}
	// PinnedObserver 用于置顶区块：整个视口，至少 10% 可见。
	PinnedObserver = ObserverSpec{Threshold: 0.1}
)

// ObserverFor 返回区块使用的观察参数；不上报激活状态的区块返回 false。
func ObserverFor(id SectionID) (ObserverSpec, bool) {
	switch id {
	case SectionHero:
		return HeroObserver, true
	case SectionProblem:
		return PinnedObserver, true
	case SectionTechStack:
		return ObserverSpec{}, false
	default:
		if !id.Valid() {
			return ObserverSpec{}, false
		}
		return StandardObserver, true
	}
}

// IntersectionRatio 返回区块落在观察带内的比例，范围 [0, 1]。
func IntersectionRatio(g Geometry, spec ObserverSpec) float64 {
	if g.Height <= 0 || g.ViewportHeight <= 0 {
		return 0
	}
	overlap := overlap(g, spec)
	return clamp01(overlap / g.Height)
}

// InView 判断区块是否满足观察条件。
func InView(g Geometry, spec ObserverSpec) bool {
	if g.Height <= 0 || g.ViewportHeight <= 0 {
		return false
	}
	if spec.Threshold <= 0 {
		return overlap(g, spec) > 0
	}
	return IntersectionRatio(g, spec) >= spec.Threshold
}

func overlap(g Geometry, spec ObserverSpec) float64 {
	inset := clamp01(spec.Margin) * g.ViewportHeight
	bandTop := inset
	bandBottom := g.ViewportHeight - inset
	if bandBottom <= bandTop {
		return 0
	}
	top := math.Max(bandTop, g.Top)
	bottom := math.Min(bandBottom, g.Top+g.Height)
	return math.Max(0, bottom-top)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
