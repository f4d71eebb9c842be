package narrative

import "math"

// easeOutQuad 是卡片切换使用的缓动曲线（power1.out）。
func easeOutQuad(t float64) float64 {
	t = clamp01(t)
	return 1 - (1-t)*(1-t)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// cubicBezier 对应 CSS 的 cubic-bezier(x1, y1, x2, y2)，端点固定为 (0,0) 与 (1,1)。
type cubicBezier struct {
	x1, y1, x2, y2 float64
}

// standardEase 是可视化环切换使用的曲线。
var standardEase = cubicBezier{x1: 0.2, y1: 0.8, x2: 0.2, y2: 1}

func bezierComponent(t, p1, p2 float64) float64 {
	u := 1 - t
	return 3*u*u*t*p1 + 3*u*t*t*p2 + t*t*t
}

func bezierSlope(t, p1, p2 float64) float64 {
	u := 1 - t
	return 3*u*u*p1 + 6*u*t*(p2-p1) + 3*t*t*(1-p2)
}

// At 返回横坐标为 x 时曲线的纵坐标。先用牛顿迭代求参数 t，失败时退回二分。
func (c cubicBezier) At(x float64) float64 {
	x = clamp01(x)
	if x == 0 || x == 1 {
		return x
	}
	t := x
	for i := 0; i < 8; i++ {
		dx := bezierComponent(t, c.x1, c.x2) - x
		if math.Abs(dx) < 1e-7 {
			return bezierComponent(t, c.y1, c.y2)
		}
		slope := bezierSlope(t, c.x1, c.x2)
		if math.Abs(slope) < 1e-6 {
			break
		}
		t -= dx / slope
	}
	lo, hi := 0.0, 1.0
	t = x
	for i := 0; i < 50; i++ {
		v := bezierComponent(t, c.x1, c.x2)
		if math.Abs(v-x) < 1e-7 {
			break
		}
		if v < x {
			lo = t
		} else {
			hi = t
		}
		t = (lo + hi) / 2
	}
	return bezierComponent(t, c.y1, c.y2)
}
