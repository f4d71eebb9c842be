package narrative

import (
	"math"
	"time"
)

const (
	ringCenter = 200.0
	ringRadius = 120.0

	strokeAlert   = "#ef4444"
	strokeDefault = "#ffffff"
)

// RingCircumference 是可视化主环的周长。
var RingCircumference = 2 * math.Pi * ringRadius

// Dash 是环的虚线样式：弧长与间隔。
type Dash struct {
	Arc float64 `json:"arc"`
	Gap float64 `json:"gap"`
}

// Rotation 描述环的旋转方式，Continuous 为 false 时保持静止。
type Rotation struct {
	Continuous bool          `json:"continuous"`
	Period     time.Duration `json:"period"`
}

// Marker 是环顶部的标记点。
type Marker struct {
	Visible bool    `json:"visible"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Opacity float64 `json:"opacity"`
	Scale   float64 `json:"scale"`
	Fill    string  `json:"fill,omitempty"`
}

// Label 是区块激活一段时间后居中显示的文字。
type Label struct {
	Text  string        `json:"text,omitempty"`
	Delay time.Duration `json:"delay,omitempty"`
}

// Overlay 表示区块特有的装饰。
type Overlay string

const (
	OverlayNone         Overlay = ""
	OverlaySonar        Overlay = "sonar"
	OverlayRings        Overlay = "rings"
	OverlayBranches     Overlay = "branches"
	OverlayVerification Overlay = "verification"
)

// Descriptor 是可视化环在某个区块下的目标外观。
type Descriptor struct {
	Dash     Dash     `json:"dash"`
	Rotation Rotation `json:"rotation"`
	Stroke   string   `json:"stroke"`
	LineCap  string   `json:"line_cap"`
	Jitter   bool     `json:"jitter"`
	Opacity  float64  `json:"opacity"`
	Scale    float64  `json:"scale"`
	Marker   Marker   `json:"marker"`
	Label    Label    `json:"label"`
	Overlay  Overlay  `json:"overlay,omitempty"`
}

// NeutralDescriptor 是未知区块使用的外观：空环、静止、白色、无标记。
func NeutralDescriptor() Descriptor {
	return Descriptor{
		Dash:    Dash{Arc: 0, Gap: 1000},
		Stroke:  strokeDefault,
		LineCap: "round",
		Opacity: 1,
		Scale:   1,
	}
}

var dashBySection = map[SectionID]Dash{
	SectionProblem:   {Arc: 10, Gap: 40},
	SectionWhy:       {Arc: 0, Gap: 1000},
	SectionIntent:    {Arc: 2, Gap: 800},
	SectionDiagnosis: {Arc: 180, Gap: 580},
	SectionMemory:    {Arc: 360, Gap: 400},
	SectionPlanning:  {Arc: 540, Gap: 220},
}

var fullRing = map[SectionID]bool{
	SectionExecution:    true,
	SectionIteration:    true,
	SectionVerification: true,
	SectionOffer:        true,
	SectionFinal:        true,
	SectionCTA:          true,
}

var spinPeriod = map[SectionID]time.Duration{
	SectionExecution: 12 * time.Second,
	SectionIteration: 6 * time.Second,
}

// DescriptorFor 返回区块对应的外观，未知区块返回 NeutralDescriptor。
func DescriptorFor(id SectionID) Descriptor {
	if !id.Valid() {
		return NeutralDescriptor()
	}
	d := NeutralDescriptor()

	if dash, ok := dashBySection[id]; ok {
		d.Dash = dash
	} else if fullRing[id] {
		d.Dash = Dash{Arc: RingCircumference, Gap: 0}
	}

	if period, ok := spinPeriod[id]; ok {
		d.Rotation = Rotation{Continuous: true, Period: period}
	}

	switch id {
	case SectionHero, SectionWhy, SectionFinal:
	default:
		d.Marker = Marker{Visible: true, X: ringCenter, Y: ringCenter - ringRadius, Opacity: 1, Scale: 1, Fill: strokeDefault}
	}

	switch id {
	case SectionHero:
		d.Overlay = OverlaySonar
	case SectionProblem:
		d.Stroke = strokeAlert
		d.LineCap = "butt"
		d.Jitter = true
		d.Marker.Opacity = 0.5
		d.Marker.Fill = strokeAlert
	case SectionWhy:
		d.Label = Label{Text: "WHY?", Delay: 300 * time.Millisecond}
	case SectionDiagnosis:
		d.Overlay = OverlayRings
	case SectionPlanning:
		d.Overlay = OverlayBranches
	case SectionVerification:
		d.Overlay = OverlayVerification
		d.Marker.Scale = 0
	case SectionFinal:
		d.Opacity = 0.5
		d.Scale = 0.9
	}
	return d
}
