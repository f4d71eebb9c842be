package narrative

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	xerrors "GYST-Loop/internal/errors"
)

// CardCount 是置顶区块中叙事卡片的数量。
const CardCount = 4

// DefaultCompletion 是完成标记的阈值：进度严格大于该值时视为完成。
const DefaultCompletion = 0.85

// Transition 描述一次卡片切换：第 i 个切换让卡片 i+1 进入、卡片 i 退后。
// At 与 Span 使用时间轴单位。
type Transition struct {
	At   float64 `yaml:"at" json:"at"`
	Span float64 `yaml:"span" json:"span"`
}

// End 返回切换结束的时间点。
func (t Transition) End() float64 { return t.At + t.Span }

// Timeline 把置顶区块的滚动进度划分为若干切换窗口。
type Timeline struct {
	Duration    float64      `yaml:"duration" json:"duration"`
	Completion  float64      `yaml:"completion" json:"completion"`
	Transitions []Transition `yaml:"transitions" json:"transitions"`
}

// DefaultTimeline 返回默认时间轴：总长 10，在 1、4、7 处各用 2 个单位切换卡片。
func DefaultTimeline() Timeline {
	return Timeline{
		Duration:   10,
		Completion: DefaultCompletion,
		Transitions: []Transition{
			{At: 1, Span: 2},
			{At: 4, Span: 2},
			{At: 7, Span: 2},
		},
	}
}

// Validate 检查时间轴的切换窗口是否有序、不重叠且位于总时长之内。
func (t Timeline) Validate() error {
	if t.Duration <= 0 {
		return xerrors.New(xerrors.CodeInvalidArgument, "timeline duration 必须大于 0")
	}
	if t.Completion < 0 || t.Completion > 1 {
		return xerrors.New(xerrors.CodeInvalidArgument, "timeline completion 必须位于 [0, 1]")
	}
	if len(t.Transitions) != CardCount-1 {
		return xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("timeline 需要 %d 个 transition，实际为 %d", CardCount-1, len(t.Transitions)))
	}
	prevEnd := 0.0
	for i, tr := range t.Transitions {
		if tr.Span <= 0 {
			return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("transition %d 的 span 必须大于 0", i))
		}
		if tr.At < prevEnd {
			return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("transition %d 与前一个窗口重叠", i))
		}
		if tr.End() > t.Duration {
			return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("transition %d 超出 timeline 总时长", i))
		}
		prevEnd = tr.End()
	}
	return nil
}

// LoadTimeline 从 YAML 文件读取时间轴，缺省字段使用默认值。
func LoadTimeline(path string) (Timeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Timeline{}, fmt.Errorf("读取 timeline 文件失败: %w", err)
	}
	return ParseTimeline(raw)
}

// ParseTimeline 解析 YAML 格式的时间轴。
func ParseTimeline(raw []byte) (Timeline, error) {
	tl := DefaultTimeline()
	tl.Transitions = nil
	if err := yaml.Unmarshal(raw, &tl); err != nil {
		return Timeline{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析 timeline 失败")
	}
	if tl.Transitions == nil {
		tl.Transitions = DefaultTimeline().Transitions
	}
	if err := tl.Validate(); err != nil {
		return Timeline{}, err
	}
	return tl, nil
}
