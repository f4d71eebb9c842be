package content

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/internal/narrative"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// SectionType 区分普通区块与 CTA 区块。
type SectionType string

const (
	SectionTypeDefault SectionType = ""
	SectionTypeCTA     SectionType = "cta"
)

// Section 是一个叙事区块的文案。
type Section struct {
	ID          narrative.SectionID `yaml:"id" json:"id"`
	Headline    string              `yaml:"headline" json:"headline,omitempty"`
	Subheadline string              `yaml:"subheadline" json:"subheadline,omitempty"`
	Copy        []string            `yaml:"copy" json:"copy,omitempty"`
	Bullets     []string            `yaml:"bullets" json:"bullets,omitempty"`
	Micro       string              `yaml:"micro" json:"micro,omitempty"`
	CTA         string              `yaml:"cta" json:"cta,omitempty"`
	Type        SectionType         `yaml:"type" json:"type,omitempty"`
}

// ProblemCard 是置顶区块中的一张叙事卡片。
type ProblemCard struct {
	Icon    string `yaml:"icon" json:"icon"`
	Title   string `yaml:"title" json:"title"`
	Text    string `yaml:"text" json:"text"`
	Subtext string `yaml:"subtext" json:"subtext"`
}

// Tech 是技术栈跑马灯中的一项。
type Tech struct {
	Name string `yaml:"name" json:"name"`
	Icon string `yaml:"icon" json:"icon"`
}

// Testimonial 是一条客户评价。
type Testimonial struct {
	Name   string `yaml:"name" json:"name"`
	Role   string `yaml:"role" json:"role"`
	Quote  string `yaml:"quote" json:"quote"`
	Avatar string `yaml:"avatar" json:"avatar"`
}

// Metric 是案例中的一个指标。
type Metric struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// CaseStudy 是一个客户案例。
type CaseStudy struct {
	Tag       string   `yaml:"tag" json:"tag"`
	Featured  bool     `yaml:"featured" json:"featured"`
	Title     string   `yaml:"title" json:"title"`
	Duration  string   `yaml:"duration" json:"duration"`
	Challenge string   `yaml:"challenge" json:"challenge"`
	Solution  string   `yaml:"solution" json:"solution"`
	Metrics   []Metric `yaml:"metrics" json:"metrics"`
	Tags      []string `yaml:"tags" json:"tags"`
	Quote     string   `yaml:"quote" json:"quote"`
	Author    string   `yaml:"author" json:"author"`
}

type document struct {
	Sections     []Section     `yaml:"sections"`
	ProblemCards []ProblemCard `yaml:"problem_cards"`
	TechStack    []Tech        `yaml:"tech_stack"`
	Testimonials []Testimonial `yaml:"testimonials"`
	CaseStudies  []CaseStudy   `yaml:"case_studies"`
}

// Catalog 是页面的只读内容目录，加载后不再修改。
type Catalog struct {
	doc   document
	index map[narrative.SectionID]int
}

// Default 返回内置的内容目录。
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load 从 YAML 文件读取内容目录，路径为空时使用内置目录。
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("解析内容目录路径失败: %w", err)
	}
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("读取内容目录失败: %w", err)
	}
	return Parse(raw)
}

// Parse 解析 YAML 格式的内容目录，拒绝未知或重复的区块标识。
func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析内容目录失败")
	}
	index := make(map[narrative.SectionID]int, len(doc.Sections))
	for i, s := range doc.Sections {
		if !s.ID.Valid() {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("未知的区块标识 %q", s.ID))
		}
		if _, dup := index[s.ID]; dup {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("区块标识 %q 重复", s.ID))
		}
		index[s.ID] = i
	}
	if n := len(doc.ProblemCards); n != 0 && n != narrative.CardCount {
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("problem_cards 需要 %d 张，实际为 %d", narrative.CardCount, n))
	}
	return &Catalog{doc: doc, index: index}, nil
}

// Sections 按编写顺序返回全部区块的副本。
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.doc.Sections))
	for i, s := range c.doc.Sections {
		out[i] = s.clone()
	}
	return out
}

// Section 按标识查找区块。
func (c *Catalog) Section(id narrative.SectionID) (Section, bool) {
	i, ok := c.index[id]
	if !ok {
		return Section{}, false
	}
	return c.doc.Sections[i].clone(), true
}

// ProblemCards 返回置顶区块的卡片。
func (c *Catalog) ProblemCards() []ProblemCard {
	return append([]ProblemCard(nil), c.doc.ProblemCards...)
}

// TechStack 返回技术栈列表。
func (c *Catalog) TechStack() []Tech {
	return append([]Tech(nil), c.doc.TechStack...)
}

// Testimonials 返回客户评价。
func (c *Catalog) Testimonials() []Testimonial {
	return append([]Testimonial(nil), c.doc.Testimonials...)
}

// CaseStudies 返回客户案例。
func (c *Catalog) CaseStudies() []CaseStudy {
	out := make([]CaseStudy, len(c.doc.CaseStudies))
	for i, cs := range c.doc.CaseStudies {
		cs.Metrics = append([]Metric(nil), cs.Metrics...)
		cs.Tags = append([]string(nil), cs.Tags...)
		out[i] = cs
	}
	return out
}

func (s Section) clone() Section {
	s.Copy = append([]string(nil), s.Copy...)
	s.Bullets = append([]string(nil), s.Bullets...)
	return s
}
