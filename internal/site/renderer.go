package site

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"GYST-Loop/internal/content"
	"GYST-Loop/internal/narrative"
)

// BlockKind 标识页面中的一个渲染块。
type BlockKind string

const (
	BlockSection      BlockKind = "section"
	BlockProblem      BlockKind = "problem"
	BlockTechStack    BlockKind = "tech_stack"
	BlockCaseStudies  BlockKind = "case_studies"
	BlockTestimonials BlockKind = "testimonials"
)

// Block 是渲染顺序中的一项。
type Block struct {
	Kind         BlockKind
	Section      content.Section
	Cards        []content.ProblemCard
	Tech         []content.Tech
	Cases        []content.CaseStudy
	Testimonials []content.Testimonial
}

// Options 控制页面级参数。
type Options struct {
	Title          string
	PinnedDistance float64
	Completion     float64
}

type pageData struct {
	Title          string
	PinnedDistance float64
	Completion     float64
	Blocks         []Block
}

var funcMap = template.FuncMap{
	"icon": content.Render,
	"add":  func(a, b int) int { return a + b },
	"pad":  func(n int) string { return fmt.Sprintf("%02d", n) },
}

// Renderer 根据内容目录渲染单页。模板在构造时解析一次。
type Renderer struct {
	tmpl    *template.Template
	catalog *content.Catalog
	opts    Options
}

// NewRenderer 创建页面渲染器。
func NewRenderer(catalog *content.Catalog, opts Options) (*Renderer, error) {
	if catalog == nil {
		return nil, fmt.Errorf("content catalog 不能为空")
	}
	if opts.Title == "" {
		opts.Title = "GYST | Autonomous Systems"
	}
	if opts.PinnedDistance <= 0 {
		opts.PinnedDistance = narrative.DefaultPinnedDistance
	}
	if opts.Completion <= 0 {
		opts.Completion = narrative.DefaultCompletion
	}
	t, err := template.New("page").Funcs(funcMap).Parse(tmplBase + tmplBlocks + tmplScript)
	if err != nil {
		return nil, fmt.Errorf("解析页面模板失败: %w", err)
	}
	return &Renderer{tmpl: t, catalog: catalog, opts: opts}, nil
}

// Blocks 返回页面的渲染顺序：首屏之后插入技术栈，报价区块之前插入案例与评价。
func (r *Renderer) Blocks() []Block {
	sections := r.catalog.Sections()
	blocks := make([]Block, 0, len(sections)+3)
	for _, s := range sections {
		switch s.ID {
		case narrative.SectionHero:
			blocks = append(blocks,
				Block{Kind: BlockSection, Section: s},
				Block{Kind: BlockTechStack, Tech: r.catalog.TechStack()},
			)
		case narrative.SectionProblem:
			blocks = append(blocks, Block{Kind: BlockProblem, Section: s, Cards: r.catalog.ProblemCards()})
		case narrative.SectionOffer:
			blocks = append(blocks,
				Block{Kind: BlockCaseStudies, Cases: r.catalog.CaseStudies()},
				Block{Kind: BlockTestimonials, Testimonials: r.catalog.Testimonials()},
				Block{Kind: BlockSection, Section: s},
			)
		default:
			blocks = append(blocks, Block{Kind: BlockSection, Section: s})
		}
	}
	return blocks
}

// Render 将页面写入 w。先渲染到缓冲区，失败时不会输出半截页面。
func (r *Renderer) Render(w io.Writer) error {
	data := pageData{
		Title:          r.opts.Title,
		PinnedDistance: r.opts.PinnedDistance,
		Completion:     r.opts.Completion,
		Blocks:         r.Blocks(),
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("渲染页面失败: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
