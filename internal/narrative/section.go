package narrative

// SectionID 是页面区块的标识，取值为封闭集合。
type SectionID string

const (
	SectionHero         SectionID = "hero"
	SectionProblem      SectionID = "problem"
	SectionTechStack    SectionID = "tech_stack"
	SectionWhy          SectionID = "why"
	SectionIntent       SectionID = "intent"
	SectionDiagnosis    SectionID = "diagnosis"
	SectionMemory       SectionID = "memory"
	SectionPlanning     SectionID = "planning"
	SectionExecution    SectionID = "execution"
	SectionVerification SectionID = "verification"
	SectionCTA          SectionID = "cta"
	SectionIteration    SectionID = "iteration"
	SectionOffer        SectionID = "offer"
	SectionFinal        SectionID = "final"
)

var sectionOrder = []SectionID{
	SectionHero,
	SectionProblem,
	SectionTechStack,
	SectionWhy,
	SectionIntent,
	SectionDiagnosis,
	SectionMemory,
	SectionPlanning,
	SectionExecution,
	SectionVerification,
	SectionCTA,
	SectionIteration,
	SectionOffer,
	SectionFinal,
}

// Sections 按声明顺序返回全部区块标识。
func Sections() []SectionID {
	out := make([]SectionID, len(sectionOrder))
	copy(out, sectionOrder)
	return out
}

// Valid 判断标识是否属于已知区块。
func (id SectionID) Valid() bool {
	for _, known := range sectionOrder {
		if id == known {
			return true
		}
	}
	return false
}

// ParseSectionID 将字符串解析为区块标识。
func ParseSectionID(raw string) (SectionID, bool) {
	id := SectionID(raw)
	if !id.Valid() {
		return "", false
	}
	return id, true
}

func (id SectionID) String() string { return string(id) }
