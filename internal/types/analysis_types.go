package types

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Answer 决策结果
type Answer string

const (
	AnswerYes          Answer = "Sim"
	AnswerNo           Answer = "Não"
	AnswerUnrecognized Answer = "Não identificado"
	// AnswerError 仅由模型输出解析器产生，表示模型泄露了提示词占位符
	AnswerError Answer = "Erro"
)

// IsDefinitive 是否为明确的是/否结论
func (a Answer) IsDefinitive() bool {
	return a == AnswerYes || a == AnswerNo
}

// Source 决策来源
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceModel     Source = "model"
	SourceFallback  Source = "fallback"
)

const (
	// MinJustificationLength 理由的最小长度，短于此值将替换为通用理由
	MinJustificationLength = 15
	// GenericJustification 通用理由
	GenericJustification = "Análise baseada no conteúdo do currículo fornecido."
)

// Decision 对一份简历和一个问题的最终判断
type Decision struct {
	Answer        Answer `json:"answer"`
	Justification string `json:"justification"`
	Source        Source `json:"source"`
}

// NewDecision 构造决策，保证理由非空且不短于 MinJustificationLength
func NewDecision(answer Answer, justification string, source Source) Decision {
	justification = strings.TrimSpace(justification)
	if utf8.RuneCountInString(justification) < MinJustificationLength {
		justification = GenericJustification
	}
	return Decision{Answer: answer, Justification: justification, Source: source}
}

// SectionKind 简历章节类型
type SectionKind string

const (
	SectionExperience     SectionKind = "experience"
	SectionEducation      SectionKind = "education"
	SectionSkills         SectionKind = "skills"
	SectionCertifications SectionKind = "certifications"
	SectionAchievements   SectionKind = "achievements"
)

// SectionMap 有序的章节映射，遍历顺序即发现顺序
type SectionMap struct {
	order []SectionKind
	spans map[SectionKind][]string
}

// NewSectionMap 创建空的章节映射
func NewSectionMap() *SectionMap {
	return &SectionMap{spans: make(map[SectionKind][]string)}
}

// Add 追加一个章节片段
func (m *SectionMap) Add(kind SectionKind, span string) {
	if _, ok := m.spans[kind]; !ok {
		m.order = append(m.order, kind)
	}
	m.spans[kind] = append(m.spans[kind], span)
}

// Has 章节是否存在
func (m *SectionMap) Has(kind SectionKind) bool {
	if m == nil {
		return false
	}
	return len(m.spans[kind]) > 0
}

// Get 返回章节的全部片段
func (m *SectionMap) Get(kind SectionKind) []string {
	if m == nil {
		return nil
	}
	return m.spans[kind]
}

// Kinds 按发现顺序返回已存在的章节类型
func (m *SectionMap) Kinds() []SectionKind {
	if m == nil {
		return nil
	}
	out := make([]SectionKind, len(m.order))
	copy(out, m.order)
	return out
}

// Len 已存在的章节数
func (m *SectionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// ExtractedAttributes 从简历中抽取的属性
type ExtractedAttributes struct {
	ExperienceYears string              // 为空表示未找到
	JobTitles       map[string]struct{} // 小写的职位词干
}

// HeuristicResult 规则分析的结果
type HeuristicResult struct {
	Decision     Decision
	Confident    bool // 规则结论足够可靠，无需调用模型
	Technologies []string
	Roles        []string
}

// FileResult 单个文件的分析结果，二选一：仅摘要，或回答+理由+摘要
type FileResult struct {
	Summary       string `json:"summary,omitempty"`
	Answer        Answer `json:"answer,omitempty"`
	Justification string `json:"justification,omitempty"`
	ResumeSummary string `json:"resume_summary,omitempty"`
}

// AnalysisLog 一次分析请求的审计记录
type AnalysisLog struct {
	RequestID string                `json:"request_id"`
	UserID    string                `json:"user_id"`
	Timestamp time.Time             `json:"timestamp"`
	Query     string                `json:"query,omitempty"`
	Resultado map[string]FileResult `json:"resultado"`
}

// IndexedDecision 批量回答中带索引的单条结果
type IndexedDecision struct {
	ResumeIndex int `json:"resume_index"`
	Decision
}
