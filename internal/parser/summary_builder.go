package parser

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"smart-resume-analyzer/internal/types"
)

const (
	// maxSectionPartLength 每个章节部分的最大字符数
	maxSectionPartLength = 200
	ellipsis             = "…"

	educationFlag = "Formação acadêmica mencionada"
	// GenericSummary 没有任何可用部分时的摘要
	GenericSummary = "Profissional com experiência e formação diversificadas."
)

var titleCaser = cases.Title(language.BrazilianPortuguese)

// BuildSummary 基于章节和属性生成结构化摘要，不会失败
//
// 各部分固定顺序：职位、年限、技能、证书、成就、学历标记。
func BuildSummary(text string) string {
	sections := ExtractSections(text)
	attrs := ExtractAttributes(text)

	var parts []string

	if titles := SortedJobTitles(attrs.JobTitles); len(titles) > 0 {
		for i, t := range titles {
			titles[i] = titleCaser.String(t)
		}
		parts = append(parts, "Profissional com atuação como "+strings.Join(titles, ", "))
	}
	if attrs.ExperienceYears != "" {
		parts = append(parts, attrs.ExperienceYears)
	}
	if sections.Has(types.SectionSkills) {
		parts = append(parts, "Competências: "+truncatePart(strings.Join(sections.Get(types.SectionSkills), " ")))
	}
	if sections.Has(types.SectionCertifications) {
		parts = append(parts, "Certificações: "+truncatePart(strings.Join(sections.Get(types.SectionCertifications), " ")))
	}
	if sections.Has(types.SectionAchievements) {
		parts = append(parts, "Conquistas: "+truncatePart(strings.Join(sections.Get(types.SectionAchievements), " ")))
	}
	if sections.Has(types.SectionEducation) || MentionsEducation(text) {
		parts = append(parts, educationFlag)
	}

	if len(parts) == 0 {
		return GenericSummary
	}
	for i, p := range parts {
		parts[i] = trimTrailingPeriod(CollapseSpaces(p))
	}
	return strings.Join(parts, ". ") + "."
}

func truncatePart(s string) string {
	s = CollapseSpaces(s)
	if utf8.RuneCountInString(s) <= maxSectionPartLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxSectionPartLength]) + ellipsis
}

// trimTrailingPeriod 去掉末尾句点以免与分隔符重复，省略号保留
func trimTrailingPeriod(s string) string {
	if strings.HasSuffix(s, ellipsis) {
		return s
	}
	return strings.TrimRight(s, ".")
}
