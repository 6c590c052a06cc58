package parser

import (
	"strings"
	"unicode/utf8"

	"smart-resume-analyzer/internal/types"
)

// minSectionLength 章节片段去除首尾空白后须超过该长度
const minSectionLength = 20

// ExtractSections 在小写文本上按章节表查找章节片段
//
// 同一类型的所有模式独立尝试，命中的片段按发现顺序保留且不去重，
// 没有合格片段的类型不会出现在结果中。
func ExtractSections(text string) *types.SectionMap {
	sections := types.NewSectionMap()
	if strings.TrimSpace(text) == "" {
		return sections
	}

	lower := strings.ToLower(text)
	for _, sp := range sectionPatterns {
		for _, re := range sp.patterns {
			for _, match := range re.FindAllStringSubmatch(lower, -1) {
				span := strings.TrimSpace(match[1])
				if utf8.RuneCountInString(span) > minSectionLength {
					sections.Add(sp.kind, span)
				}
			}
		}
	}
	return sections
}
