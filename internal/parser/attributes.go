package parser

import (
	"fmt"
	"sort"
	"strings"

	"smart-resume-analyzer/internal/types"
)

// ExtractExperienceYears 提取工作年限，格式为 "<N> anos de experiência"
func ExtractExperienceYears(text string) (string, bool) {
	for _, re := range experienceYearsPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return fmt.Sprintf("%s anos de experiência", m[1]), true
		}
	}
	return "", false
}

// ExtractJobTitles 提取职位词干集合（小写、去重）
func ExtractJobTitles(text string) map[string]struct{} {
	titles := make(map[string]struct{})
	lower := strings.ToLower(text)
	for _, loc := range jobTitlePattern.FindAllStringSubmatchIndex(lower, -1) {
		start, end := loc[2], loc[3]
		if !boundaryBefore(lower, start) || !boundaryAfter(lower, end) {
			continue
		}
		titles[lower[start:end]] = struct{}{}
	}
	return titles
}

// SortedJobTitles 按字母序返回职位集合，便于稳定输出
func SortedJobTitles(titles map[string]struct{}) []string {
	out := make([]string, 0, len(titles))
	for t := range titles {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ExtractAttributes 同时提取年限与职位
func ExtractAttributes(text string) types.ExtractedAttributes {
	years, _ := ExtractExperienceYears(text)
	return types.ExtractedAttributes{
		ExperienceYears: years,
		JobTitles:       ExtractJobTitles(text),
	}
}

// MentionsEducation 文本中是否出现学历关键词
func MentionsEducation(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range educationKeywords {
		if ContainsWord(lower, kw) {
			return true
		}
	}
	return false
}
