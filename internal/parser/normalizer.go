package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// 允许的字符：拉丁字母（含葡语重音）、数字、空白和常用标点
var disallowedChars = regexp.MustCompile(`[^\p{Latin}0-9\s.,;:!?()\[\]/\\\-_+&%#@'"*]`)

var inlineSpaces = regexp.MustCompile(`\s+`)

// minLineLength 清洗后长度不超过该值的行会被丢弃
const minLineLength = 3

// NormalizeLines 清洗文本并返回保留下来的行
func NormalizeLines(text string) []string {
	if text == "" {
		return nil
	}
	rawLines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		line = disallowedChars.ReplaceAllString(line, "")
		line = strings.TrimSpace(inlineSpaces.ReplaceAllString(line, " "))
		if utf8.RuneCountInString(line) <= minLineLength {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Normalize 清洗文本，保留的行以单个空格拼接
func Normalize(text string) string {
	return strings.Join(NormalizeLines(text), " ")
}

// CollapseSpaces 将任意空白序列折叠为单个空格并去除首尾空白
func CollapseSpaces(text string) string {
	return strings.TrimSpace(inlineSpaces.ReplaceAllString(text, " "))
}
