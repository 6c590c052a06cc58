package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// boundaryBefore 位置 i 之前是文本开头或非字母数字
func boundaryBefore(s string, i int) bool {
	if i <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

// boundaryAfter 位置 j 之后是文本结尾或非字母数字
func boundaryAfter(s string, j int) bool {
	if j >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[j:])
	return !isWordRune(r)
}

// ContainsWord 判断小写文本 s 中是否出现完整词 term
func ContainsWord(s, term string) bool {
	return containsTerm(s, term, true)
}

// ContainsPrefixWord 判断 s 中是否有以 term 开头的词，用于匹配词干
func ContainsPrefixWord(s, term string) bool {
	return containsTerm(s, term, false)
}

func containsTerm(s, term string, wholeWord bool) bool {
	if term == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(s[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if boundaryBefore(s, start) && (!wholeWord || boundaryAfter(s, end)) {
			return true
		}
		offset = start + 1
		// 跳到下一个合法的 rune 起点
		for offset < len(s) && !utf8.RuneStart(s[offset]) {
			offset++
		}
		if offset >= len(s) {
			return false
		}
	}
}
