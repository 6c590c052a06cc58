package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"smart-resume-analyzer/internal/types"
)

// PlaceholderRetryMessage 模型原样输出提示词占位符时返回的理由
const PlaceholderRetryMessage = "Modelo retornou resposta genérica. Tente novamente."

// placeholderMarkers 提示词模板中的占位符片段
var placeholderMarkers = []string{
	"[justificativa",
	"[cite tecnologias",
	"[explique o que falta",
}

// answerPatterns 依次尝试，第一个命中的生效
var answerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)^(Sim|Não|Nao)\.?\s+(.+)`),
	regexp.MustCompile(`(?is)^(Sim|Não|Nao)[.:–-]\s*(.+)`),
	regexp.MustCompile(`(?is)^(Sim|Não|Nao)\s+(.+)`),
}

var leadingPunctuation = regexp.MustCompile(`^[.:–-]+\s*`)

// ParseModelOutput 把模型的自由文本解析为 (回答, 理由)
func ParseModelOutput(text string) (types.Answer, string) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return types.AnswerError, PlaceholderRetryMessage
		}
	}

	for _, re := range answerPatterns {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			return normalizeAnswer(m[1]), cleanJustification(m[2])
		}
	}

	// 宽松的前缀判断，要求前缀后不是字母（避免 "Simone" 之类）
	for _, prefix := range []string{"sim", "não", "nao"} {
		if strings.HasPrefix(lower, prefix) && boundaryAfter(lower, len(prefix)) {
			return normalizeAnswer(prefix), cleanJustification(trimmed[len(prefix):])
		}
	}

	return types.AnswerUnrecognized, trimmed
}

// FormatDecision 生成 "<回答>. <理由>" 形式的文本，是 ParseModelOutput 的逆操作
func FormatDecision(answer types.Answer, justification string) string {
	return string(answer) + ". " + strings.TrimSpace(justification)
}

func normalizeAnswer(word string) types.Answer {
	if strings.EqualFold(word, "sim") {
		return types.AnswerYes
	}
	return types.AnswerNo
}

func cleanJustification(raw string) string {
	j := CollapseSpaces(leadingPunctuation.ReplaceAllString(strings.TrimSpace(raw), ""))
	if utf8.RuneCountInString(j) < types.MinJustificationLength {
		return types.GenericJustification
	}
	return j
}
