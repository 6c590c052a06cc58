package llm

import "fmt"

// summaryInstruction 聊天模型不支持长度约束解码，用指令限定摘要长度
const summaryInstruction = `Resuma o currículo abaixo em português, em um único parágrafo, usando entre %d e %d palavras. ` +
	`Cite apenas informações presentes no texto.

Texto:
%s

Resumo:`

func buildSummaryPrompt(text string, minLen, maxLen int) string {
	return fmt.Sprintf(summaryInstruction, minLen, maxLen, text)
}

// maxTokensFor 以词数估算输出 token 上限
func maxTokensFor(maxLen int) int {
	if maxLen <= 0 {
		return 256
	}
	return maxLen * 2
}
