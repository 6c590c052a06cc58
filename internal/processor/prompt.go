package processor

import "fmt"

// DefaultAnswerPromptTemplate 回答模板，依次填入简历和问题
const DefaultAnswerPromptTemplate = `Analise o currículo abaixo e responda se o candidato se enquadra para a pergunta feita.

Currículo:
%s

Pergunta: %s

Responda APENAS com "Sim" ou "Não" seguido de uma justificativa específica baseada no currículo.

Formato obrigatório:
Sim. [cite tecnologias, experiências e competências específicas do currículo]
ou
Não. [explique o que falta no currículo para atender a pergunta]

Resposta:`

// BuildAnswerPrompt 用模板生成提示词
func BuildAnswerPrompt(template, resumeText, query string) string {
	if template == "" {
		template = DefaultAnswerPromptTemplate
	}
	return fmt.Sprintf(template, resumeText, query)
}
