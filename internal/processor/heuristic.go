package processor

import (
	"fmt"
	"strings"

	"smart-resume-analyzer/internal/parser"
	"smart-resume-analyzer/internal/types"
)

// maxCitedTechnologies 理由中最多列出的技术数
const maxCitedTechnologies = 5

const (
	noDevelopmentExperience = "O currículo não apresenta experiências específicas em desenvolvimento de software ou tecnologias relacionadas."
	noCompetenciesFound     = "Não foram identificadas competências específicas no currículo para atender à pergunta."
)

// Analyze 基于关键词表对简历和问题做规则判断
//
// 理由中列出技术清单时结论视为可靠（Confident），引擎不再调用模型。
func Analyze(resumeText, query string) types.HeuristicResult {
	resume := strings.ToLower(resumeText)
	q := strings.ToLower(query)

	techs := matchKeywords(resume, parser.TechnologyKeywords, parser.ContainsWord)
	roles := matchKeywords(resume, parser.RoleKeywords, parser.ContainsPrefixWord)
	cited := techs
	if len(cited) > maxCitedTechnologies {
		cited = cited[:maxCitedTechnologies]
	}

	result := types.HeuristicResult{Technologies: techs, Roles: roles}

	if isDevelopmentQuery(q) {
		switch {
		case len(techs) > 0 && len(roles) > 0:
			result.Decision = types.NewDecision(types.AnswerYes,
				fmt.Sprintf("O candidato possui experiência como %s e domina as seguintes tecnologias: %s.",
					strings.Join(roles, ", "), strings.Join(cited, ", ")),
				types.SourceHeuristic)
			result.Confident = true
		case len(techs) > 0:
			result.Decision = types.NewDecision(types.AnswerYes,
				fmt.Sprintf("O candidato possui conhecimento técnico em: %s.", strings.Join(cited, ", ")),
				types.SourceHeuristic)
		case len(roles) > 0:
			result.Decision = types.NewDecision(types.AnswerYes,
				fmt.Sprintf("O candidato possui experiência como %s.", strings.Join(roles, ", ")),
				types.SourceHeuristic)
		default:
			result.Decision = types.NewDecision(types.AnswerNo, noDevelopmentExperience, types.SourceHeuristic)
		}
		return result
	}

	if len(techs) == 0 && len(roles) == 0 {
		result.Decision = types.NewDecision(types.AnswerNo, noCompetenciesFound, types.SourceHeuristic)
		return result
	}

	var found []string
	if len(techs) > 0 {
		found = append(found, "tecnologias: "+strings.Join(cited, ", "))
		result.Confident = true
	}
	if len(roles) > 0 {
		found = append(found, "experiência como: "+strings.Join(roles, ", "))
	}
	result.Decision = types.NewDecision(types.AnswerYes,
		"O candidato possui "+strings.Join(found, " e ")+".",
		types.SourceHeuristic)
	return result
}

func isDevelopmentQuery(query string) bool {
	for _, term := range parser.DevelopmentQueryTerms {
		if parser.ContainsPrefixWord(query, term) {
			return true
		}
	}
	return false
}

// matchKeywords 按表顺序返回命中的规范名称，重复的规范名称只保留一次
func matchKeywords(text string, table []parser.Keyword, contains func(s, term string) bool) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, kw := range table {
		if _, ok := seen[kw.Canonical]; ok {
			continue
		}
		if contains(text, kw.Term) {
			seen[kw.Canonical] = struct{}{}
			out = append(out, kw.Canonical)
		}
	}
	return out
}
