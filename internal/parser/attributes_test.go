package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractExperienceYears(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		found    bool
	}{
		{"Profissional com 5 anos de experiência em TI", "5 anos de experiência", true},
		{"Atuo há mais de 10 anos com desenvolvimento", "10 anos de experiência", true},
		{"Experiência de 3 anos em suporte", "3 anos de experiência", true},
		{"8 years of experience with Go", "8 anos de experiência", true},
		{"Sem informação de tempo", "", false},
	}

	for _, tc := range testCases {
		years, ok := ExtractExperienceYears(tc.input)
		assert.Equal(t, tc.found, ok, "输入: %s", tc.input)
		assert.Equal(t, tc.expected, years, "输入: %s", tc.input)
	}
}

func TestExtractJobTitles(t *testing.T) {
	titles := ExtractJobTitles("Analista de Sistemas e Desenvolvedor Backend; ex-Gerente de projetos")
	assert.Equal(t, []string{"analista", "desenvolvedor", "gerente"}, SortedJobTitles(titles))
}

func TestExtractJobTitlesRequiresWholeWords(t *testing.T) {
	titles := ExtractJobTitles("subgerente de loja, equipe de desenvolvedores")
	assert.Empty(t, titles, "词内部的片段不应被识别为职位")
}

func TestExtractJobTitlesIsIdempotentAndOrderIndependent(t *testing.T) {
	a := "Engenheira de dados, Consultor SAP e Técnico em redes"
	b := "Técnico em redes, Consultor SAP e Engenheira de dados"

	first := ExtractJobTitles(a)
	assert.Equal(t, first, ExtractJobTitles(a), "重复调用结果应一致")
	assert.Equal(t, first, ExtractJobTitles(b), "词序不应影响结果")
	assert.Equal(t, []string{"consultor", "engenheira", "técnico"}, SortedJobTitles(first))
}

func TestMentionsEducation(t *testing.T) {
	assert.True(t, MentionsEducation("Graduação em Administração"))
	assert.True(t, MentionsEducation("MBA em Gestão de Projetos"))
	assert.False(t, MentionsEducation("Trabalho com Python há anos"))
}
