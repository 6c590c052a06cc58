package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSummary(t *testing.T) {
	text := "Maria Souza\n" +
		"Desenvolvedora com 6 anos de experiência\n" +
		"Habilidades: Python, Django, PostgreSQL e Docker\n\n" +
		"Certificações: AWS Cloud Practitioner\n\n" +
		"Graduação em Sistemas de Informação"

	expected := "Profissional com atuação como Desenvolvedora. " +
		"6 anos de experiência. " +
		"Competências: habilidades: python, django, postgresql e docker. " +
		"Certificações: certificações: aws cloud practitioner. " +
		"Formação acadêmica mencionada."

	assert.Equal(t, expected, BuildSummary(text))
}

func TestBuildSummaryGenericFallback(t *testing.T) {
	assert.Equal(t, GenericSummary, BuildSummary("texto qualquer sem nada relevante aqui"))
	assert.Equal(t, GenericSummary, BuildSummary(""))
}

func TestBuildSummaryTruncatesLongSections(t *testing.T) {
	text := "Habilidades: " + strings.Repeat("python docker ", 40)
	summary := BuildSummary(text)

	assert.True(t, strings.HasPrefix(summary, "Competências: habilidades: python docker"))
	assert.True(t, strings.HasSuffix(summary, "…."), "截断的部分应保留省略号再加句点: %q", summary)
	// 前缀 + 200 字符 + 省略号 + 句点
	assert.Equal(t, len([]rune("Competências: "))+200+1+1, len([]rune(summary)))
}

func TestBuildSummaryIgnoresHeadingInsideWord(t *testing.T) {
	summary := BuildSummary("Analista com atuação em Sistemas de Informação e dados")
	assert.NotContains(t, summary, educationFlag)
}

func TestBuildSummaryEducationFlagOnly(t *testing.T) {
	assert.Equal(t, "Formação acadêmica mencionada.", BuildSummary("Concluí o mestrado no ano passado"))
}
