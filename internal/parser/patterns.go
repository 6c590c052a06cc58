package parser

import (
	"regexp"
	"strings"

	"smart-resume-analyzer/internal/types"
)

// 章节终止条件：空行、下一个以大写字母开头的行，或文本结束
const sectionTerminator = `(?:\n[ \t]*\n|\n[A-ZÀ-ÖØ-Þ]|\z)`

// sectionHeadings 每种章节按顺序尝试的标题写法
var sectionHeadings = []struct {
	Kind     types.SectionKind
	Headings []string
}{
	{types.SectionExperience, []string{
		`experi[êe]ncia profissional`,
		`experi[êe]ncias? (?:de trabalho|anteriores)`,
		`hist[óo]rico profissional`,
		`(?:professional|work) experience`,
	}},
	{types.SectionEducation, []string{
		`forma[çc][ãa]o acad[êe]mica`,
		`forma[çc][ãa]o`,
		`escolaridade`,
		`education`,
	}},
	{types.SectionSkills, []string{
		`habilidades`,
		`compet[êe]ncias`,
		`conhecimentos t[ée]cnicos`,
		`skills`,
	}},
	{types.SectionCertifications, []string{
		`certifica[çc][õo]es`,
		`certificados`,
		`cursos e certifica[çc][õo]es`,
		`certifications`,
	}},
	{types.SectionAchievements, []string{
		`conquistas`,
		`realiza[çc][õo]es`,
		`pr[êe]mios`,
		`achievements`,
	}},
}

type sectionPattern struct {
	kind     types.SectionKind
	patterns []*regexp.Regexp
}

// sectionPatterns 编译后的章节表，顺序与 sectionHeadings 一致
var sectionPatterns = compileSectionPatterns()

func compileSectionPatterns() []sectionPattern {
	out := make([]sectionPattern, 0, len(sectionHeadings))
	for _, entry := range sectionHeadings {
		sp := sectionPattern{kind: entry.Kind}
		for _, h := range entry.Headings {
			// 标题前须为行首或非字母数字，如 "informação" 不算 "formação"。
			// 标题大小写不敏感，正文非贪婪且跨行，第1个分组为片段
			sp.patterns = append(sp.patterns, regexp.MustCompile(
				`(?:(?m:^)|[^\p{L}\p{N}])((?i:`+h+`)(?s:.*?)`+sectionTerminator+`)`))
		}
		out = append(out, sp)
	}
	return out
}

// experienceYearsPatterns 工作年限，第一个命中的生效
var experienceYearsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{1,2})\s*\+?\s*anos?\s+de\s+experi[êe]ncia`),
	regexp.MustCompile(`(?i)mais\s+de\s+(\d{1,2})\s+anos?`),
	regexp.MustCompile(`(?i)experi[êe]ncia\s+de\s+(\d{1,2})\s+anos?`),
	regexp.MustCompile(`(?i)(\d{1,2})\s*\+?\s*years?\s+of\s+experience`),
	regexp.MustCompile(`(?i)over\s+(\d{1,2})\s+years?`),
}

// jobTitleStems 职位名词表，可选地后接 "de <短语>"
var jobTitleStems = []string{
	`analista`,
	`desenvolvedora?`,
	`engenheir[oa]`,
	`gerente`,
	`coordenadora?`,
	`programadora?`,
	`arquitet[oa]`,
	`consultora?`,
	`t[ée]cnic[oa]`,
	`especialista`,
	`assistente`,
	`estagi[áa]ri[oa]`,
	`diretora?`,
	`supervisora?`,
	`analyst`,
	`developer`,
	`engineer`,
	`manager`,
}

// 词边界在 matchWholeWords 中检查，RE2 的 \b 只认 ASCII
var jobTitlePattern = regexp.MustCompile(`(?i)(` + strings.Join(jobTitleStems, "|") + `)(?:\s+de\s+\p{L}+)?`)

// educationKeywords 出现在任意位置即视为提及学历
var educationKeywords = []string{
	"graduação",
	"graduacao",
	"bacharel",
	"licenciatura",
	"mestrado",
	"doutorado",
	"pós-graduação",
	"universidade",
	"faculdade",
	"tecnólogo",
	"mba",
	"bachelor",
	"master",
	"university",
}

// Keyword 关键词与规范名称
type Keyword struct {
	Term      string
	Canonical string
}

// TechnologyKeywords 技术关键词表，按此顺序输出
var TechnologyKeywords = []Keyword{
	{"python", "Python"},
	{"javascript", "JavaScript"},
	{"js", "JavaScript"},
	{"fastapi", "FastAPI"},
	{"postgresql", "PostgreSQL"},
	{"postgres", "PostgreSQL"},
	{"mysql", "MySQL"},
	{"oracle", "Oracle"},
	{"selenium", "Selenium"},
	{"matplotlib", "Matplotlib"},
	{"whisper", "Whisper"},
	{"openai", "OpenAI"},
	{"api openal", "OpenAI"},
	{"n8n", "N8N"},
	{"django", "Django"},
	{"flask", "Flask"},
	{"react", "React"},
	{"node", "Node.js"},
	{"mongodb", "MongoDB"},
	{"redis", "Redis"},
	{"docker", "Docker"},
	{"kubernetes", "Kubernetes"},
	{"git", "Git"},
	{"aws", "AWS"},
	{"azure", "Azure"},
	{"gcp", "Google Cloud"},
}

// RoleKeywords 角色关键词表
var RoleKeywords = []Keyword{
	{"desenvolvedor", "desenvolvedor"},
	{"developer", "desenvolvedor"},
	{"programador", "programador"},
	{"analista", "analista"},
	{"engenheiro", "engenheiro de software"},
	{"tech lead", "tech lead"},
	{"arquiteto", "arquiteto de software"},
	{"full stack", "desenvolvedor full stack"},
	{"backend", "desenvolvedor backend"},
	{"frontend", "desenvolvedor frontend"},
}

// DevelopmentQueryTerms 判定问题是否关于软件开发
var DevelopmentQueryTerms = []string{
	"desenvolvedor",
	"developer",
	"software",
	"programação",
	"backend",
	"frontend",
	"programador",
}
