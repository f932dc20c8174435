package textproc

import (
	"context"
	"testing"

	"talent-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractExperienceYears_ExplicitStatement(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"Cuento con 5 años de experiencia en backend", 5},
		{"Experiencia de 10 años en desarrollo web", 10},
		{"3 años en administración de sistemas", 3},
		{"I have 7 years of experience building APIs", 7},
		{"Experience: 4 years", 4},
		// 多处表述取最大值
		{"2 años de experiencia en QA y 6 años de experiencia en desarrollo", 6},
		// 不合理的年限钳制到上限
		{"99 años de experiencia", 50},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractExperienceYears(tc.text), "text=%q", tc.text)
	}
}

func TestExtractExperienceYears_YearSpanFallback(t *testing.T) {
	// 无显式表述时用最早与最晚年份的跨度推断
	assert.Equal(t, 5, ExtractExperienceYears("Desarrollador en Acme (2015 - 2020)"))
	assert.Equal(t, 8, ExtractExperienceYears("2014: practicante\n2019: senior\n2022: líder técnico"))

	// 单个年份不构成跨度
	assert.Equal(t, 0, ExtractExperienceYears("Egresado en 2020"))
	// 完全没有线索时返回 0（未知）
	assert.Equal(t, 0, ExtractExperienceYears("Desarrollador de software"))
	assert.Equal(t, 0, ExtractExperienceYears(""))
}

func TestExtractEducationLines(t *testing.T) {
	text := "Juan Pérez\n" +
		"Ingeniería de Sistemas, Universidad Nacional\n" +
		"Desarrollador backend\n" +
		"Maestría en Ciencia de Datos\n" +
		"Bachiller en Computación"

	got := ExtractEducationLines(text)

	// 保持文档顺序
	require.Len(t, got, 3)
	assert.Equal(t, "Ingeniería de Sistemas, Universidad Nacional", got[0])
	assert.Equal(t, "Maestría en Ciencia de Datos", got[1])
	assert.Equal(t, "Bachiller en Computación", got[2])
}

func TestExtractEducationLines_Cap(t *testing.T) {
	text := "Doctorado A\nDoctorado B\nDoctorado C\nDoctorado D\nDoctorado E\nDoctorado F\nDoctorado G"

	got := ExtractEducationLines(text)
	assert.Len(t, got, 5)
	assert.Equal(t, "Doctorado A", got[0])
}

func TestExtractLanguages(t *testing.T) {
	got := ExtractLanguages("Idiomas: Español nativo, Inglés avanzado, Quechua básico")
	assert.Equal(t, []string{"español", "inglés", "quechua"}, got)

	assert.Empty(t, ExtractLanguages("Desarrollador de software"))
}

func TestExtractCertifications(t *testing.T) {
	got := ExtractCertifications("Certificaciones: AWS Certified Developer, Scrum Master (2022), CCNA")
	assert.Equal(t, []string{"aws certified", "ccna", "scrum master"}, got)
}

func TestExtractTopics(t *testing.T) {
	text := "Sílabo del curso\n" +
		"Unidad 1:\n" +
		"Introducción a la programación\n" +
		"Unidad 2:\n" +
		"Estructuras de datos\n" +
		"Evaluación final"

	got := ExtractTopics(text)
	assert.Equal(t, []string{"Introducción a la programación", "Estructuras de datos"}, got)
}

func TestExtractTopics_SameLineContent(t *testing.T) {
	// 标题行冒号后直接给出内容
	got := ExtractTopics("Temas: álgebra lineal")
	assert.Equal(t, []string{"álgebra lineal"}, got)

	// 同一文档里两种写法混用
	got = ExtractTopics("Unidad 1: Introducción a redes\nTema 2:\nProtocolos de transporte")
	assert.Equal(t, []string{"Introducción a redes", "Protocolos de transporte"}, got)
}

func TestExtractPrerequisites(t *testing.T) {
	// 冒号后直接给出内容
	got := ExtractPrerequisites("Requisitos: conocimientos de álgebra lineal")
	assert.Equal(t, []string{"conocimientos de álgebra lineal"}, got)

	// 冒号后为空时取下一行
	got = ExtractPrerequisites("Prerrequisitos:\nProgramación básica")
	assert.Equal(t, []string{"Programación básica"}, got)

	assert.Empty(t, ExtractPrerequisites("Contenido del curso"))
}

func TestAttributeExtractor_DegradedFallback(t *testing.T) {
	extractor := NewAttributeExtractor(nil)
	assert.True(t, extractor.Degraded())

	text := "Desarrollador Python con experiencia en Django, AWS y Docker.\n" +
		"Manejo de PostgreSQL y metodología Scrum."

	profile := extractor.ExtractCandidateProfile(context.Background(), "cv-77", text)
	require.NotNil(t, profile)
	assert.Equal(t, "cv-77", profile.Identifier)
	assert.Equal(t, types.KindCandidateProfile, profile.Kind)

	// 封闭词表保底抽取，结果仍经过规则链过滤
	assert.Contains(t, profile.Skills, "python")
	assert.Contains(t, profile.Skills, "django")
	assert.Contains(t, profile.Skills, "aws")
	assert.Contains(t, profile.Skills, "docker")
	assert.Contains(t, profile.Skills, "postgresql")
	assert.Contains(t, profile.Skills, "scrum")
	// "django" 里的子串 "go" 被长度规则拦下
	assert.NotContains(t, profile.Skills, "go")
}

func TestAttributeExtractor_EmptyText(t *testing.T) {
	extractor := NewAttributeExtractor(nil)

	// 空文本产出空值档案而不是错误
	profile := extractor.ExtractCandidateProfile(context.Background(), "cv-0", "   ")
	assert.Equal(t, "cv-0", profile.Identifier)
	assert.Empty(t, profile.Skills)
	assert.Zero(t, profile.ExperienceYears)
	assert.Empty(t, profile.Education)
}

func TestAttributeExtractor_CandidateProfile(t *testing.T) {
	model := &stubLanguageModel{
		entities: []EntitySpan{
			{Text: "Python", Label: LabelMisc},
			{Text: "Django", Label: LabelProduct},
		},
	}
	extractor := NewAttributeExtractor(model)
	assert.False(t, extractor.Degraded())

	text := "Juan Pérez\n" +
		"Ingeniería de Software, Universidad Nacional\n" +
		"6 años de experiencia en desarrollo backend\n" +
		"Idiomas: inglés y español"

	profile := extractor.ExtractCandidateProfile(context.Background(), "cv-42", text)

	assert.Contains(t, profile.Skills, "python")
	assert.Contains(t, profile.Skills, "django")
	assert.Equal(t, 6, profile.ExperienceYears)
	assert.Equal(t, []string{"Ingeniería de Software, Universidad Nacional"}, profile.Education)
	assert.Equal(t, []string{"español", "inglés"}, profile.Languages)
}

func TestAttributeExtractor_RequirementProfile(t *testing.T) {
	extractor := NewAttributeExtractor(&stubLanguageModel{})

	text := "Curso de Bases de Datos\n" +
		"Requisitos: programación básica\n" +
		"Unidad 1:\n" +
		"Modelo relacional y SQL"

	profile := extractor.ExtractRequirementProfile(context.Background(), "req-9", text)

	assert.Equal(t, "req-9", profile.Identifier)
	assert.Equal(t, types.KindRequirementProfile, profile.Kind)
	assert.Equal(t, []string{"Modelo relacional y SQL"}, profile.Topics)
	assert.Equal(t, []string{"programación básica"}, profile.Prerequisites)
}
