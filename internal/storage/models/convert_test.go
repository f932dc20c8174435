package models

import (
	"testing"

	"talent-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateRecordToEntityProfile(t *testing.T) {
	education, err := StringSliceToJSON([]string{"ingeniería en sistemas", "máster en ciencia de datos"})
	require.NoError(t, err)
	languages, err := StringSliceToJSON([]string{"español", "inglés"})
	require.NoError(t, err)

	record := &CandidateRecord{
		CandidateID:     "cand-001",
		DisplayName:     "Ana García",
		ExperienceYears: 5,
		EducationJSON:   education,
		LanguagesJSON:   languages,
		Skills: []*SkillRecord{
			{SkillID: 1, Name: "python"},
			{SkillID: 2, Name: "django"},
		},
	}

	profile := record.ToEntityProfile()
	assert.Equal(t, "cand-001", profile.Identifier)
	assert.Equal(t, types.KindCandidateProfile, profile.Kind)
	assert.Equal(t, []string{"python", "django"}, profile.Skills)
	assert.Equal(t, 5, profile.ExperienceYears)
	assert.Equal(t, []string{"ingeniería en sistemas", "máster en ciencia de datos"}, profile.Education)
	assert.Equal(t, []string{"español", "inglés"}, profile.Languages)
	assert.Empty(t, profile.Certifications)
}

func TestCandidateRecordToEntityProfile_EmptyJSON(t *testing.T) {
	record := &CandidateRecord{CandidateID: "cand-002"}

	profile := record.ToEntityProfile()
	assert.Equal(t, "cand-002", profile.Identifier)
	assert.Empty(t, profile.Skills)
	assert.Empty(t, profile.Education)
	// 0 表示未知经验年限
	assert.Equal(t, 0, profile.ExperienceYears)
}

func TestRequirementRecordToEntityProfile(t *testing.T) {
	topics, err := StringSliceToJSON([]string{"desarrollo backend"})
	require.NoError(t, err)
	prerequisites, err := StringSliceToJSON([]string{"experiencia con apis rest"})
	require.NoError(t, err)

	record := &RequirementRecord{
		RequirementID:     "req-001",
		Title:             "Backend Developer",
		TopicsJSON:        topics,
		PrerequisitesJSON: prerequisites,
		Skills: []*SkillRecord{
			{SkillID: 3, Name: "go"},
		},
	}

	profile := record.ToEntityProfile()
	assert.Equal(t, "req-001", profile.Identifier)
	assert.Equal(t, types.KindRequirementProfile, profile.Kind)
	assert.Equal(t, []string{"go"}, profile.Skills)
	assert.Equal(t, []string{"desarrollo backend"}, profile.Topics)
	assert.Equal(t, []string{"experiencia con apis rest"}, profile.Prerequisites)
}

func TestSkillNames_SkipsNilAndEmpty(t *testing.T) {
	record := &CandidateRecord{
		CandidateID: "cand-003",
		Skills: []*SkillRecord{
			nil,
			{SkillID: 1, Name: ""},
			{SkillID: 2, Name: "sql"},
		},
	}
	assert.Equal(t, []string{"sql"}, record.ToEntityProfile().Skills)
}
