package models

import (
	"talent-match-go/internal/types"
)

// ToEntityProfile 把候选人数据库记录还原为结构化档案。
// JSON字段解析失败时对应属性为空，不中断转换。
func (r *CandidateRecord) ToEntityProfile() *types.EntityProfile {
	education, _ := JSONToStringSlice(r.EducationJSON)
	languages, _ := JSONToStringSlice(r.LanguagesJSON)
	certs, _ := JSONToStringSlice(r.CertsJSON)

	return &types.EntityProfile{
		Identifier:      r.CandidateID,
		Kind:            types.KindCandidateProfile,
		Skills:          skillNames(r.Skills),
		ExperienceYears: r.ExperienceYears,
		Education:       education,
		Certifications:  certs,
		Languages:       languages,
	}
}

// ToEntityProfile 把需求数据库记录还原为结构化档案
func (r *RequirementRecord) ToEntityProfile() *types.EntityProfile {
	topics, _ := JSONToStringSlice(r.TopicsJSON)
	prerequisites, _ := JSONToStringSlice(r.PrerequisitesJSON)

	return &types.EntityProfile{
		Identifier:    r.RequirementID,
		Kind:          types.KindRequirementProfile,
		Skills:        skillNames(r.Skills),
		Topics:        topics,
		Prerequisites: prerequisites,
	}
}

func skillNames(skills []*SkillRecord) []string {
	if len(skills) == 0 {
		return nil
	}
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		if s != nil && s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}
