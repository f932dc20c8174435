package models

import "strings"

// 技能分类的关键词表。分类只影响统计展示，不参与评分。
var skillCategoryKeywords = map[string][]string{
	SkillCategoryLanguage: {
		"python", "java", "javascript", "typescript", "c++", "c#", "php",
		"ruby", "golang", "rust", "scala", "kotlin", "swift",
	},
	SkillCategoryFramework: {
		"react", "angular", "vue", "django", "flask", "spring", "laravel",
		"rails", "express", "fastapi", "hertz", "gin",
	},
	SkillCategoryDatabase: {
		"mysql", "postgresql", "postgres", "mongodb", "redis", "oracle",
		"sqlite", "cassandra", "dynamodb", "sql",
	},
	SkillCategoryTool: {
		"git", "docker", "kubernetes", "jenkins", "aws", "azure", "gcp",
		"linux", "nginx", "terraform", "ansible",
	},
	SkillCategoryMLAI: {
		"machine learning", "deep learning", "tensorflow", "pytorch",
		"scikit-learn", "pandas", "numpy", "nlp",
	},
}

// CategorizeSkill 判定技能所属类别，未命中任何关键词归入 other。
// 入参需已折叠小写。
func CategorizeSkill(name string) string {
	for _, category := range []string{
		SkillCategoryLanguage,
		SkillCategoryFramework,
		SkillCategoryDatabase,
		SkillCategoryTool,
		SkillCategoryMLAI,
	} {
		for _, keyword := range skillCategoryKeywords[category] {
			if name == keyword || strings.Contains(name, keyword+" ") || strings.Contains(name, " "+keyword) {
				return category
			}
		}
	}
	return SkillCategoryOther
}
