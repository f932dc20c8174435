package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CandidateRecord 候选人档案主表
type CandidateRecord struct {
	CandidateID     string         `gorm:"type:varchar(64);primaryKey"`
	DisplayName     string         `gorm:"type:varchar(255)"`
	ExperienceYears int            `gorm:"type:int;default:0;index:idx_candidates_experience_years"` // 0 表示未知
	EducationJSON   datatypes.JSON `gorm:"type:json"`                                                // 学历行列表
	LanguagesJSON   datatypes.JSON `gorm:"type:json"`                                                // 语言列表
	CertsJSON       datatypes.JSON `gorm:"type:json"`                                                // 证书列表
	RawTextMD5      string         `gorm:"type:char(32);index:idx_candidates_raw_text_md5"`
	OriginalPathOSS string         `gorm:"type:varchar(1024)"` // 原始文档对象存储路径
	ParsedTextPath  string         `gorm:"type:varchar(1024)"` // 解析文本对象存储路径
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Skills []*SkillRecord `gorm:"many2many:candidate_skills;foreignKey:CandidateID;joinForeignKey:CandidateID;references:SkillID;joinReferences:SkillID"`
}

func (CandidateRecord) TableName() string {
	return "candidates"
}

// RequirementRecord 需求档案主表（岗位/课程要求）
type RequirementRecord struct {
	RequirementID     string         `gorm:"type:varchar(64);primaryKey"`
	Title             string         `gorm:"type:varchar(255)"`
	TopicsJSON        datatypes.JSON `gorm:"type:json"` // 主题列表
	PrerequisitesJSON datatypes.JSON `gorm:"type:json"` // 先修要求列表
	RawTextMD5        string         `gorm:"type:char(32);index:idx_requirements_raw_text_md5"`
	OriginalPathOSS   string         `gorm:"type:varchar(1024)"`
	ParsedTextPath    string         `gorm:"type:varchar(1024)"`
	CreatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Skills []*SkillRecord `gorm:"many2many:requirement_skills;foreignKey:RequirementID;joinForeignKey:RequirementID;references:SkillID;joinReferences:SkillID"`
}

func (RequirementRecord) TableName() string {
	return "requirements"
}

// SkillRecord 技能词表。技能名全局唯一，跨文档去重由唯一约束保证。
type SkillRecord struct {
	SkillID   uint64    `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex:uq_skills_name"` // 已折叠小写
	Category  string    `gorm:"type:varchar(50);not null;default:'other';index:idx_skills_category"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (SkillRecord) TableName() string {
	return "skills"
}

// 技能类别取值
const (
	SkillCategoryLanguage  = "language"
	SkillCategoryFramework = "framework"
	SkillCategoryDatabase  = "database"
	SkillCategoryTool      = "tool"
	SkillCategoryMLAI      = "ml_ai"
	SkillCategoryOther     = "other"
)

// CandidateSkill 候选人-技能关联表
type CandidateSkill struct {
	CandidateID string `gorm:"type:varchar(64);primaryKey"`
	SkillID     uint64 `gorm:"primaryKey"`
}

func (CandidateSkill) TableName() string {
	return "candidate_skills"
}

// RequirementSkill 需求-技能关联表
type RequirementSkill struct {
	RequirementID string `gorm:"type:varchar(64);primaryKey"`
	SkillID       uint64 `gorm:"primaryKey"`
}

func (RequirementSkill) TableName() string {
	return "requirement_skills"
}

// MatchResult 匹配历史表。一次推荐请求产生一批同 SessionID 的记录。
type MatchResult struct {
	MatchID         uint64         `gorm:"primaryKey;autoIncrement"`
	SessionID       string         `gorm:"type:char(36);not null;index:idx_match_results_session_id"`
	RequirementID   string         `gorm:"type:varchar(64);not null;index:idx_match_results_requirement_id"`
	CandidateID     string         `gorm:"type:varchar(64);not null;index:idx_match_results_candidate_id"`
	FinalScore      float64        `gorm:"type:double;not null;index:idx_match_results_final_score"`
	SemanticScore   float64        `gorm:"type:double;not null"`
	SkillScore      float64        `gorm:"type:double;not null"`
	ExperienceScore float64        `gorm:"type:double;not null"`
	EducationScore  float64        `gorm:"type:double;not null"`
	ExplanationJSON datatypes.JSON `gorm:"type:json"` // 结构化解释
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_match_results_created_at"`

	Requirement *RequirementRecord `gorm:"foreignKey:RequirementID;references:RequirementID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Candidate   *CandidateRecord   `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (MatchResult) TableName() string {
	return "match_results"
}

// StringSliceToJSON 把字符串切片序列化为 datatypes.JSON
func StringSliceToJSON(s []string) (datatypes.JSON, error) {
	if s == nil {
		s = []string{}
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// JSONToStringSlice 把 datatypes.JSON 反序列化为字符串切片
func JSONToStringSlice(data datatypes.JSON) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MapToJSON 把 map 序列化为 datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
