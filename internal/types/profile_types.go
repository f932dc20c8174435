package types

// ProfileKind 表示档案文档的类型
type ProfileKind string

const (
	// KindCandidateProfile 候选人档案（个人简历类文档）
	KindCandidateProfile ProfileKind = "CANDIDATE"
	// KindRequirementProfile 需求档案（岗位/课程要求类文档）
	KindRequirementProfile ProfileKind = "REQUIREMENT"
)

// EntityProfile 单个文档抽取出的结构化属性集合。
// 创建后不可变；同一 Identifier 重新摄取时整体替换，不做增量合并。
type EntityProfile struct {
	// Identifier 外部分配的不透明标识符，抽取前已确定
	Identifier string `json:"identifier"`

	// Kind 档案类型
	Kind ProfileKind `json:"kind"`

	// Skills 归一化后的技能集合（小写、去空白、无重复）
	Skills []string `json:"skills"`

	// ExperienceYears 经验年限。0 表示"未知"而非"零经验"，
	// 这一歧义由抽取过程固有，下游不得自行消解
	ExperienceYears int `json:"experience_years"`

	// Education 教育经历行，保持文档内出现顺序，允许重复
	Education []string `json:"education"`

	// Certifications 证书集合（归一化）
	Certifications []string `json:"certifications"`

	// Languages 语言集合（归一化）
	Languages []string `json:"languages"`

	// Topics 课程/需求主题列表，仅 RequirementProfile 使用
	Topics []string `json:"topics,omitempty"`

	// Prerequisites 先修/前置要求列表，仅 RequirementProfile 使用
	Prerequisites []string `json:"prerequisites,omitempty"`
}

// HasSkill 判断档案是否包含指定技能（入参需已归一化）
func (p *EntityProfile) HasSkill(name string) bool {
	for _, s := range p.Skills {
		if s == name {
			return true
		}
	}
	return false
}

// ComponentScores 匹配评分的四个独立分量，均为 0-100
type ComponentScores struct {
	Semantic   float64 `json:"semantic_similarity"`
	Skill      float64 `json:"skill_match"`
	Experience float64 `json:"experience_match"`
	Education  float64 `json:"education_match"`
}

// MatchExplanation 匹配结果的结构化解释
type MatchExplanation struct {
	// MatchingSkills 需求中被候选人覆盖的技能
	MatchingSkills []string `json:"matching_skills"`

	// MissingSkills 需求中候选人缺失的技能
	MissingSkills []string `json:"missing_skills"`

	// KeyFactors 由分数阈值触发的定性描述
	KeyFactors []string `json:"key_factors"`

	// ExperienceYears 候选人经验年限（0 表示未知）
	ExperienceYears int `json:"experience_years"`

	// ScoreBreakdown 各分量得分的文字摘要
	ScoreBreakdown string `json:"score_breakdown"`
}

// ScoredMatch 一次评分调用的结果。创建后不再修改，排序只重排集合。
type ScoredMatch struct {
	// CandidateID 候选人档案标识符
	CandidateID string `json:"candidate_id"`

	// FinalScore 加权总分 (0-100，两位小数)
	FinalScore float64 `json:"final_score"`

	// Components 各分量得分 (0-100)
	Components ComponentScores `json:"component_scores"`

	// Explanation 结构化解释
	Explanation MatchExplanation `json:"explanation"`
}
