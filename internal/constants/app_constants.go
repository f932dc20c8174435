package constants

import "time"

// 评分权重。四项之和必须为 1.0，config.Validate 在启动时校验。
const (
	// WeightSemantic 语义相似度分量权重
	WeightSemantic = 0.40
	// WeightSkill 技能匹配分量权重
	WeightSkill = 0.35
	// WeightExperience 经验匹配分量权重
	WeightExperience = 0.15
	// WeightEducation 教育背景分量权重
	WeightEducation = 0.10
)

// 经验推断阈值（年）。从需求文档内容推断所需经验水平。
const (
	// AdvancedExperienceYears 出现高级指示词时要求的经验年限
	AdvancedExperienceYears = 5
	// IntermediateExperienceYears 出现中级指示词时要求的经验年限
	IntermediateExperienceYears = 3
	// BasicExperienceYears 默认（基础）要求的经验年限
	BasicExperienceYears = 1
)

// 经验分量的固定档位。
const (
	// UnknownExperienceScore 经验未知（0年）时的固定得分
	UnknownExperienceScore = 0.3
	// OverqualifiedScore 经验超过所需两倍时的折扣得分
	OverqualifiedScore = 0.8
	// MinExperienceRatioScore 经验不足时的保底得分
	MinExperienceRatioScore = 0.1
)

// 教育分量档位。
const (
	// UniversityEducationScore 教育经历包含高校关键词时的得分
	UniversityEducationScore = 0.8
	// NeutralEducationScore 无教育信息或无高校关键词时的中性得分
	NeutralEducationScore = 0.5
)

// 技能匹配参数。
const (
	// PartialSkillMatchWeight 部分匹配（子串包含）相对精确匹配的权重
	PartialSkillMatchWeight = 0.5
	// ExcellentSkillThreshold 技能分量高于此值时解释中标注"优秀匹配"
	ExcellentSkillThreshold = 0.8
	// GoodSkillThreshold 技能分量高于此值时解释中标注"良好匹配"
	GoodSkillThreshold = 0.6
	// HighSemanticThreshold 语义分量高于此值时解释中标注"高语义相似"
	HighSemanticThreshold = 0.8
)

// 候选词频率阈值。带技术词缀的词出现 2 次即接受，普通词要求 3 次，
// 这是刻意的精确率/召回率取舍而非不一致。
const (
	// TechnicalAffixFreqThreshold 技术词缀词的最低出现次数
	TechnicalAffixFreqThreshold = 2
	// GenericFreqThreshold 普通词的最低出现次数
	GenericFreqThreshold = 3
)

// 抽取上限与语义距离参数。
const (
	// MaxEducationLines 教育经历最多保留的行数
	MaxEducationLines = 5
	// MaxCourseTopics 需求主题最多保留的条数
	MaxCourseTopics = 10
	// MaxPlausibleExperienceYears 由年份跨度推断经验时的合理上限
	MaxPlausibleExperienceYears = 50
	// MaxNormalizedDistance 单位归一化向量的理论最大 L2 距离
	MaxNormalizedDistance = 2.0
	// DefaultDistanceAnomalyThreshold 超过此距离视为异常，相似度记 0
	DefaultDistanceAnomalyThreshold = 2.5
)

// 候选词过滤边界。
const (
	// MinCandidateLength 候选词最小字符数
	MinCandidateLength = 3
	// MaxCandidateLength 候选词最大字符数
	MaxCandidateLength = 50
	// MaxEmbeddedSpaces 候选词内嵌空格上限，超过视为整句而非术语
	MaxEmbeddedSpaces = 4
)

// 存储相关常量。
const (
	// ProfileVectorCacheDuration 档案向量缓存时长
	ProfileVectorCacheDuration = 24 * time.Hour
	// DocumentMD5ExpireDays 文档MD5去重记录的默认过期天数
	DocumentMD5ExpireDays = 30
)
