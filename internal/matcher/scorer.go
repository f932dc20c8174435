package matcher

import (
	"fmt"
	"math"
	"strings"

	"talent-match-go/internal/constants"
	"talent-match-go/internal/textproc"
	"talent-match-go/internal/types"
)

// ErrWeightConfiguration 分量权重之和不为 1.0。
// 属于启动期致命错误，调用方必须中止初始化。
var ErrWeightConfiguration = fmt.Errorf("component weights must sum to 1.0")

// weightSumEpsilon 权重求和的浮点容差
const weightSumEpsilon = 1e-9

// Weights 四个评分分量的权重。
type Weights struct {
	Semantic   float64 `yaml:"semantic" json:"semantic"`
	Skill      float64 `yaml:"skill" json:"skill"`
	Experience float64 `yaml:"experience" json:"experience"`
	Education  float64 `yaml:"education" json:"education"`
}

// DefaultWeights 返回默认权重（40/35/15/10）。
func DefaultWeights() Weights {
	return Weights{
		Semantic:   constants.WeightSemantic,
		Skill:      constants.WeightSkill,
		Experience: constants.WeightExperience,
		Education:  constants.WeightEducation,
	}
}

// Validate 校验权重之和为 1.0。
func (w Weights) Validate() error {
	sum := w.Semantic + w.Skill + w.Experience + w.Education
	if math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("%w: got %.6f", ErrWeightConfiguration, sum)
	}
	return nil
}

// CompatibilityScorer 兼容性评分器。
// 把外部提供的语义相似度与三个结构化分量（技能、经验、教育）
// 按固定权重合成最终得分，并生成结构化解释。
// 对合法输入不会失败；畸形经验值应在进入本组件前归为 0（未知）。
type CompatibilityScorer struct {
	weights          Weights
	anomalyThreshold float64
}

// ScorerOption 评分器构造选项
type ScorerOption func(*CompatibilityScorer)

// WithAnomalyThreshold 设置语义距离的异常阈值。
func WithAnomalyThreshold(threshold float64) ScorerOption {
	return func(s *CompatibilityScorer) {
		s.anomalyThreshold = threshold
	}
}

// NewCompatibilityScorer 创建评分器。权重之和不为 1.0 时返回
// ErrWeightConfiguration，调用方应视为致命错误。
func NewCompatibilityScorer(weights Weights, opts ...ScorerOption) (*CompatibilityScorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	s := &CompatibilityScorer{
		weights:          weights,
		anomalyThreshold: constants.DefaultDistanceAnomalyThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SimilarityFromDistance 把向量库返回的 L2 距离转换为 [0,1] 相似度。
// 单位归一化向量的理论最大距离为 2.0；距离超过异常阈值说明向量
// 未归一化或数据损坏，相似度记 0 并返回异常标记。
func (s *CompatibilityScorer) SimilarityFromDistance(distance float64) (similarity float64, anomalous bool) {
	if distance > s.anomalyThreshold {
		return 0, true
	}
	similarity = 1 - distance/constants.MaxNormalizedDistance
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	return similarity, false
}

// Score 对一对（候选人档案、需求档案）评分。
// semantic 为外部计算的语义相似度，取值 [0,1]，越界值被钳制。
// 返回的 ScoredMatch 创建后不再修改。
func (s *CompatibilityScorer) Score(candidate, requirement *types.EntityProfile, semantic float64) *types.ScoredMatch {
	semantic = clamp01(semantic)

	skillScore, matching, missing := s.skillComponent(candidate.Skills, requirement.Skills)
	experienceScore := s.experienceComponent(candidate.ExperienceYears, requirement)
	educationScore := s.educationComponent(candidate.Education)

	final := semantic*s.weights.Semantic +
		skillScore*s.weights.Skill +
		experienceScore*s.weights.Experience +
		educationScore*s.weights.Education

	return &types.ScoredMatch{
		CandidateID: candidate.Identifier,
		FinalScore:  toPercent(final),
		Components: types.ComponentScores{
			Semantic:   toPercent(semantic),
			Skill:      toPercent(skillScore),
			Experience: toPercent(experienceScore),
			Education:  toPercent(educationScore),
		},
		Explanation: s.explain(semantic, skillScore, matching, missing, candidate.ExperienceYears),
	}
}

// skillComponent 计算技能匹配分量。
// 需求为空 → 1.0（空集上的全称量化为真）；候选人无技能而需求
// 非空 → 0.0。其余情况：精确交集 + 0.5 权重的部分匹配（子串包含，
// 每个需求技能至多计一次，且精确命中的技能不再计部分分），
// 除以需求技能数并封顶 1.0。
func (s *CompatibilityScorer) skillComponent(candidateSkills, requiredSkills []string) (score float64, matching, missing []string) {
	if len(requiredSkills) == 0 {
		return 1.0, nil, nil
	}
	if len(candidateSkills) == 0 {
		return 0.0, nil, normalizeAll(requiredSkills)
	}

	candidateSet := make(map[string]struct{}, len(candidateSkills))
	for _, skill := range candidateSkills {
		candidateSet[textproc.NormalizeTerm(skill)] = struct{}{}
	}

	exact := 0
	partial := 0
	for _, raw := range requiredSkills {
		required := textproc.NormalizeTerm(raw)
		if _, ok := candidateSet[required]; ok {
			exact++
			matching = append(matching, required)
			continue
		}
		missing = append(missing, required)
		for candidate := range candidateSet {
			if strings.Contains(candidate, required) || strings.Contains(required, candidate) {
				partial++
				break
			}
		}
	}

	total := float64(exact) + constants.PartialSkillMatchWeight*float64(partial)
	score = total / float64(len(requiredSkills))
	if score > 1.0 {
		score = 1.0
	}
	return score, matching, missing
}

// experienceComponent 计算经验匹配分量。
// 所需年限从需求内容推断（高级 5 年 / 中级 3 年 / 默认 1 年）。
// 经验为 0（未知）固定得 0.3；达标且不超过两倍为 1.0；超过两倍
// 按过度胜任打折；不足按比例给分并保底 0.1。
func (s *CompatibilityScorer) experienceComponent(candidateYears int, requirement *types.EntityProfile) float64 {
	required := InferRequiredExperience(requirement)

	if candidateYears == 0 {
		return constants.UnknownExperienceScore
	}
	if candidateYears >= required {
		if candidateYears <= required*2 {
			return 1.0
		}
		return constants.OverqualifiedScore
	}
	ratio := float64(candidateYears) / float64(required)
	return math.Max(constants.MinExperienceRatioScore, ratio)
}

// InferRequiredExperience 从需求档案的技能与主题推断所需经验年限。
func InferRequiredExperience(requirement *types.EntityProfile) int {
	var sb strings.Builder
	for _, skill := range requirement.Skills {
		sb.WriteString(skill)
		sb.WriteByte(' ')
	}
	for _, topic := range requirement.Topics {
		sb.WriteString(topic)
		sb.WriteByte(' ')
	}
	content := strings.ToLower(sb.String())

	for _, indicator := range textproc.AdvancedLevelIndicators {
		if strings.Contains(content, indicator) {
			return constants.AdvancedExperienceYears
		}
	}
	for _, indicator := range textproc.IntermediateLevelIndicators {
		if strings.Contains(content, indicator) {
			return constants.IntermediateExperienceYears
		}
	}
	return constants.BasicExperienceYears
}

// educationComponent 计算教育背景分量。
// 无教育信息给中性分；有高校关键词给高分，否则同样中性。
func (s *CompatibilityScorer) educationComponent(education []string) float64 {
	if len(education) == 0 {
		return constants.NeutralEducationScore
	}
	for _, entry := range education {
		if containsAnyKeyword(strings.ToLower(entry), textproc.UniversityKeywords) {
			return constants.UniversityEducationScore
		}
	}
	return constants.NeutralEducationScore
}

// explain 生成确定性的结构化解释。
func (s *CompatibilityScorer) explain(semantic, skillScore float64, matching, missing []string, years int) types.MatchExplanation {
	var keyFactors []string

	if len(matching) > 0 {
		top := matching
		if len(top) > 3 {
			top = top[:3]
		}
		keyFactors = append(keyFactors, "matching skills: "+strings.Join(top, ", "))
	}
	if years > 0 {
		keyFactors = append(keyFactors, fmt.Sprintf("%d years of experience", years))
	}
	if skillScore > constants.ExcellentSkillThreshold {
		keyFactors = append(keyFactors, "excellent skill match")
	} else if skillScore > constants.GoodSkillThreshold {
		keyFactors = append(keyFactors, "good skill match")
	}
	if semantic > constants.HighSemanticThreshold {
		keyFactors = append(keyFactors, "high semantic similarity")
	}

	return types.MatchExplanation{
		MatchingSkills:  matching,
		MissingSkills:   missing,
		KeyFactors:      keyFactors,
		ExperienceYears: years,
		ScoreBreakdown: fmt.Sprintf("semantic: %.1f%%, skills: %.1f%%",
			semantic*100, skillScore*100),
	}
}

// toPercent 把 [0,1] 分数换算为保留两位小数的百分制。
func toPercent(score float64) float64 {
	return math.Round(score*100*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalizeAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, textproc.NormalizeTerm(t))
	}
	return out
}

func containsAnyKeyword(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
