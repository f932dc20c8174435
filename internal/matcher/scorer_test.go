package matcher

import (
	"testing"

	"talent-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer(t *testing.T) *CompatibilityScorer {
	t.Helper()
	scorer, err := NewCompatibilityScorer(DefaultWeights())
	require.NoError(t, err)
	return scorer
}

func TestNewCompatibilityScorer_WeightValidation(t *testing.T) {
	// 合法权重
	_, err := NewCompatibilityScorer(DefaultWeights())
	assert.NoError(t, err)

	// 权重之和不为 1.0，必须报错
	_, err = NewCompatibilityScorer(Weights{Semantic: 0.5, Skill: 0.5, Experience: 0.5, Education: 0.5})
	assert.ErrorIs(t, err, ErrWeightConfiguration)

	_, err = NewCompatibilityScorer(Weights{})
	assert.ErrorIs(t, err, ErrWeightConfiguration)
}

func TestSkillComponent_EmptyRequirement(t *testing.T) {
	scorer := newTestScorer(t)

	// 需求技能为空时，任何候选人的技能分都是满分
	score, matching, missing := scorer.skillComponent([]string{"python", "go"}, nil)
	assert.Equal(t, 1.0, score)
	assert.Empty(t, matching)
	assert.Empty(t, missing)

	score, _, _ = scorer.skillComponent(nil, nil)
	assert.Equal(t, 1.0, score)
}

func TestSkillComponent_EmptyCandidate(t *testing.T) {
	scorer := newTestScorer(t)

	// 候选人无技能且需求非空时得 0 分，所有需求技能都缺失
	score, matching, missing := scorer.skillComponent(nil, []string{"python", "sql"})
	assert.Equal(t, 0.0, score)
	assert.Empty(t, matching)
	assert.Equal(t, []string{"python", "sql"}, missing)
}

func TestSkillComponent_CaseInsensitive(t *testing.T) {
	scorer := newTestScorer(t)

	// 技能比较不区分大小写
	upper, _, _ := scorer.skillComponent([]string{"Python", "DJANGO"}, []string{"python", "django"})
	lower, _, _ := scorer.skillComponent([]string{"python", "django"}, []string{"python", "django"})
	assert.Equal(t, lower, upper)
	assert.Equal(t, 1.0, upper)
}

func TestSkillComponent_PartialMatch(t *testing.T) {
	scorer := newTestScorer(t)

	// "javascript" 包含 "java"，计半分
	score, matching, missing := scorer.skillComponent([]string{"javascript"}, []string{"java"})
	assert.Equal(t, 0.5, score)
	assert.Empty(t, matching)
	assert.Equal(t, []string{"java"}, missing)

	// 同一个需求技能即便有多个部分匹配，也只计一次
	score, _, _ = scorer.skillComponent([]string{"javascript", "java ee"}, []string{"java"})
	assert.Equal(t, 0.5, score)
}

func TestSkillComponent_FullMatch(t *testing.T) {
	scorer := newTestScorer(t)

	// 需求全部精确命中时得满分，多余的候选技能不加分
	score, _, _ := scorer.skillComponent(
		[]string{"java", "javascript", "java ee"},
		[]string{"java"},
	)
	assert.Equal(t, 1.0, score)
}

func TestExperienceComponent_UnknownYears(t *testing.T) {
	scorer := newTestScorer(t)
	requirement := &types.EntityProfile{Skills: []string{"python"}}

	// 经验为 0（未知）时固定得 0.3，不能与真实 0 年混淆为缺陷
	assert.Equal(t, 0.3, scorer.experienceComponent(0, requirement))
}

func TestExperienceComponent_Thresholds(t *testing.T) {
	scorer := newTestScorer(t)

	// 默认需求 1 年
	basic := &types.EntityProfile{Skills: []string{"python"}}
	assert.Equal(t, 1, InferRequiredExperience(basic))
	assert.Equal(t, 1.0, scorer.experienceComponent(1, basic))
	assert.Equal(t, 1.0, scorer.experienceComponent(2, basic))
	// 超过两倍阈值按过度胜任打折
	assert.Equal(t, 0.8, scorer.experienceComponent(3, basic))

	// 含高级关键词时需求 5 年
	advanced := &types.EntityProfile{Topics: []string{"arquitectura avanzada de sistemas"}}
	assert.Equal(t, 5, InferRequiredExperience(advanced))
	assert.Equal(t, 1.0, scorer.experienceComponent(5, advanced))
	assert.Equal(t, 1.0, scorer.experienceComponent(10, advanced))
	assert.Equal(t, 0.8, scorer.experienceComponent(11, advanced))
	// 不足按比例给分
	assert.InDelta(t, 0.4, scorer.experienceComponent(2, advanced), 1e-9)
	// 比例过低时保底 0.1
	assert.Equal(t, 0.2, scorer.experienceComponent(1, advanced))

	// 含中级关键词时需求 3 年
	intermediate := &types.EntityProfile{Skills: []string{"nivel intermedio de sql"}}
	assert.Equal(t, 3, InferRequiredExperience(intermediate))
	assert.InDelta(t, 1.0/3.0, scorer.experienceComponent(1, intermediate), 1e-9)
}

func TestExperienceComponent_Monotonic(t *testing.T) {
	scorer := newTestScorer(t)
	requirement := &types.EntityProfile{Topics: []string{"desarrollo avanzado"}}

	// 在阈值以下，经验越多分数不能越低
	prev := 0.0
	for years := 1; years <= 5; years++ {
		score := scorer.experienceComponent(years, requirement)
		assert.GreaterOrEqual(t, score, prev, "years=%d", years)
		prev = score
	}
}

func TestEducationComponent(t *testing.T) {
	scorer := newTestScorer(t)

	// 无教育信息给中性分
	assert.Equal(t, 0.5, scorer.educationComponent(nil))
	// 高校关键词给高分
	assert.Equal(t, 0.8, scorer.educationComponent([]string{"Ingeniería de Sistemas, Universidad Nacional"}))
	assert.Equal(t, 0.8, scorer.educationComponent([]string{"BSc Computer Science, State University"}))
	// 有条目但无高校关键词仍是中性分
	assert.Equal(t, 0.5, scorer.educationComponent([]string{"curso de capacitación técnica"}))
}

func TestSimilarityFromDistance(t *testing.T) {
	scorer := newTestScorer(t)

	sim, anomalous := scorer.SimilarityFromDistance(0)
	assert.Equal(t, 1.0, sim)
	assert.False(t, anomalous)

	sim, anomalous = scorer.SimilarityFromDistance(1.0)
	assert.Equal(t, 0.5, sim)
	assert.False(t, anomalous)

	sim, anomalous = scorer.SimilarityFromDistance(2.0)
	assert.Equal(t, 0.0, sim)
	assert.False(t, anomalous)

	// 超过异常阈值的距离说明向量损坏，相似度记 0 并标记异常
	sim, anomalous = scorer.SimilarityFromDistance(3.0)
	assert.Equal(t, 0.0, sim)
	assert.True(t, anomalous)
}

func TestScore_WorkedExample(t *testing.T) {
	scorer := newTestScorer(t)

	candidate := &types.EntityProfile{
		Identifier:      "cv-001",
		Kind:            types.KindCandidateProfile,
		Skills:          []string{"python", "django", "react", "aws"},
		ExperienceYears: 5,
		Education:       []string{"Ingeniería de Software, Universidad Nacional"},
	}
	requirement := &types.EntityProfile{
		Identifier: "req-001",
		Kind:       types.KindRequirementProfile,
		Skills:     []string{"python", "web development", "databases"},
	}

	result := scorer.Score(candidate, requirement, 0.85)
	require.NotNil(t, result)

	// 技能：3 个需求中精确命中 1 个，无部分匹配 → 1/3
	assert.InDelta(t, 33.33, result.Components.Skill, 0.01)
	// 经验：需求含中级关键词推断 3 年，5 年在 [3,6] 区间内 → 1.0
	assert.Equal(t, 3, InferRequiredExperience(requirement))
	assert.Equal(t, 100.0, result.Components.Experience)
	// 教育：高校关键词 → 0.8
	assert.Equal(t, 80.0, result.Components.Education)
	assert.Equal(t, 85.0, result.Components.Semantic)

	// 0.85*0.40 + (1/3)*0.35 + 1.0*0.15 + 0.8*0.10 = 0.68667 → 68.67
	assert.InDelta(t, 68.67, result.FinalScore, 0.01)

	assert.Equal(t, []string{"python"}, result.Explanation.MatchingSkills)
	assert.ElementsMatch(t, []string{"web development", "databases"}, result.Explanation.MissingSkills)
	assert.Equal(t, 5, result.Explanation.ExperienceYears)
}

func TestScore_Deterministic(t *testing.T) {
	scorer := newTestScorer(t)

	candidate := &types.EntityProfile{
		Identifier:      "cv-002",
		Skills:          []string{"go", "kubernetes", "postgresql"},
		ExperienceYears: 4,
	}
	requirement := &types.EntityProfile{
		Identifier: "req-002",
		Skills:     []string{"go", "docker", "sql"},
	}

	// 同样的输入必须得到同样的输出
	first := scorer.Score(candidate, requirement, 0.7)
	second := scorer.Score(candidate, requirement, 0.7)
	assert.Equal(t, first.FinalScore, second.FinalScore)
	assert.Equal(t, first.Components, second.Components)
	assert.Equal(t, first.Explanation, second.Explanation)
}

func TestScore_SemanticClamped(t *testing.T) {
	scorer := newTestScorer(t)
	candidate := &types.EntityProfile{Identifier: "cv-003"}
	requirement := &types.EntityProfile{Identifier: "req-003"}

	// 越界相似度被钳制到 [0,1]
	high := scorer.Score(candidate, requirement, 1.7)
	assert.Equal(t, 100.0, high.Components.Semantic)

	low := scorer.Score(candidate, requirement, -0.3)
	assert.Equal(t, 0.0, low.Components.Semantic)
}

func TestScore_KeyFactors(t *testing.T) {
	scorer := newTestScorer(t)

	candidate := &types.EntityProfile{
		Identifier:      "cv-004",
		Skills:          []string{"python", "django", "postgresql", "docker"},
		ExperienceYears: 3,
	}
	requirement := &types.EntityProfile{
		Identifier: "req-004",
		Skills:     []string{"python", "django", "postgresql"},
	}

	result := scorer.Score(candidate, requirement, 0.9)
	assert.Contains(t, result.Explanation.KeyFactors, "excellent skill match")
	assert.Contains(t, result.Explanation.KeyFactors, "high semantic similarity")
	assert.Contains(t, result.Explanation.KeyFactors, "3 years of experience")
	assert.Contains(t, result.Explanation.KeyFactors, "matching skills: python, django, postgresql")
}
