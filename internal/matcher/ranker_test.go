package matcher

import (
	"testing"

	"talent-match-go/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestRank_DescendingOrder(t *testing.T) {
	input := []*types.ScoredMatch{
		{CandidateID: "a", FinalScore: 42.5},
		{CandidateID: "b", FinalScore: 88.0},
		{CandidateID: "c", FinalScore: 61.2},
	}

	ranked := Rank(input)

	assert.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].CandidateID)
	assert.Equal(t, "c", ranked[1].CandidateID)
	assert.Equal(t, "a", ranked[2].CandidateID)

	// 入参不被修改
	assert.Equal(t, "a", input[0].CandidateID)
}

func TestRank_StableOnTies(t *testing.T) {
	// 同分条目保持输入中的相对顺序
	input := []*types.ScoredMatch{
		{CandidateID: "first", FinalScore: 70.0},
		{CandidateID: "second", FinalScore: 70.0},
		{CandidateID: "top", FinalScore: 90.0},
		{CandidateID: "third", FinalScore: 70.0},
	}

	ranked := Rank(input)

	assert.Equal(t, "top", ranked[0].CandidateID)
	assert.Equal(t, "first", ranked[1].CandidateID)
	assert.Equal(t, "second", ranked[2].CandidateID)
	assert.Equal(t, "third", ranked[3].CandidateID)
}

func TestRank_EmptyInput(t *testing.T) {
	assert.Empty(t, Rank(nil))
	assert.Empty(t, Rank([]*types.ScoredMatch{}))
}

func TestTopN(t *testing.T) {
	input := []*types.ScoredMatch{
		{CandidateID: "a", FinalScore: 10},
		{CandidateID: "b", FinalScore: 30},
		{CandidateID: "c", FinalScore: 20},
	}

	top := TopN(input, 2)
	assert.Len(t, top, 2)
	assert.Equal(t, "b", top[0].CandidateID)
	assert.Equal(t, "c", top[1].CandidateID)

	// n 超过总数时返回全部
	assert.Len(t, TopN(input, 10), 3)
	// 负数视为不限制
	assert.Len(t, TopN(input, -1), 3)
}
