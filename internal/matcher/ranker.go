package matcher

import (
	"sort"

	"talent-match-go/internal/types"
)

// Rank 按最终得分降序排列。排序是稳定的：得分相同的条目保持
// 输入中的相对顺序，保证结果可复现。不修改入参，返回新切片。
func Rank(matches []*types.ScoredMatch) []*types.ScoredMatch {
	ranked := make([]*types.ScoredMatch, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked
}

// TopN 返回排名后的前 n 条结果。n 超过总数时返回全部。
func TopN(matches []*types.ScoredMatch, n int) []*types.ScoredMatch {
	ranked := Rank(matches)
	if n < 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
