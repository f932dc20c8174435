package textproc

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"talent-match-go/internal/constants"
)

// 候选词过滤：一条合取式规则链，命中任一条即拒绝。
// 各条检查互不依赖、无副作用，检查顺序不影响结果。

// forbiddenChars 术语中不允许出现的符号；出现说明该候选是
// 表格残渣或联系方式一类的噪声。
const forbiddenChars = "_|@#"

// RejectReason 候选词被拒绝的原因，用于测试与调试。
type RejectReason string

const (
	RejectNone          RejectReason = ""
	RejectLength        RejectReason = "length"
	RejectNumeric       RejectReason = "numeric"
	RejectStopword      RejectReason = "stopword"
	RejectPersonName    RejectReason = "person_name"
	RejectSentence      RejectReason = "sentence"
	RejectGeneric       RejectReason = "generic"
	RejectForbiddenChar RejectReason = "forbidden_char"
	RejectWhitespace    RejectReason = "whitespace"
)

// Inspect 对单个候选词执行规则链，返回第一个命中的拒绝原因。
// 返回 RejectNone 表示候选词通过全部检查。
func Inspect(candidate string) RejectReason {
	if candidate != strings.TrimSpace(candidate) {
		return RejectWhitespace
	}

	n := utf8.RuneCountInString(candidate)
	if n < constants.MinCandidateLength || n > constants.MaxCandidateLength {
		return RejectLength
	}

	if isNumeric(candidate) {
		return RejectNumeric
	}

	if _, stop := Stopwords[candidate]; stop {
		return RejectStopword
	}

	if _, name := PersonNameBlocklist[candidate]; name {
		return RejectPersonName
	}

	// 内嵌空格过多说明是整句而不是术语
	if strings.Count(candidate, " ") > constants.MaxEmbeddedSpaces {
		return RejectSentence
	}

	if _, generic := GenericNoiseWords[candidate]; generic {
		return RejectGeneric
	}

	if strings.ContainsAny(candidate, forbiddenChars) {
		return RejectForbiddenChar
	}

	return RejectNone
}

// Accept 判断候选词是否通过过滤。入参需已折叠为小写。
func Accept(candidate string) bool {
	return Inspect(candidate) == RejectNone
}

// FilterCandidates 过滤候选集合，返回按字典序排序的存活子集。
// 排序保证同一输入产生确定性的输出顺序。
func FilterCandidates(candidates map[string]struct{}) []string {
	out := make([]string, 0, len(candidates))
	for candidate := range candidates {
		if Accept(candidate) {
			out = append(out, candidate)
		}
	}
	sort.Strings(out)
	return out
}

// isNumeric 判断字符串是否全部由数字组成。
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
