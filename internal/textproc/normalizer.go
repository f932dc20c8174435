package textproc

import (
	"regexp"
	"strings"
)

// 文本归一化：大小写折叠、分词、停用词过滤。
// 全部为无状态纯函数，可在任意数量的 worker 间并发使用。

// tokenPattern 匹配一个词：字母/数字开头，允许内部连字符与 +/# 结尾
// （覆盖 c++ / c# / scikit-learn 这类技术词）。
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[-+#.][\p{L}\p{N}+#]+)*[+#]*`)

// Fold 大小写折叠。空输入返回空串。
func Fold(text string) string {
	return strings.ToLower(text)
}

// NormalizeTerm 技能/证书等术语的统一归一化：小写并去首尾空白。
// 关系库与向量库两条写入路径必须使用同一归一化，保证同名技能
// 解析到同一词表行。
func NormalizeTerm(term string) string {
	return strings.TrimSpace(strings.ToLower(term))
}

// Tokenize 将文本切分为词序列。不做大小写处理，空输入产生空序列。
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// FoldTokens 折叠并切分，常用组合。
func FoldTokens(text string) []string {
	return Tokenize(Fold(text))
}

// RemoveStopwords 过滤停用词，保持剩余词的原有顺序。
func RemoveStopwords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := Stopwords[Fold(tok)]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

// SplitLines 按行切分并去除每行首尾空白，保留空行以外的所有行。
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// containsAny 判断折叠后的文本是否包含任一关键词。
func containsAny(foldedText string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(foldedText, kw) {
			return true
		}
	}
	return false
}
