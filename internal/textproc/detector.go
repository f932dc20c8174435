package textproc

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"talent-match-go/internal/constants"
)

// 候选词检测器：五个相互独立的启发式遍扫描同一文档，
// 结果并入同一个集合（集合语义天然合并重复项）。
// 各遍均为纯函数，可单独实现和测试。

// Document 各检测遍共享的文档视图，构造一次、多遍复用。
type Document struct {
	Raw    string   // 原始文本（保留大小写，首字母/全大写信息对检测有意义）
	Folded string   // 折叠后的文本
	Lines  []string // 去空白后的行
}

// NewDocument 预处理原始文本。
func NewDocument(text string) *Document {
	return &Document{
		Raw:    text,
		Folded: Fold(text),
		Lines:  SplitLines(text),
	}
}

// DetectorPass 单个检测启发式。实现必须无状态、不产生副作用。
type DetectorPass interface {
	// Name 返回遍名称，用于日志与测试定位
	Name() string

	// Detect 返回本遍产出的候选词（未过滤，已折叠小写）
	Detect(ctx context.Context, doc *Document, model LanguageModel) []string
}

// TermDetector 聚合五个检测遍。
// model 为 nil 表示底层语言模型缺失，检测器整体降级为产出空集合，
// 调用方应将其视为降级信号并启用关键词保底抽取，而非硬失败。
type TermDetector struct {
	model  LanguageModel
	passes []DetectorPass
}

// NewTermDetector 创建候选词检测器。
func NewTermDetector(model LanguageModel) *TermDetector {
	return &TermDetector{
		model: model,
		passes: []DetectorPass{
			namedSpanPass{},
			nounPhrasePass{},
			triggerPhrasePass{},
			acronymCompoundPass{},
			frequencyPass{},
		},
	}
}

// Passes 返回已注册的检测遍名称。
func (d *TermDetector) Passes() []string {
	names := make([]string, len(d.passes))
	for i, p := range d.passes {
		names[i] = p.Name()
	}
	return names
}

// Degraded 报告检测器是否处于降级模式（语言模型缺失）。
func (d *TermDetector) Degraded() bool {
	return d.model == nil
}

// Detect 对文本运行全部检测遍，返回小写候选词集合。
// 降级模式下返回空集合；本方法不返回错误。
func (d *TermDetector) Detect(ctx context.Context, text string) map[string]struct{} {
	candidates := make(map[string]struct{})
	if d.model == nil || strings.TrimSpace(text) == "" {
		return candidates
	}

	doc := NewDocument(text)
	for _, pass := range d.passes {
		for _, term := range pass.Detect(ctx, doc, d.model) {
			term = NormalizeTerm(term)
			if term != "" {
				candidates[term] = struct{}{}
			}
		}
	}
	return candidates
}

// ---------- 遍 1：命名实体 ----------

// namedSpanPass 提取 ORG/PRODUCT/MISC 实体片段，剔除教育机构名称。
type namedSpanPass struct{}

func (namedSpanPass) Name() string { return "named_span" }

func (namedSpanPass) Detect(ctx context.Context, doc *Document, model LanguageModel) []string {
	spans, err := model.TagEntities(ctx, doc.Raw)
	if err != nil {
		// 单遍失败不影响其他遍，按空结果处理
		return nil
	}

	var out []string
	for _, span := range spans {
		switch span.Label {
		case LabelOrganization, LabelProduct, LabelMisc:
		default:
			continue
		}
		folded := Fold(span.Text)
		if containsAny(folded, InstitutionKeywords) {
			continue
		}
		out = append(out, folded)
	}
	return out
}

// ---------- 遍 2：名词短语 ----------

// nounPhrasePass 保留 2-4 词、且至少含一个技术指示词的名词短语。
// 这是唯一允许无额外限制产出多词术语的遍。
type nounPhrasePass struct{}

func (nounPhrasePass) Name() string { return "noun_phrase" }

func (nounPhrasePass) Detect(ctx context.Context, doc *Document, model LanguageModel) []string {
	phrases, err := model.ChunkNounPhrases(ctx, doc.Raw)
	if err != nil {
		return nil
	}

	var out []string
	for _, phrase := range phrases {
		tokens := FoldTokens(phrase.Text)
		n := phrase.TokenCount
		if n == 0 {
			n = len(tokens)
		}
		if n < 2 || n > 4 {
			continue
		}
		technical := false
		for _, tok := range tokens {
			if _, ok := TechnicalIndicators[tok]; ok {
				technical = true
				break
			}
		}
		if technical {
			out = append(out, strings.Join(tokens, " "))
		}
	}
	return out
}

// ---------- 遍 3：上下文触发短语 ----------

// triggerPhrasePass 捕获触发短语（"experiencia en"、"knowledge of" 等）
// 之后最多 4 个词，遇到标点、连接词或行尾截止。
type triggerPhrasePass struct{}

func (triggerPhrasePass) Name() string { return "trigger_phrase" }

// triggerPatterns 每个触发短语预编译一个捕获正则。
// 捕获组只吞词字符、空格和术语内符号，标点与换行天然截断。
var triggerPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(TriggerPhrases))
	for _, phrase := range TriggerPhrases {
		patterns = append(patterns,
			regexp.MustCompile(`(?i)`+regexp.QuoteMeta(phrase)+`\s+([\p{L}\p{N}][\p{L}\p{N} +#.-]*)`))
	}
	return patterns
}()

func (triggerPhrasePass) Detect(ctx context.Context, doc *Document, model LanguageModel) []string {
	var out []string
	for _, pattern := range triggerPatterns {
		for _, match := range pattern.FindAllStringSubmatch(doc.Raw, -1) {
			captured := truncateAtConnective(Fold(match[1]), 4)
			if captured != "" {
				out = append(out, captured)
			}
		}
	}
	return out
}

// truncateAtConnective 截取最多 maxWords 个词，遇连接词提前截止。
// 句点允许出现在词内（node.js、.net），但结尾的句点视为句子边界。
func truncateAtConnective(folded string, maxWords int) string {
	words := strings.Fields(folded)
	kept := make([]string, 0, maxWords)
	for _, w := range words {
		if _, connective := connectiveWords[w]; connective {
			break
		}
		if strings.HasSuffix(w, ".") {
			if w = strings.TrimRight(w, "."); w != "" {
				kept = append(kept, w)
			}
			break
		}
		kept = append(kept, w)
		if len(kept) == maxWords {
			break
		}
	}
	return strings.Join(kept, " ")
}

// ---------- 遍 4：缩写与连字符复合词 ----------

// acronymCompoundPass 捕获 2-10 位全大写缩写，以及长度大于 4 的
// 连字符复合词（data-driven、scikit-learn 这类）。
type acronymCompoundPass struct{}

func (acronymCompoundPass) Name() string { return "acronym_compound" }

var (
	acronymPattern  = regexp.MustCompile(`\b[A-Z]{2,10}\b`)
	compoundPattern = regexp.MustCompile(`[\p{L}]+(?:-[\p{L}]+)+`)
)

func (acronymCompoundPass) Detect(ctx context.Context, doc *Document, model LanguageModel) []string {
	var out []string
	for _, acronym := range acronymPattern.FindAllString(doc.Raw, -1) {
		folded := Fold(acronym)
		if _, stop := Stopwords[folded]; stop {
			continue
		}
		out = append(out, folded)
	}
	for _, compound := range compoundPattern.FindAllString(doc.Raw, -1) {
		if utf8.RuneCountInString(compound) > 4 {
			out = append(out, Fold(compound))
		}
	}
	return out
}

// ---------- 遍 5：频率分析 ----------

// frequencyPass 统计长度 ≥4 的词去除停用词后的出现频率。
// 带技术词缀的词出现 2 次即接受，普通词要求 3 次——
// 非对称阈值是刻意的精确率/召回率取舍。
type frequencyPass struct{}

func (frequencyPass) Name() string { return "frequency" }

var freqWordPattern = regexp.MustCompile(`[\p{L}]{4,}`)

func (frequencyPass) Detect(ctx context.Context, doc *Document, model LanguageModel) []string {
	freq := make(map[string]int)
	for _, word := range freqWordPattern.FindAllString(doc.Folded, -1) {
		if _, stop := Stopwords[word]; stop {
			continue
		}
		freq[word]++
	}

	var out []string
	for word, count := range freq {
		threshold := constants.GenericFreqThreshold
		if hasTechnicalAffix(word) {
			threshold = constants.TechnicalAffixFreqThreshold
		}
		if count >= threshold {
			out = append(out, word)
		}
	}
	return out
}

// hasTechnicalAffix 判断词是否命中技术词缀启发式。
func hasTechnicalAffix(word string) bool {
	for _, affix := range TechnicalAffixes {
		if strings.Contains(word, affix) {
			return true
		}
	}
	return false
}
