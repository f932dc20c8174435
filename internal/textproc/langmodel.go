package textproc

import "context"

// EntityLabel 命名实体标签
type EntityLabel string

const (
	// LabelOrganization 组织机构实体
	LabelOrganization EntityLabel = "ORG"
	// LabelProduct 产品实体
	LabelProduct EntityLabel = "PRODUCT"
	// LabelMisc 杂项实体（技术名词常落在这一类）
	LabelMisc EntityLabel = "MISC"
	// LabelPerson 人名实体
	LabelPerson EntityLabel = "PER"
	// LabelLocation 地名实体
	LabelLocation EntityLabel = "LOC"
)

// EntitySpan 一个被标注的实体片段
type EntitySpan struct {
	Text  string      // 原文片段
	Label EntityLabel // 实体标签
}

// NounPhrase 一个名词短语块
type NounPhrase struct {
	Text       string // 原文片段
	TokenCount int    // 词数
}

// POSTag 词性标签
type POSTag string

const (
	// PosNoun 普通名词
	PosNoun POSTag = "NOUN"
	// PosProperNoun 专有名词
	PosProperNoun POSTag = "PROPN"
	// PosVerb 动词
	PosVerb POSTag = "VERB"
	// PosOther 其他词性
	PosOther POSTag = "OTHER"
)

// TaggedToken 一个带词性标注的词
type TaggedToken struct {
	Text string
	Tag  POSTag
}

// LanguageModel 语言模型能力接口。
// 命名实体识别与名词短语分块依赖底层语言模型；其余检测遍是纯规则实现。
// 实现可以是进程内的标注器，也可以是旁路标注服务的客户端。
type LanguageModel interface {
	// TagEntities 标注文本中的命名实体
	TagEntities(ctx context.Context, text string) ([]EntitySpan, error)

	// ChunkNounPhrases 提取文本中的名词短语块
	ChunkNounPhrases(ctx context.Context, text string) ([]NounPhrase, error)

	// TagPartOfSpeech 对文本分词并标注词性
	TagPartOfSpeech(ctx context.Context, text string) ([]TaggedToken, error)
}

// NoopLanguageModel 语言模型不可用时的空实现。
// 所有方法返回空结果且不报错，使抽取流水线按降级模式契约继续工作。
type NoopLanguageModel struct{}

// 确保NoopLanguageModel实现了LanguageModel接口
var _ LanguageModel = (*NoopLanguageModel)(nil)

// TagEntities 返回空实体列表
func (NoopLanguageModel) TagEntities(ctx context.Context, text string) ([]EntitySpan, error) {
	return nil, nil
}

// ChunkNounPhrases 返回空短语列表
func (NoopLanguageModel) ChunkNounPhrases(ctx context.Context, text string) ([]NounPhrase, error) {
	return nil, nil
}

// TagPartOfSpeech 返回空标注列表
func (NoopLanguageModel) TagPartOfSpeech(ctx context.Context, text string) ([]TaggedToken, error) {
	return nil, nil
}
