package textproc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLanguageModel 测试用语言模型桩，返回预置结果。
type stubLanguageModel struct {
	entities  []EntitySpan
	phrases   []NounPhrase
	tokens    []TaggedToken
	entityErr error
	phraseErr error
}

var _ LanguageModel = (*stubLanguageModel)(nil)

func (s *stubLanguageModel) TagEntities(ctx context.Context, text string) ([]EntitySpan, error) {
	return s.entities, s.entityErr
}

func (s *stubLanguageModel) ChunkNounPhrases(ctx context.Context, text string) ([]NounPhrase, error) {
	return s.phrases, s.phraseErr
}

func (s *stubLanguageModel) TagPartOfSpeech(ctx context.Context, text string) ([]TaggedToken, error) {
	return s.tokens, nil
}

func TestTermDetector_DegradedMode(t *testing.T) {
	// 语言模型缺失时检测器整体降级，产出空集合而不是报错
	detector := NewTermDetector(nil)
	assert.True(t, detector.Degraded())

	got := detector.Detect(context.Background(), "Python, Docker y Kubernetes")
	assert.Empty(t, got)
}

func TestTermDetector_BlankInput(t *testing.T) {
	detector := NewTermDetector(&stubLanguageModel{})
	assert.False(t, detector.Degraded())

	assert.Empty(t, detector.Detect(context.Background(), ""))
	assert.Empty(t, detector.Detect(context.Background(), "   \n\t  "))
}

func TestTermDetector_FivePasses(t *testing.T) {
	detector := NewTermDetector(&stubLanguageModel{})
	require.Equal(t,
		[]string{"named_span", "noun_phrase", "trigger_phrase", "acronym_compound", "frequency"},
		detector.Passes())
}

func TestNamedSpanPass(t *testing.T) {
	model := &stubLanguageModel{
		entities: []EntitySpan{
			{Text: "Docker", Label: LabelOrganization},
			{Text: "TensorFlow", Label: LabelProduct},
			{Text: "Kubernetes", Label: LabelMisc},
			{Text: "Juan Pérez", Label: LabelPerson},
			{Text: "Trujillo", Label: LabelLocation},
			{Text: "Universidad Nacional de Trujillo", Label: LabelOrganization},
		},
	}

	got := namedSpanPass{}.Detect(context.Background(), NewDocument("irrelevant"), model)

	// 只保留 ORG/PRODUCT/MISC，且机构名称被剔除
	assert.ElementsMatch(t, []string{"docker", "tensorflow", "kubernetes"}, got)
}

func TestNamedSpanPass_ModelError(t *testing.T) {
	model := &stubLanguageModel{entityErr: errors.New("tagger unavailable")}

	// 单遍失败按空结果处理，不影响其他遍
	got := namedSpanPass{}.Detect(context.Background(), NewDocument("text"), model)
	assert.Empty(t, got)
}

func TestNounPhrasePass(t *testing.T) {
	model := &stubLanguageModel{
		phrases: []NounPhrase{
			{Text: "Machine Learning Engineer", TokenCount: 3},
			{Text: "base de datos", TokenCount: 3},
			{Text: "gestión de equipos humanos", TokenCount: 4},
			{Text: "Python", TokenCount: 1},
			{Text: "sistemas distribuidos de procesamiento de datos masivos", TokenCount: 7},
		},
	}

	got := nounPhrasePass{}.Detect(context.Background(), NewDocument("irrelevant"), model)

	// 2-4 词且含技术指示词的短语保留；单词、超长、非技术短语丢弃
	assert.ElementsMatch(t, []string{"machine learning engineer", "base de datos"}, got)
}

func TestTriggerPhrasePass(t *testing.T) {
	text := "Cuento con experiencia en Python y Django.\n" +
		"Knowledge of cloud computing platforms, entre otros.\n" +
		"Dominio de bases de datos relacionales avanzadas modernas distribuidas"

	got := triggerPhrasePass{}.Detect(context.Background(), NewDocument(text), NoopLanguageModel{})

	// 连接词截断："python y django" 只留 "python"
	assert.Contains(t, got, "python")
	assert.NotContains(t, got, "python y django")
	// 标点截断
	assert.Contains(t, got, "cloud computing platforms")
	// 最多捕获 4 个词
	assert.Contains(t, got, "bases de datos relacionales")
}

func TestAcronymCompoundPass(t *testing.T) {
	text := "Certificado en AWS y SQL. THE watcher usa scikit-learn y data-driven testing. No e-j."

	got := acronymCompoundPass{}.Detect(context.Background(), NewDocument(text), NoopLanguageModel{})

	assert.Contains(t, got, "aws")
	assert.Contains(t, got, "sql")
	// 全大写的停用词不算缩写
	assert.NotContains(t, got, "the")
	// 长度大于 4 的连字符复合词
	assert.Contains(t, got, "scikit-learn")
	assert.Contains(t, got, "data-driven")
	assert.NotContains(t, got, "e-j")
}

func TestFrequencyPass_AsymmetricThresholds(t *testing.T) {
	// "devops" 带技术词缀，出现 2 次即接受；
	// "logística" 无词缀，2 次不够、3 次才接受。
	text := "devops pipeline. devops culture.\n" +
		"logística moderna, logística aplicada"

	got := frequencyPass{}.Detect(context.Background(), NewDocument(text), NoopLanguageModel{})
	assert.Contains(t, got, "devops")
	assert.NotContains(t, got, "logística")

	text += "\nlogística integral"
	got = frequencyPass{}.Detect(context.Background(), NewDocument(text), NoopLanguageModel{})
	assert.Contains(t, got, "logística")
}

func TestFrequencyPass_SkipsShortAndStopwords(t *testing.T) {
	// 四字以下的词与停用词不参与统计
	text := "sql sql sql para para para experiencia"

	got := frequencyPass{}.Detect(context.Background(), NewDocument(text), NoopLanguageModel{})
	assert.NotContains(t, got, "sql")
	assert.NotContains(t, got, "para")
}

func TestTermDetector_UnionOfPasses(t *testing.T) {
	model := &stubLanguageModel{
		entities: []EntitySpan{{Text: "Docker", Label: LabelProduct}},
		phrases:  []NounPhrase{{Text: "machine learning", TokenCount: 2}},
	}
	detector := NewTermDetector(model)

	text := "Experiencia en Python. Certificación AWS vigente."
	got := detector.Detect(context.Background(), text)

	// 各遍结果并入同一集合
	assert.Contains(t, got, "docker")
	assert.Contains(t, got, "machine learning")
	assert.Contains(t, got, "python")
	assert.Contains(t, got, "aws")
}
