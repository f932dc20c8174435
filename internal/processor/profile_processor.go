package processor

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"talent-match-go/internal/config"
	"talent-match-go/internal/parser"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/textproc"
	"talent-match-go/internal/types"
)

// Components 聚合所有功能组件依赖，便于集中管理和测试替换
type Components struct {
	// 核心组件接口
	Extractor ProfileExtractor // 档案属性抽取接口
	Embedder  TextEmbedder     // 文本向量化接口
	Sync      *DualStoreSyncCoordinator

	// 存储层依赖
	Storage *storage.Storage // 聚合的存储服务
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	DefaultDimensions int         // 默认向量维度
	Concurrency       int         // 批量处理并发度
	Debug             bool        // 是否开启调试模式
	Logger            *log.Logger // 日志记录器
}

// ProfileProcessor 档案处理组件聚合类。
// 串联抽取、向量化和双存储同步三个阶段。
type ProfileProcessor struct {
	Extractor ProfileExtractor
	Embedder  TextEmbedder
	Sync      *DualStoreSyncCoordinator
	Storage   *storage.Storage

	Settings Settings
}

// NewProfileProcessor 通过组件与设置选项创建处理器
func NewProfileProcessor(comp *Components, set *Settings, opts ...SettingOpt) *ProfileProcessor {
	if comp == nil {
		comp = &Components{}
	}
	if set == nil {
		set = &Settings{}
	}
	for _, opt := range opts {
		opt(set)
	}
	if set.Logger == nil {
		set.Logger = log.New(os.Stderr, "[ProfileProcessor] ", log.LstdFlags|log.Lshortfile)
	}
	if set.Concurrency <= 0 {
		set.Concurrency = 4
	}
	return &ProfileProcessor{
		Extractor: comp.Extractor,
		Embedder:  comp.Embedder,
		Sync:      comp.Sync,
		Storage:   comp.Storage,
		Settings:  *set,
	}
}

// NewProcessorFromConfig 根据配置文件构建完整的处理器。
// 标注服务未配置时抽取器进入降级模式，只依赖内置词典规则。
func NewProcessorFromConfig(cfg *config.Config, storageManager *storage.Storage) (*ProfileProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if storageManager == nil {
		return nil, fmt.Errorf("存储管理器不能为空")
	}
	if storageManager.MySQL == nil {
		return nil, ErrDatabaseFailed
	}
	if storageManager.Qdrant == nil {
		return nil, storage.ErrVectorDBNotConfigured
	}

	embedder, err := parser.NewAliyunEmbedder(cfg.Embedding.APIKey, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("创建嵌入器失败: %w", err)
	}

	var model textproc.LanguageModel
	if cfg.Tagger.Endpoint != "" {
		tagger, err := parser.NewTaggerClient(cfg.Tagger)
		if err != nil {
			return nil, fmt.Errorf("创建标注客户端失败: %w", err)
		}
		model = tagger
	}
	extractor := textproc.NewAttributeExtractor(model)

	var cache VectorCache
	if storageManager.Redis != nil {
		cache = storageManager.Redis
	}
	coordinator := NewDualStoreSyncCoordinator(storageManager.MySQL, storageManager.Qdrant, cache, cfg.Embedding.Model)

	comp := &Components{
		Extractor: extractor,
		Embedder:  embedder,
		Sync:      coordinator,
		Storage:   storageManager,
	}
	set := &Settings{
		DefaultDimensions: cfg.Embedding.Dimensions,
		Concurrency:       4,
	}
	return NewProfileProcessor(comp, set), nil
}

// CheckComponentsInitialized 检查所有必需组件是否就绪
func (p *ProfileProcessor) CheckComponentsInitialized() error {
	if p.Extractor == nil {
		return ErrExtractorNotInit
	}
	if p.Embedder == nil {
		return ErrEmbedderNotInit
	}
	if p.Sync == nil {
		return ErrSyncNotInit
	}
	if p.Storage == nil {
		return ErrStorageNotInit
	}
	return nil
}

// ProcessCandidateDocument 处理单份候选人文档：抽取档案、生成向量、双存储同步。
// 返回抽取出的档案与向量库点ID。
func (p *ProfileProcessor) ProcessCandidateDocument(ctx context.Context, identifier, text string, meta DocumentMeta) (*types.EntityProfile, string, error) {
	if err := p.CheckComponentsInitialized(); err != nil {
		return nil, "", err
	}

	profile := p.Extractor.ExtractCandidateProfile(ctx, identifier, text)

	vector, err := p.embedText(ctx, identifier, text)
	if err != nil {
		return nil, "", err
	}

	pointID, err := p.Sync.SyncCandidate(ctx, profile, vector, meta)
	if err != nil {
		return nil, "", err
	}
	return profile, pointID, nil
}

// ProcessRequirementDocument 处理单份需求文档
func (p *ProfileProcessor) ProcessRequirementDocument(ctx context.Context, identifier, text string, meta DocumentMeta) (*types.EntityProfile, string, error) {
	if err := p.CheckComponentsInitialized(); err != nil {
		return nil, "", err
	}

	profile := p.Extractor.ExtractRequirementProfile(ctx, identifier, text)

	vector, err := p.embedText(ctx, identifier, text)
	if err != nil {
		return nil, "", err
	}

	pointID, err := p.Sync.SyncRequirement(ctx, profile, vector, meta)
	if err != nil {
		return nil, "", err
	}
	return profile, pointID, nil
}

// embedText 对整篇文档文本生成单条向量
func (p *ProfileProcessor) embedText(ctx context.Context, identifier, text string) ([]float64, error) {
	if text == "" {
		return nil, NewEmbeddingError(identifier, "文档文本为空")
	}
	vectors, err := p.Embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, NewEmbeddingError(identifier, err.Error())
	}
	if len(vectors) != 1 {
		return nil, NewEmbeddingError(identifier, fmt.Sprintf("期望1条向量，实际返回%d条", len(vectors)))
	}
	if p.Settings.DefaultDimensions > 0 && len(vectors[0]) != p.Settings.DefaultDimensions {
		return nil, NewEmbeddingError(identifier, fmt.Sprintf("向量维度不匹配: 期望%d，实际%d", p.Settings.DefaultDimensions, len(vectors[0])))
	}
	return vectors[0], nil
}

// BatchDocument 批量处理的单个输入项
type BatchDocument struct {
	Identifier string
	Kind       types.ProfileKind
	Text       string
	Meta       DocumentMeta
}

// BatchResult 批量处理的单个输出项，Err 非空表示该文档处理失败
type BatchResult struct {
	Identifier string
	Kind       types.ProfileKind
	Profile    *types.EntityProfile
	PointID    string
	Err        error
}

// ProcessDocuments 并发处理一批文档。
// 单个文档的失败不影响其他文档，结果按输入顺序返回。
func (p *ProfileProcessor) ProcessDocuments(ctx context.Context, docs []BatchDocument) []BatchResult {
	results := make([]BatchResult, len(docs))
	if len(docs) == 0 {
		return results
	}

	sem := make(chan struct{}, p.Settings.Concurrency)
	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			doc := docs[idx]
			result := BatchResult{Identifier: doc.Identifier, Kind: doc.Kind}
			switch doc.Kind {
			case types.KindRequirementProfile:
				result.Profile, result.PointID, result.Err = p.ProcessRequirementDocument(ctx, doc.Identifier, doc.Text, doc.Meta)
			default:
				result.Profile, result.PointID, result.Err = p.ProcessCandidateDocument(ctx, doc.Identifier, doc.Text, doc.Meta)
			}
			if result.Err != nil && p.Settings.Logger != nil {
				p.Settings.Logger.Printf("ERROR: 批量处理文档失败 identifier=%s kind=%s: %v", doc.Identifier, doc.Kind, result.Err)
			}
			results[idx] = result
		}(i)
	}
	wg.Wait()
	return results
}
