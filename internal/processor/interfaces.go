package processor

import (
	"context"

	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
)

//
// 向量嵌入相关接口
//

// TextEmbedder 文本向量化接口 (符合 cloudwego/eino 规范)
type TextEmbedder interface {
	// EmbedStrings 将文本转换为向量表示
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)

	// GetDimensions 返回嵌入向量的维度
	GetDimensions() int
}

//
// 存储相关接口
//

// RelationalStore 关系镜像存储接口，由MySQL适配器实现
type RelationalStore interface {
	// SaveCandidateWithSkills 保存候选人主记录并整体替换技能关联
	SaveCandidateWithSkills(ctx context.Context, record *models.CandidateRecord, skillNames []string) error

	// SaveRequirementWithSkills 保存需求主记录并整体替换技能关联
	SaveRequirementWithSkills(ctx context.Context, record *models.RequirementRecord, skillNames []string) error
}

// VectorUpserter 向量写入接口，由Qdrant适配器实现
type VectorUpserter interface {
	// UpsertProfileVector 写入/覆盖档案向量，返回点ID
	UpsertProfileVector(ctx context.Context, kind types.ProfileKind, identifier string, vector []float64) (string, error)
}

// VectorCache 向量缓存接口，由Redis适配器实现
type VectorCache interface {
	// SetProfileVector 缓存档案向量与模型版本
	SetProfileVector(ctx context.Context, kind types.ProfileKind, identifier string, vector []float64, modelVersion string) error
}

// ProfileExtractor 档案属性抽取接口
type ProfileExtractor interface {
	// ExtractCandidateProfile 从候选人文档抽取档案
	ExtractCandidateProfile(ctx context.Context, identifier, text string) *types.EntityProfile

	// ExtractRequirementProfile 从需求文档抽取档案
	ExtractRequirementProfile(ctx context.Context, identifier, text string) *types.EntityProfile
}
