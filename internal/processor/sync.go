package processor

import (
	"context"
	"log"
	"os"

	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/types"
)

// DualStoreSyncCoordinator 负责把抽取出的档案同步写入关系镜像与向量库。
// 写入顺序固定：先关系镜像，后向量库；任一步失败直接向上返回，不做重试。
// 两侧写入均为整体替换语义，同一档案重复同步是幂等操作。
type DualStoreSyncCoordinator struct {
	relational   RelationalStore
	vectors      VectorUpserter
	cache        VectorCache // 可选，nil 表示不写缓存
	modelVersion string
	logger       *log.Logger
}

// NewDualStoreSyncCoordinator 创建同步协调器。cache 可以为 nil。
func NewDualStoreSyncCoordinator(relational RelationalStore, vectors VectorUpserter, cache VectorCache, modelVersion string) *DualStoreSyncCoordinator {
	return &DualStoreSyncCoordinator{
		relational:   relational,
		vectors:      vectors,
		cache:        cache,
		modelVersion: modelVersion,
		logger:       log.New(os.Stderr, "[SyncCoordinator] ", log.LstdFlags|log.Lshortfile),
	}
}

// SyncCandidate 保存候选人档案的关系镜像与向量。
// rawTextMD5 与对象存储路径来自摄取阶段，随主记录一并落库。
func (c *DualStoreSyncCoordinator) SyncCandidate(ctx context.Context, profile *types.EntityProfile, vector []float64, meta DocumentMeta) (string, error) {
	if profile == nil || profile.Identifier == "" {
		return "", NewSyncError("", "候选人档案为空或缺少标识符")
	}

	record, err := candidateRecordFromProfile(profile, meta)
	if err != nil {
		return "", WrapSyncError(profile.Identifier, "序列化候选人档案失败", err)
	}

	if err := c.relational.SaveCandidateWithSkills(ctx, record, profile.Skills); err != nil {
		return "", WrapDatabaseError(profile.Identifier, "保存候选人关系镜像失败", err)
	}

	pointID, err := c.vectors.UpsertProfileVector(ctx, types.KindCandidateProfile, profile.Identifier, vector)
	if err != nil {
		return "", WrapSyncError(profile.Identifier, "写入候选人向量失败", err)
	}

	c.cacheVector(ctx, types.KindCandidateProfile, profile.Identifier, vector)
	return pointID, nil
}

// SyncRequirement 保存需求档案的关系镜像与向量。
func (c *DualStoreSyncCoordinator) SyncRequirement(ctx context.Context, profile *types.EntityProfile, vector []float64, meta DocumentMeta) (string, error) {
	if profile == nil || profile.Identifier == "" {
		return "", NewSyncError("", "需求档案为空或缺少标识符")
	}

	record, err := requirementRecordFromProfile(profile, meta)
	if err != nil {
		return "", WrapSyncError(profile.Identifier, "序列化需求档案失败", err)
	}

	if err := c.relational.SaveRequirementWithSkills(ctx, record, profile.Skills); err != nil {
		return "", WrapDatabaseError(profile.Identifier, "保存需求关系镜像失败", err)
	}

	pointID, err := c.vectors.UpsertProfileVector(ctx, types.KindRequirementProfile, profile.Identifier, vector)
	if err != nil {
		return "", WrapSyncError(profile.Identifier, "写入需求向量失败", err)
	}

	c.cacheVector(ctx, types.KindRequirementProfile, profile.Identifier, vector)
	return pointID, nil
}

// cacheVector 尽力写入向量缓存，失败只记日志不影响主流程
func (c *DualStoreSyncCoordinator) cacheVector(ctx context.Context, kind types.ProfileKind, identifier string, vector []float64) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetProfileVector(ctx, kind, identifier, vector, c.modelVersion); err != nil {
		c.logger.Printf("WARN: 向量缓存写入失败 kind=%s identifier=%s: %v", kind, identifier, err)
	}
}

// DocumentMeta 摄取阶段产生的文档元信息，随档案记录落库
type DocumentMeta struct {
	DisplayName     string
	RawTextMD5      string
	OriginalPathOSS string
	ParsedTextPath  string
}

func candidateRecordFromProfile(profile *types.EntityProfile, meta DocumentMeta) (*models.CandidateRecord, error) {
	eduJSON, err := models.StringSliceToJSON(profile.Education)
	if err != nil {
		return nil, err
	}
	langJSON, err := models.StringSliceToJSON(profile.Languages)
	if err != nil {
		return nil, err
	}
	certJSON, err := models.StringSliceToJSON(profile.Certifications)
	if err != nil {
		return nil, err
	}
	return &models.CandidateRecord{
		CandidateID:     profile.Identifier,
		DisplayName:     meta.DisplayName,
		ExperienceYears: profile.ExperienceYears,
		EducationJSON:   eduJSON,
		LanguagesJSON:   langJSON,
		CertsJSON:       certJSON,
		RawTextMD5:      meta.RawTextMD5,
		OriginalPathOSS: meta.OriginalPathOSS,
		ParsedTextPath:  meta.ParsedTextPath,
	}, nil
}

func requirementRecordFromProfile(profile *types.EntityProfile, meta DocumentMeta) (*models.RequirementRecord, error) {
	topicsJSON, err := models.StringSliceToJSON(profile.Topics)
	if err != nil {
		return nil, err
	}
	prereqJSON, err := models.StringSliceToJSON(profile.Prerequisites)
	if err != nil {
		return nil, err
	}
	return &models.RequirementRecord{
		RequirementID:     profile.Identifier,
		Title:             meta.DisplayName,
		TopicsJSON:        topicsJSON,
		PrerequisitesJSON: prereqJSON,
		RawTextMD5:        meta.RawTextMD5,
		OriginalPathOSS:   meta.OriginalPathOSS,
		ParsedTextPath:    meta.ParsedTextPath,
	}, nil
}
