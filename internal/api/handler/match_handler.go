package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"talent-match-go/internal/config"
	"talent-match-go/internal/matcher"
	storage2 "talent-match-go/internal/storage"
	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/types"

	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

// ErrMatchInProgress 同一需求的推荐计算正在进行中
var ErrMatchInProgress = errors.New("该需求的推荐计算正在进行中")

// ErrRequirementNotFound 需求档案不存在
var ErrRequirementNotFound = errors.New("需求档案不存在")

// 推荐流水线参数
const (
	// 向量召回上限，召回后再做精确评分与截断
	recommendRecallLimit = 200
	// 推荐计算分布式锁的持有时长
	matchLockExpiration = 30 * time.Second
	// 推荐会话缓存时长
	matchSessionTTL = 30 * time.Minute
)

// MatchHandler 推荐与匹配查询处理器
type MatchHandler struct {
	cfg     *config.Config
	storage *storage2.Storage
	scorer  *matcher.CompatibilityScorer
	logger  *log.Logger
}

// NewMatchHandler 创建匹配处理器。权重配置非法时直接返回错误，不降级。
func NewMatchHandler(cfg *config.Config, storage *storage2.Storage) (*MatchHandler, error) {
	var opts []matcher.ScorerOption
	if cfg.Matcher.DistanceAnomalyThreshold > 0 {
		opts = append(opts, matcher.WithAnomalyThreshold(cfg.Matcher.DistanceAnomalyThreshold))
	}
	scorer, err := matcher.NewCompatibilityScorer(cfg.Matcher.Weights, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建评分器失败: %w", err)
	}
	return &MatchHandler{
		cfg:     cfg,
		storage: storage,
		scorer:  scorer,
		logger:  log.New(os.Stderr, "[MatchHandler] ", log.LstdFlags),
	}, nil
}

// RecommendationResponse 推荐接口响应
type RecommendationResponse struct {
	SessionID       string               `json:"session_id"`
	RequirementID   string               `json:"requirement_id"`
	TotalCandidates int                  `json:"total_candidates"`
	Matches         []*types.ScoredMatch `json:"matches"`
}

// RecommendCandidates 执行完整的推荐流水线：
// 需求向量召回、关系镜像回查、加权评分、排序截断、结果落库与会话缓存。
func (h *MatchHandler) RecommendCandidates(ctx context.Context, requirementID string, topN int) (*RecommendationResponse, error) {
	startTime := time.Now()
	if topN <= 0 {
		topN = h.cfg.Matcher.DefaultTopN
	}
	if topN <= 0 {
		topN = 10
	}

	// 分布式锁防止同一需求的并发重复计算
	var lockValue string
	if h.storage.Redis != nil {
		value, err := h.storage.Redis.AcquireMatchLock(ctx, requirementID, matchLockExpiration)
		if err != nil {
			h.logger.Printf("警告: 获取推荐锁失败: %v，继续执行", err)
		} else if value == "" {
			return nil, ErrMatchInProgress
		} else {
			lockValue = value
			defer func() {
				if _, err := h.storage.Redis.ReleaseMatchLock(ctx, requirementID, lockValue); err != nil {
					h.logger.Printf("警告: 释放推荐锁失败: %v", err)
				}
			}()
		}
	}

	// 1. 加载需求档案
	requirementRecord, err := h.storage.MySQL.GetRequirementByID(ctx, requirementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequirementNotFound
		}
		return nil, fmt.Errorf("查询需求档案失败: %w", err)
	}
	requirement := requirementRecord.ToEntityProfile()

	// 2. 获取需求向量：优先读缓存，未命中回源向量库
	queryVector, err := h.requirementVector(ctx, requirementID)
	if err != nil {
		return nil, fmt.Errorf("获取需求向量失败: %w", err)
	}

	// 3. 向量召回候选人
	results, err := h.storage.Vectors.SearchSimilarProfiles(ctx, queryVector, types.KindCandidateProfile, recommendRecallLimit)
	if err != nil {
		return nil, fmt.Errorf("向量搜索失败: %w", err)
	}
	h.logger.Printf("向量召回 %d 个候选人 for 需求 %s", len(results), requirementID)

	// 4. 回查关系镜像并评分
	matches := h.scoreSearchResults(ctx, requirement, results)

	// 5. 排序与截断
	ranked := matcher.Rank(matches)
	top := matcher.TopN(ranked, topN)

	// 6. 结果落库并缓存会话
	sessionUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成会话ID失败: %w", err)
	}
	sessionID := sessionUUID.String()

	if err := h.persistMatchResults(ctx, sessionID, requirementID, top); err != nil {
		h.logger.Printf("警告: 保存匹配结果失败: %v", err)
	}
	if h.storage.Redis != nil {
		if err := h.storage.Redis.CacheMatchSession(ctx, requirementID, top, matchSessionTTL); err != nil {
			h.logger.Printf("警告: 缓存推荐会话失败: %v", err)
		}
	}

	h.logger.Printf("推荐流水线完成 for 需求 %s，耗时 %v，返回 %d 个结果",
		requirementID, time.Since(startTime), len(top))

	return &RecommendationResponse{
		SessionID:       sessionID,
		RequirementID:   requirementID,
		TotalCandidates: len(matches),
		Matches:         top,
	}, nil
}

// requirementVector 取需求向量，缓存未命中时从向量库回源
func (h *MatchHandler) requirementVector(ctx context.Context, requirementID string) ([]float64, error) {
	if h.storage.Redis != nil {
		vector, _, err := h.storage.Redis.GetProfileVector(ctx, types.KindRequirementProfile, requirementID)
		if err == nil && len(vector) > 0 {
			return vector, nil
		}
	}
	return h.storage.Vectors.GetProfileVector(ctx, types.KindRequirementProfile, requirementID)
}

// scoreSearchResults 把向量召回结果转化为完整评分。
// 缺失关系镜像的候选人跳过；异常距离的语义分量记0但仍参与评分。
func (h *MatchHandler) scoreSearchResults(ctx context.Context, requirement *types.EntityProfile, results []storage2.SearchResult) []*types.ScoredMatch {
	matches := make([]*types.ScoredMatch, 0, len(results))
	for _, res := range results {
		identifier := res.Identifier()
		if identifier == "" {
			continue
		}
		record, err := h.storage.MySQL.GetCandidateByID(ctx, identifier)
		if err != nil {
			h.logger.Printf("警告: 候选人 %s 关系镜像缺失，跳过: %v", identifier, err)
			continue
		}
		candidate := record.ToEntityProfile()

		semantic, anomalous := h.scorer.SimilarityFromDistance(float64(res.Score))
		if anomalous {
			h.logger.Printf("警告: 候选人 %s 语义距离异常 (%.4f)，语义分量记0", identifier, res.Score)
		}
		matches = append(matches, h.scorer.Score(candidate, requirement, semantic))
	}
	return matches
}

// persistMatchResults 把一次推荐会话的结果写入历史表
func (h *MatchHandler) persistMatchResults(ctx context.Context, sessionID, requirementID string, matches []*types.ScoredMatch) error {
	if len(matches) == 0 {
		return nil
	}
	records := make([]models.MatchResult, 0, len(matches))
	for _, m := range matches {
		explanationJSON, err := json.Marshal(m.Explanation)
		if err != nil {
			return fmt.Errorf("序列化匹配解释失败: %w", err)
		}
		records = append(records, models.MatchResult{
			SessionID:       sessionID,
			RequirementID:   requirementID,
			CandidateID:     m.CandidateID,
			FinalScore:      m.FinalScore,
			SemanticScore:   m.Components.Semantic,
			SkillScore:      m.Components.Skill,
			ExperienceScore: m.Components.Experience,
			EducationScore:  m.Components.Education,
			ExplanationJSON: explanationJSON,
		})
	}
	return h.storage.MySQL.SaveMatchResults(ctx, records)
}

// MatchHistoryEntry 历史匹配记录条目
type MatchHistoryEntry struct {
	SessionID   string                  `json:"session_id"`
	CandidateID string                  `json:"candidate_id"`
	FinalScore  float64                 `json:"final_score"`
	Components  types.ComponentScores   `json:"component_scores"`
	Explanation *types.MatchExplanation `json:"explanation,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// GetMatchHistory 查询某个需求最近的匹配历史
func (h *MatchHandler) GetMatchHistory(ctx context.Context, requirementID string, limit int) ([]MatchHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := h.storage.MySQL.GetMatchHistory(ctx, requirementID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询匹配历史失败: %w", err)
	}

	entries := make([]MatchHistoryEntry, 0, len(records))
	for _, r := range records {
		entry := MatchHistoryEntry{
			SessionID:   r.SessionID,
			CandidateID: r.CandidateID,
			FinalScore:  r.FinalScore,
			Components: types.ComponentScores{
				Semantic:   r.SemanticScore,
				Skill:      r.SkillScore,
				Experience: r.ExperienceScore,
				Education:  r.EducationScore,
			},
			CreatedAt: r.CreatedAt,
		}
		if len(r.ExplanationJSON) > 0 {
			var explanation types.MatchExplanation
			if err := json.Unmarshal(r.ExplanationJSON, &explanation); err == nil {
				entry.Explanation = &explanation
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SkillSearchResult 技能检索结果条目
type SkillSearchResult struct {
	CandidateID     string `json:"candidate_id"`
	MatchedSkills   int    `json:"matched_skills"`
	ExperienceYears int    `json:"experience_years"`
}

// SearchCandidatesBySkills 按技能集合检索候选人，命中技能数降序
func (h *MatchHandler) SearchCandidatesBySkills(ctx context.Context, skills []string, minMatch, limit int) ([]SkillSearchResult, error) {
	if len(skills) == 0 {
		return nil, fmt.Errorf("技能列表不能为空")
	}
	if minMatch <= 0 {
		minMatch = 1
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.storage.MySQL.FindCandidatesBySkills(ctx, skills, minMatch, limit)
	if err != nil {
		return nil, fmt.Errorf("按技能检索候选人失败: %w", err)
	}
	results := make([]SkillSearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, SkillSearchResult{
			CandidateID:     row.CandidateID,
			MatchedSkills:   row.MatchedSkills,
			ExperienceYears: row.ExperienceYears,
		})
	}
	return results, nil
}

// StatsResponse 语料统计响应
type StatsResponse struct {
	CandidateCount   int64                `json:"candidate_count"`
	RequirementCount int64                `json:"requirement_count"`
	TopSkills        []storage2.SkillCount `json:"top_skills"`
}

// GetStats 汇总档案数量与高频技能
func (h *MatchHandler) GetStats(ctx context.Context, topSkillLimit int) (*StatsResponse, error) {
	if topSkillLimit <= 0 {
		topSkillLimit = 20
	}
	candidates, requirements, err := h.storage.MySQL.CountProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计档案数量失败: %w", err)
	}
	topSkills, err := h.storage.MySQL.TopSkills(ctx, topSkillLimit)
	if err != nil {
		return nil, fmt.Errorf("统计高频技能失败: %w", err)
	}
	return &StatsResponse{
		CandidateCount:   candidates,
		RequirementCount: requirements,
		TopSkills:        topSkills,
	}, nil
}
