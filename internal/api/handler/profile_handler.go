package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"talent-match-go/internal/config"
	"talent-match-go/internal/logger"
	"talent-match-go/internal/processor"
	storage2 "talent-match-go/internal/storage"
	"talent-match-go/internal/types"
	"talent-match-go/pkg/utils"
)

// ProfileHandler 档案文档摄取处理器，负责上传入口与消费端的协调
type ProfileHandler struct {
	cfg     *config.Config
	storage *storage2.Storage
	service processor.ProfileService
}

// NewProfileHandler 创建档案摄取处理器
func NewProfileHandler(cfg *config.Config, storage *storage2.Storage, service processor.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		cfg:     cfg,
		storage: storage,
		service: service,
	}
}

// DocumentUploadResponse 文档上传响应
type DocumentUploadResponse struct {
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
}

// 上传状态取值
const (
	StatusSubmitted        = "SUBMITTED_FOR_PROCESSING"
	StatusDuplicateSkipped = "DUPLICATE_FILE_SKIPPED"
)

// HandleDocumentUpload 处理档案文档上传请求。
// 原始文档先归档到对象存储，再投递消息触发异步摄取。
func (h *ProfileHandler) HandleDocumentUpload(ctx context.Context, kind types.ProfileKind, identifier string,
	reader io.Reader, fileSize int64, filename string, displayName string, sourceChannel string) (*DocumentUploadResponse, error) {

	if identifier == "" {
		return nil, fmt.Errorf("档案标识符不能为空")
	}

	// 读取文件内容并计算MD5 (reader只能读一次，上传前需要缓存)
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}
	if len(fileBytes) == 0 {
		return nil, fmt.Errorf("上传文件内容为空")
	}
	fileMD5Hex := utils.CalculateMD5(fileBytes)

	// 基于文件MD5的前置去重，Redis不可用时跳过，后续消费端还有一道文本去重
	if h.storage.Redis != nil {
		exists, existingID, err := h.storage.Redis.CheckAndSetDocumentMD5(ctx, fileMD5Hex, identifier)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("md5", fileMD5Hex).
				Msg("查询文档MD5去重集合失败，继续处理")
		} else if exists && existingID != "" && existingID != identifier {
			logger.Info().
				Str("md5", fileMD5Hex).
				Str("filename", filename).
				Str("duplicate_of", existingID).
				Msg("检测到重复的文件MD5，跳过处理")
			return &DocumentUploadResponse{
				Identifier: identifier,
				Kind:       string(kind),
				Status:     StatusDuplicateSkipped,
			}, nil
		}
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".txt"
	}

	// 上传原始文档到对象存储
	originalObjectKey, err := h.storage.MinIO.UploadProfileDocument(ctx, kind, identifier, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		return nil, fmt.Errorf("上传文档到对象存储失败: %w", err)
	}

	// 投递上传事件，消费端完成抽取与同步
	message := &storage2.DocumentUploadMessage{
		Identifier:       identifier,
		Kind:             kind,
		UploadedAt:       time.Now(),
		SourceChannel:    sourceChannel,
		OriginalFilename: filename,
		OriginalPathOSS:  originalObjectKey,
		RawFileMD5:       fileMD5Hex,
		DisplayName:      displayName,
	}
	if err := h.storage.RabbitMQ.PublishDocumentUploaded(ctx, message); err != nil {
		return nil, fmt.Errorf("发布上传消息失败: %w", err)
	}

	logger.Info().
		Str("identifier", identifier).
		Str("kind", string(kind)).
		Str("object_key", originalObjectKey).
		Msg("文档已接收并进入摄取队列")

	return &DocumentUploadResponse{
		Identifier: identifier,
		Kind:       string(kind),
		Status:     StatusSubmitted,
	}, nil
}

// StartIngestConsumers 启动候选人与需求两个摄取队列的消费者。
// 返回的通道在对应消费者退出时关闭。
func (h *ProfileHandler) StartIngestConsumers(ctx context.Context) ([]<-chan struct{}, error) {
	if h.storage.RabbitMQ == nil {
		return nil, fmt.Errorf("消息队列未初始化")
	}
	if h.service == nil {
		return nil, fmt.Errorf("档案处理服务未初始化")
	}

	prefetch := h.cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}

	handlerFn := processor.NewDocumentUploadHandler(h.service)
	queues := []string{
		h.cfg.RabbitMQ.CandidateIngestQueue,
		h.cfg.RabbitMQ.RequirementIngestQueue,
	}

	var done []<-chan struct{}
	for _, queue := range queues {
		if queue == "" {
			continue
		}
		workers := h.consumerWorkers(queue)
		for i := 0; i < workers; i++ {
			ch, err := h.storage.RabbitMQ.StartConsumer(queue, prefetch, handlerFn)
			if err != nil {
				return nil, fmt.Errorf("启动队列 %s 消费者失败: %w", queue, err)
			}
			done = append(done, ch)
		}
		logger.Info().
			Str("queue", queue).
			Int("workers", workers).
			Int("prefetch", prefetch).
			Msg("摄取消费者已启动")
	}
	return done, nil
}

// consumerWorkers 读取每个队列的消费者并发数，默认1
func (h *ProfileHandler) consumerWorkers(queue string) int {
	if n, ok := h.cfg.RabbitMQ.ConsumerWorkers[queue]; ok && n > 0 {
		return n
	}
	return 1
}

// GetCandidate 查询单个候选人档案
func (h *ProfileHandler) GetCandidate(ctx context.Context, candidateID string) (*types.EntityProfile, error) {
	record, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return record.ToEntityProfile(), nil
}

// GetRequirement 查询单个需求档案
func (h *ProfileHandler) GetRequirement(ctx context.Context, requirementID string) (*types.EntityProfile, error) {
	record, err := h.storage.MySQL.GetRequirementByID(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	return record.ToEntityProfile(), nil
}

// DeleteCandidate 删除候选人档案：关系镜像、向量点与去重记录一并清理
func (h *ProfileHandler) DeleteCandidate(ctx context.Context, candidateID string) error {
	record, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		return err
	}

	if err := h.storage.MySQL.DeleteCandidate(ctx, candidateID); err != nil {
		return fmt.Errorf("删除候选人记录失败: %w", err)
	}

	if h.storage.Vectors != nil {
		if err := h.storage.Vectors.DeleteProfileVector(ctx, types.KindCandidateProfile, candidateID); err != nil {
			logger.Warn().Err(err).Str("identifier", candidateID).Msg("删除候选人向量失败")
		}
	}
	if h.storage.Redis != nil && record.RawTextMD5 != "" {
		if err := h.storage.Redis.RemoveDocumentMD5(ctx, record.RawTextMD5); err != nil {
			logger.Warn().Err(err).Str("identifier", candidateID).Msg("清理去重记录失败")
		}
	}
	return nil
}
