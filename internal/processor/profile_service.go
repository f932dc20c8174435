package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"talent-match-go/internal/config"
	"talent-match-go/internal/logger"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/tracing"
	"talent-match-go/internal/types"
	"talent-match-go/pkg/utils"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("talent-match-go/processor")

// ProfileService 定义文档摄取消费端的业务入口
type ProfileService interface {
	// ProcessUploadedDocument 处理一条文档上传消息：
	// 下载原始文档、内容去重、归档解析文本、抽取档案并同步双存储
	ProcessUploadedDocument(ctx context.Context, message storage.DocumentUploadMessage) error
}

type profileServiceImpl struct {
	config    *config.Config
	processor *ProfileProcessor
}

// NewProfileService 创建文档处理服务
func NewProfileService(cfg *config.Config, storageManager *storage.Storage) (ProfileService, error) {
	proc, err := NewProcessorFromConfig(cfg, storageManager)
	if err != nil {
		return nil, fmt.Errorf("创建档案处理器失败: %w", err)
	}
	return &profileServiceImpl{
		config:    cfg,
		processor: proc,
	}, nil
}

// NewProfileServiceWithProcessor 使用外部构建好的处理器创建服务，测试时替换组件用
func NewProfileServiceWithProcessor(cfg *config.Config, proc *ProfileProcessor) ProfileService {
	return &profileServiceImpl{
		config:    cfg,
		processor: proc,
	}
}

func (s *profileServiceImpl) ProcessUploadedDocument(ctx context.Context, message storage.DocumentUploadMessage) error {
	ctx, span := tracer.Start(ctx, "ProcessUploadedDocument",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("profile.identifier", message.Identifier),
		attribute.String("profile.kind", string(message.Kind)),
		attribute.String("profile.display_name", tracing.SafeAttributeValue("display_name", message.DisplayName, tracing.DefaultMaxLength)),
		attribute.String("source_channel", message.SourceChannel),
	)

	log := logger.Component("profile_service").With().
		Str("identifier", message.Identifier).
		Str("kind", string(message.Kind)).
		Logger()

	log.Debug().Msg("开始处理上传的档案文档")

	if message.Identifier == "" {
		err := fmt.Errorf("消息缺少档案标识符")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.processor.CheckComponentsInitialized(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "组件未初始化")
		return err
	}

	// 1. 从对象存储下载原始文档
	raw, err := s.processor.Storage.MinIO.GetProfileDocument(ctx, message.OriginalPathOSS)
	if err != nil {
		log.Error().Err(err).Str("object_key", message.OriginalPathOSS).Msg("下载原始文档失败")
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "download_failure"))
		span.SetStatus(codes.Error, "下载失败")
		return NewDownloadError(message.Identifier, err.Error())
	}
	text := string(raw)
	span.SetAttributes(
		attribute.Int("text_length", len(text)),
		attribute.String("text_preview", tracing.SafeProfileContent(text)),
	)
	log.Debug().Int("text_length", len(text)).Msg("原始文档下载成功")

	// 2. 基于文本MD5做内容去重
	textMD5 := message.RawFileMD5
	if !utils.IsValidMD5Hex(textMD5) {
		textMD5 = utils.CalculateMD5(raw)
	}
	if s.processor.Storage.Redis != nil {
		exists, existingID, dedupErr := s.processor.Storage.Redis.CheckAndSetDocumentMD5(ctx, textMD5, message.Identifier)
		if dedupErr != nil {
			log.Warn().Err(dedupErr).Msg("内容去重检查失败，继续处理，但去重可能失效")
		} else if exists && existingID != "" && existingID != message.Identifier {
			// 相同标识符重新摄取是整体替换，不视为重复
			span.SetAttributes(
				attribute.Bool("duplicate_content", true),
				attribute.String("duplicate_of", existingID),
			)
			span.SetStatus(codes.Ok, "重复内容已跳过")
			log.Info().Str("md5", textMD5).Str("duplicate_of", existingID).Msg("检测到重复文档内容，跳过处理")
			return NewDuplicateError(message.Identifier, fmt.Sprintf("与档案 %s 内容相同", existingID))
		}
	}

	// 3. 归档解析文本
	span.AddEvent("uploading_parsed_text")
	parsedKey, err := s.processor.Storage.MinIO.UploadParsedText(ctx, message.Kind, message.Identifier, text)
	if err != nil {
		log.Error().Err(err).Msg("上传解析文本失败")
		span.RecordError(err)
		span.SetStatus(codes.Error, "解析文本归档失败")
		return NewStoreTextError(message.Identifier, err.Error())
	}
	log.Debug().Str("object_key", parsedKey).Msg("解析文本已归档")

	// 4. 抽取档案、向量化并同步双存储
	meta := DocumentMeta{
		DisplayName:     message.DisplayName,
		RawTextMD5:      textMD5,
		OriginalPathOSS: message.OriginalPathOSS,
		ParsedTextPath:  parsedKey,
	}

	var profile *types.EntityProfile
	var pointID string
	if message.Kind == types.KindRequirementProfile {
		profile, pointID, err = s.processor.ProcessRequirementDocument(ctx, message.Identifier, text, meta)
	} else {
		profile, pointID, err = s.processor.ProcessCandidateDocument(ctx, message.Identifier, text, meta)
	}
	if err != nil {
		log.Error().Err(err).Msg("档案处理失败")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// 5. 记录处理完成事件到outbox，由中继异步对外发布
	s.writeProcessedEvent(ctx, &message, parsedKey, pointID, &log)

	span.SetAttributes(
		attribute.String("vector.point_id", pointID),
		attribute.Int("profile.skill_count", len(profile.Skills)),
	)
	span.SetStatus(codes.Ok, "处理成功")
	log.Info().
		Str("point_id", pointID).
		Int("skill_count", len(profile.Skills)).
		Int("experience_years", profile.ExperienceYears).
		Msg("档案处理成功完成")
	return nil
}

// writeProcessedEvent 把处理完成事件写入outbox表，失败只记日志
func (s *profileServiceImpl) writeProcessedEvent(ctx context.Context, message *storage.DocumentUploadMessage, parsedKey, pointID string, log *zerolog.Logger) {
	if s.processor.Storage.MySQL == nil {
		return
	}

	processed := storage.DocumentProcessedMessage{
		Identifier:        message.Identifier,
		Kind:              message.Kind,
		ParsedTextPathOSS: parsedKey,
		ProcessingStatus:  "COMPLETED",
		ProcessedAt:       time.Now().Unix(),
		VectorPointID:     pointID,
	}
	payload, err := json.Marshal(processed)
	if err != nil {
		log.Warn().Err(err).Msg("序列化处理完成事件失败")
		return
	}

	entry := models.OutboxMessage{
		AggregateID:      message.Identifier,
		EventType:        models.EventProfileProcessed,
		Payload:          string(payload),
		TargetExchange:   s.config.RabbitMQ.DocumentEventsExchange,
		TargetRoutingKey: s.config.RabbitMQ.ProfileProcessedKey,
	}
	if err := s.processor.Storage.MySQL.DB().WithContext(ctx).Create(&entry).Error; err != nil {
		log.Warn().Err(err).Msg("写入outbox事件失败")
	}
}

// NewDocumentUploadHandler 把 ProfileService 包装成消息队列消费回调。
// 返回 false 触发 nack 重回队列；重复内容和脏消息直接 ack 丢弃。
func NewDocumentUploadHandler(svc ProfileService) func([]byte) bool {
	log := logger.Component("document_consumer")
	return func(body []byte) bool {
		var message storage.DocumentUploadMessage
		if err := json.Unmarshal(body, &message); err != nil {
			log.Error().Err(err).Msg("反序列化上传消息失败，消息将被丢弃")
			return true // 脏消息重试没有意义
		}

		ctx := context.Background()
		if err := svc.ProcessUploadedDocument(ctx, message); err != nil {
			if errors.Is(err, ErrDuplicateDocument) {
				log.Info().Str("identifier", message.Identifier).Msg("重复文档内容，消息确认后丢弃")
				return true
			}
			log.Error().Err(err).Str("identifier", message.Identifier).Msg("处理上传消息失败，消息将重新入队")
			return false
		}
		return true
	}
}
