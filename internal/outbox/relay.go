package outbox

import (
	"context"
	"log"
	"time"

	"talent-match-go/internal/storage"
	"talent-match-go/internal/storage/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 10
	maxRetryCount          = 5
)

// MessageRelay 轮询 outbox 表并把档案处理事件发布到消息代理。
// 事件写入与业务落库在同一事务内完成，发布由中继异步补偿，
// 保证处理结果与对外通知的最终一致。
type MessageRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	logger          *log.Logger
	pollingInterval time.Duration
	batchSize       int
	done            chan struct{}
	tracer          trace.Tracer
}

// NewMessageRelay 创建消息中继
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ, logger *log.Logger) *MessageRelay {
	return &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("talent-match-go/outbox"),
	}
}

// Start 启动后台轮询
func (r *MessageRelay) Start() {
	r.logger.Println("消息中继启动")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				r.logger.Println("消息中继已停止")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					r.logger.Printf("处理待发布消息失败: %v", err)
				}
			}
		}
	}()
}

// Stop 优雅停止中继
func (r *MessageRelay) Stop() {
	r.logger.Println("消息中继停止中")
	close(r.done)
}

// processPendingMessages 取一批 PENDING 消息发布并更新状态。
// FOR UPDATE SKIP LOCKED 让多实例部署下各实例处理互不重叠的消息。
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		r.logger.Printf("查询待发布消息失败: %v", err)
		return err
	}

	// 空轮询不建span
	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	r.logger.Printf("取到 %d 条待发布消息", len(messages))

	for _, msg := range messages {
		err := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true,
		)

		if err != nil {
			r.logger.Printf("发布消息 ID %d (AggregateID: %s) 失败: %v，重试次数: %d", msg.ID, msg.AggregateID, err, msg.RetryCount+1)
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= maxRetryCount {
				msg.Status = models.OutboxStatusFailed
			}
		} else {
			msg.Status = models.OutboxStatusSent
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		if err := tx.Save(&msg).Error; err != nil {
			r.logger.Printf("更新消息 ID %d 状态失败: %v", msg.ID, err)
			// 事务回滚后该消息保持 PENDING，下轮重新拾取
			return err
		}
	}

	return tx.Commit().Error
}
