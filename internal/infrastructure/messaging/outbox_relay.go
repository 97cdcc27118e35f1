// Package messaging 发件箱事件的后台投递
package messaging

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
)

// Publisher 消息发布方(由mq.Publisher实现)
type Publisher interface {
	Publish(ctx context.Context, msg mq.Message) error
}

// Relay 发件箱投递器
// 设计说明:
// 1. 按写入顺序轮询待投递事件,逐条发布,成功后标记已投递
// 2. 至少一次投递:发布成功但标记失败时,下一轮会重复发布,消费端按MessageId去重
// 3. broker不可用时熔断器打开,本轮剩余事件直接跳过,不消耗重试次数
type Relay struct {
	repo      outbox.Repository
	publisher Publisher
	breaker   *circuitbreaker.CircuitBreaker
	batchSize int
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewRelay 创建投递器
func NewRelay(repo outbox.Repository, publisher Publisher, breaker *circuitbreaker.CircuitBreaker, batchSize int, interval time.Duration, logger *zap.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		repo:      repo,
		publisher: publisher,
		breaker:   breaker,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger.Named("outbox"),
		now:       time.Now,
	}
}

// Start 阻塞运行直到ctx取消
func (r *Relay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", zap.Duration("interval", r.interval), zap.Int("batch_size", r.batchSize))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("outbox relay round failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce 投递一批事件,返回成功投递的数量
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	events, err := r.repo.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	metrics.OutboxBacklog.Set(float64(len(events)))

	sent := 0
	for _, e := range events {
		err := r.breaker.Execute(ctx, func(ctx context.Context) error {
			return r.publisher.Publish(ctx, mq.Message{
				ID:         e.EventID,
				RoutingKey: e.Type,
				Body:       e.Payload,
				Timestamp:  e.CreatedAt,
			})
		})

		switch {
		case err == nil:
			if err := r.repo.MarkSent(ctx, e.ID, r.now()); err != nil {
				return sent, err
			}
			sent++
		case errors.Is(err, circuitbreaker.ErrOpenState):
			r.logger.Warn("broker unavailable, postpone remaining events", zap.Int("remaining", len(events)-sent))
			return sent, nil
		case ctx.Err() != nil:
			return sent, ctx.Err()
		default:
			r.logger.Warn("publish event failed",
				zap.String("event_id", e.EventID),
				zap.String("type", e.Type),
				zap.Int("attempts", e.Attempts+1),
				zap.Error(err),
			)
			if e.Attempts+1 >= outbox.MaxAttempts {
				r.logger.Error("event moved to dead letter", zap.String("event_id", e.EventID), zap.String("type", e.Type))
			}
			if err := r.repo.MarkAttemptFailed(ctx, e.ID, err.Error()); err != nil {
				return sent, err
			}
		}
	}
	return sent, nil
}
