package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/outbox"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// outboxRepository 发件箱仓储
type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository 创建发件箱仓储
func NewOutboxRepository(db *gorm.DB) outbox.Repository {
	return &outboxRepository{db: db}
}

// Append 写入事件(复用调用方的事务)
func (r *outboxRepository) Append(ctx context.Context, e *outbox.Event) error {
	model := &OutboxEventModel{
		EventID:     e.EventID,
		Type:        e.Type,
		AggregateID: e.AggregateID,
		Payload:     e.Payload,
		Status:      int(e.Status),
		CreatedAt:   e.CreatedAt,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入发件箱失败")
	}
	e.ID = model.ID
	return nil
}

// FetchPending 按写入顺序取待投递事件
func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]*outbox.Event, error) {
	var models []OutboxEventModel
	err := dbFromContext(ctx, r.db).
		Where("status = ?", int(outbox.StatusPending)).
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询发件箱失败")
	}

	events := make([]*outbox.Event, len(models))
	for i, m := range models {
		events[i] = &outbox.Event{
			ID:          m.ID,
			EventID:     m.EventID,
			Type:        m.Type,
			AggregateID: m.AggregateID,
			Payload:     m.Payload,
			Status:      outbox.Status(m.Status),
			Attempts:    m.Attempts,
			LastError:   m.LastError,
			CreatedAt:   m.CreatedAt,
			SentAt:      m.SentAt,
		}
	}
	return events, nil
}

// MarkSent 标记已投递
func (r *outboxRepository) MarkSent(ctx context.Context, id uint, sentAt time.Time) error {
	err := dbFromContext(ctx, r.db).Model(&OutboxEventModel{}).
		Where("id = ? AND status = ?", id, int(outbox.StatusPending)).
		Updates(map[string]interface{}{
			"status":   int(outbox.StatusSent),
			"sent_at":  sentAt,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
	if err != nil {
		return apperrors.Wrap(err, "更新发件箱失败")
	}
	return nil
}

// MarkAttemptFailed 记录失败,达到上限转为死信
func (r *outboxRepository) MarkAttemptFailed(ctx context.Context, id uint, reason string) error {
	if len(reason) > 500 {
		reason = reason[:500]
	}

	db := dbFromContext(ctx, r.db)
	err := db.Model(&OutboxEventModel{}).
		Where("id = ? AND status = ?", id, int(outbox.StatusPending)).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
	if err != nil {
		return apperrors.Wrap(err, "更新发件箱失败")
	}

	// 单独一条语句转死信:MySQL的SET按从左到右求值,与计数放在一起时读到的attempts不确定
	err = db.Model(&OutboxEventModel{}).
		Where("id = ? AND status = ? AND attempts >= ?", id, int(outbox.StatusPending), outbox.MaxAttempts).
		Update("status", int(outbox.StatusDead)).Error
	if err != nil {
		return apperrors.Wrap(err, "更新发件箱失败")
	}
	return nil
}
