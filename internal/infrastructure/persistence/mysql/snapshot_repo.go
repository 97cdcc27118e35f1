package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/borrow"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// snapshotRepository 借阅人视图投影(与借阅表同库,跟随业务事务写入)
type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository 创建投影仓储
func NewSnapshotRepository(db *gorm.DB) borrow.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Append 新增投影条目
func (r *snapshotRepository) Append(ctx context.Context, s *borrow.Snapshot) error {
	model := &BorrowSnapshotModel{
		BorrowID:      s.BorrowID,
		UserID:        s.UserID,
		TitleID:       s.TitleID,
		TitleName:     s.TitleName,
		CopyCode:      s.CopyCode,
		BorrowedAt:    s.BorrowedAt,
		DueDate:       s.DueDate,
		RenewCount:    s.RenewCount,
		LastRenewedAt: s.LastRenewedAt,
		Returned:      s.Returned,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入借阅投影失败")
	}
	return nil
}

// MirrorRenewal 同步续借字段
func (r *snapshotRepository) MirrorRenewal(ctx context.Context, borrowID uint, dueDate time.Time, renewCount int, lastRenewedAt time.Time) error {
	err := dbFromContext(ctx, r.db).Model(&BorrowSnapshotModel{}).
		Where("borrow_id = ?", borrowID).
		Updates(map[string]interface{}{
			"due_date":        dueDate,
			"renew_count":     renewCount,
			"last_renewed_at": lastRenewedAt,
		}).Error
	if err != nil {
		return apperrors.Wrap(err, "同步借阅投影失败")
	}
	return nil
}

// MarkReturned 标记投影已归还
func (r *snapshotRepository) MarkReturned(ctx context.Context, borrowID uint) error {
	err := dbFromContext(ctx, r.db).Model(&BorrowSnapshotModel{}).
		Where("borrow_id = ?", borrowID).
		Update("returned", true).Error
	if err != nil {
		return apperrors.Wrap(err, "同步借阅投影失败")
	}
	return nil
}

// ListByUser 用户的全部投影条目
func (r *snapshotRepository) ListByUser(ctx context.Context, userID uint) ([]*borrow.Snapshot, error) {
	var models []BorrowSnapshotModel
	err := dbFromContext(ctx, r.db).
		Where("user_id = ?", userID).
		Order("borrowed_at DESC").Order("borrow_id DESC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询借阅投影失败")
	}

	list := make([]*borrow.Snapshot, len(models))
	for i, m := range models {
		list[i] = &borrow.Snapshot{
			BorrowID:      m.BorrowID,
			UserID:        m.UserID,
			TitleID:       m.TitleID,
			TitleName:     m.TitleName,
			CopyCode:      m.CopyCode,
			BorrowedAt:    m.BorrowedAt,
			DueDate:       m.DueDate,
			RenewCount:    m.RenewCount,
			LastRenewedAt: m.LastRenewedAt,
			Returned:      m.Returned,
		}
	}
	return list, nil
}
