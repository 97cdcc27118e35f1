package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// copyRepository 副本仓储实现(MySQL)
// 教学要点:
// 1. 状态流转全部是单条条件UPDATE,RowsAffected==1才算成功
// 2. 候选读取使用FOR UPDATE SKIP LOCKED,并发抢占时互不等待
//    (SQLite没有行锁,方言会忽略该子句,正确性仍由条件UPDATE保证)
type copyRepository struct {
	db *gorm.DB
}

// NewCopyRepository 创建副本仓储
func NewCopyRepository(db *gorm.DB) bookcopy.Repository {
	return &copyRepository{db: db}
}

// CreateBatch 批量创建副本
func (r *copyRepository) CreateBatch(ctx context.Context, copies []*bookcopy.Copy) error {
	if len(copies) == 0 {
		return nil
	}

	models := make([]CopyModel, len(copies))
	for i, c := range copies {
		models[i] = CopyModel{
			TitleID:    c.TitleID,
			CopyNumber: c.CopyNumber,
			CopyCode:   c.CopyCode,
			Status:     int(c.Status),
		}
	}

	if err := dbFromContext(ctx, r.db).CreateInBatches(models, 100).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.New(apperrors.ErrCodeDuplicateEntry, "副本编号冲突,请重试")
		}
		return apperrors.Wrap(err, "创建副本失败")
	}

	for i := range copies {
		copies[i].ID = models[i].ID
		copies[i].CreatedAt = models[i].CreatedAt
		copies[i].UpdatedAt = models[i].UpdatedAt
	}
	return nil
}

// FindByID 查询副本
func (r *copyRepository) FindByID(ctx context.Context, id uint) (*bookcopy.Copy, error) {
	var model CopyModel
	if err := dbFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookcopy.ErrCopyNotFound
		}
		return nil, apperrors.Wrap(err, "查询副本失败")
	}
	return toCopyEntity(&model), nil
}

// MaxCopyNumber 书目下当前最大序号
func (r *copyRepository) MaxCopyNumber(ctx context.Context, titleID uint) (int, error) {
	var maxNumber int
	err := dbFromContext(ctx, r.db).Model(&CopyModel{}).
		Where("title_id = ?", titleID).
		Select("COALESCE(MAX(copy_number), 0)").
		Scan(&maxNumber).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "查询副本序号失败")
	}
	return maxNumber, nil
}

// ListAvailable 在架副本
func (r *copyRepository) ListAvailable(ctx context.Context, titleID uint) ([]*bookcopy.Copy, error) {
	var models []CopyModel
	err := dbFromContext(ctx, r.db).
		Where("title_id = ? AND status = ?", titleID, int(bookcopy.StatusAvailable)).
		Order("copy_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询在架副本失败")
	}

	copies := make([]*bookcopy.Copy, len(models))
	for i := range models {
		copies[i] = toCopyEntity(&models[i])
	}
	return copies, nil
}

// FindAvailableIDs 抢占候选
func (r *copyRepository) FindAvailableIDs(ctx context.Context, titleID uint, limit int) ([]uint, error) {
	var ids []uint
	err := dbFromContext(ctx, r.db).Model(&CopyModel{}).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("title_id = ? AND status = ?", titleID, int(bookcopy.StatusAvailable)).
		Order("copy_number ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询可借副本失败")
	}
	return ids, nil
}

// MarkBorrowed 在架 → 借出
// UPDATE copies SET status=2 WHERE id=? AND title_id=? AND status=1
func (r *copyRepository) MarkBorrowed(ctx context.Context, copyID, titleID uint) (bool, error) {
	result := dbFromContext(ctx, r.db).Model(&CopyModel{}).
		Where("id = ? AND title_id = ? AND status = ?", copyID, titleID, int(bookcopy.StatusAvailable)).
		Update("status", int(bookcopy.StatusBorrowed))
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "抢占副本失败")
	}
	return result.RowsAffected == 1, nil
}

// AssignBorrow 绑定持有借阅
func (r *copyRepository) AssignBorrow(ctx context.Context, copyID, borrowID uint) (bool, error) {
	result := dbFromContext(ctx, r.db).Model(&CopyModel{}).
		Where("id = ? AND status = ? AND current_borrow_id IS NULL", copyID, int(bookcopy.StatusBorrowed)).
		Update("current_borrow_id", borrowID)
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "绑定副本失败")
	}
	return result.RowsAffected == 1, nil
}

// MarkAvailable 借出 → 在架,同时清空持有者
func (r *copyRepository) MarkAvailable(ctx context.Context, copyID, expectedBorrowID uint) (bool, error) {
	result := dbFromContext(ctx, r.db).Model(&CopyModel{}).
		Where("id = ? AND status = ? AND current_borrow_id = ?", copyID, int(bookcopy.StatusBorrowed), expectedBorrowID).
		Updates(map[string]interface{}{
			"status":            int(bookcopy.StatusAvailable),
			"current_borrow_id": gorm.Expr("NULL"),
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "释放副本失败")
	}
	return result.RowsAffected == 1, nil
}

// CountByTitle 全量统计
func (r *copyRepository) CountByTitle(ctx context.Context, titleID uint) (int, int, error) {
	var row struct {
		Total     int
		Available int
	}
	err := dbFromContext(ctx, r.db).Model(&CopyModel{}).
		Where("title_id = ?", titleID).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS available", int(bookcopy.StatusAvailable)).
		Scan(&row).Error
	if err != nil {
		return 0, 0, apperrors.Wrap(err, "统计副本失败")
	}
	return row.Total, row.Available, nil
}

// toCopyEntity GORM模型 → 领域实体
func toCopyEntity(model *CopyModel) *bookcopy.Copy {
	return &bookcopy.Copy{
		ID:              model.ID,
		TitleID:         model.TitleID,
		CopyNumber:      model.CopyNumber,
		CopyCode:        model.CopyCode,
		Status:          bookcopy.Status(model.Status),
		CurrentBorrowID: model.CurrentBorrowID,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
