package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/title"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// titleRepository 书目仓储实现(MySQL)
type titleRepository struct {
	db *gorm.DB
}

// NewTitleRepository 创建书目仓储
func NewTitleRepository(db *gorm.DB) title.Repository {
	return &titleRepository{db: db}
}

// Create 创建书目
func (r *titleRepository) Create(ctx context.Context, t *title.Title) error {
	model := &TitleModel{
		ISBN:            t.ISBN,
		Name:            t.Name,
		Author:          t.Author,
		Publisher:       t.Publisher,
		Price:           t.Price,
		Description:     t.Description,
		TotalCopies:     t.TotalCopies,
		AvailableCopies: t.AvailableCopies,
		IsAvailable:     t.IsAvailable,
	}

	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return title.ErrISBNDuplicate
		}
		return apperrors.Wrap(err, "创建书目失败")
	}

	t.ID = model.ID
	t.CreatedAt = model.CreatedAt
	t.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找书目
func (r *titleRepository) FindByID(ctx context.Context, id uint) (*title.Title, error) {
	var model TitleModel
	if err := dbFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		return nil, r.notFound(err)
	}
	return toTitleEntity(&model), nil
}

// FindByISBN 根据ISBN查找书目
func (r *titleRepository) FindByISBN(ctx context.Context, isbn string) (*title.Title, error) {
	var model TitleModel
	if err := dbFromContext(ctx, r.db).Where("isbn = ?", isbn).First(&model).Error; err != nil {
		return nil, r.notFound(err)
	}
	return toTitleEntity(&model), nil
}

// LockByID 悲观锁查询书目
// 教学要点:SELECT ... FOR UPDATE必须在事务里执行才有意义
func (r *titleRepository) LockByID(ctx context.Context, id uint) (*title.Title, error) {
	var model TitleModel
	err := dbFromContext(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, id).Error
	if err != nil {
		return nil, r.notFound(err)
	}
	return toTitleEntity(&model), nil
}

// UpdateCounters 写入派生计数
func (r *titleRepository) UpdateCounters(ctx context.Context, id uint, total, available int) error {
	result := dbFromContext(ctx, r.db).Model(&TitleModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_copies":     total,
			"available_copies": available,
			"is_available":     available > 0,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新书目计数失败")
	}
	// MySQL只统计实际发生变化的行,计数没变时RowsAffected为0,不能据此判断不存在
	return nil
}

// Delete 归档书目(软删除)
func (r *titleRepository) Delete(ctx context.Context, id uint) error {
	result := dbFromContext(ctx, r.db).Delete(&TitleModel{}, id)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "归档书目失败")
	}
	if result.RowsAffected == 0 {
		return title.ErrTitleNotFound
	}
	return nil
}

// Restore 撤销归档
// 已归档的书目对普通查询不可见,这里必须用Unscoped
func (r *titleRepository) Restore(ctx context.Context, id uint) (bool, error) {
	db := dbFromContext(ctx, r.db)

	var model TitleModel
	if err := db.Unscoped().First(&model, id).Error; err != nil {
		return false, r.notFound(err)
	}
	if !model.DeletedAt.Valid {
		return false, nil
	}

	result := db.Unscoped().Model(&TitleModel{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "恢复书目失败")
	}
	return result.RowsAffected > 0, nil
}

// List 分页查询书目
func (r *titleRepository) List(ctx context.Context, params title.ListParams) ([]*title.Title, int64, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	query := dbFromContext(ctx, r.db).Model(&TitleModel{})
	if params.Keyword != "" {
		keyword := "%" + params.Keyword + "%"
		query = query.Where("name LIKE ? OR author LIKE ? OR publisher LIKE ?", keyword, keyword, keyword)
	}
	if params.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询书目总数失败")
	}

	switch params.SortBy {
	case "price_asc":
		query = query.Order("price ASC")
	case "price_desc":
		query = query.Order("price DESC")
	default:
		query = query.Order("created_at DESC")
	}
	query = query.Order("id DESC")

	var models []TitleModel
	if err := query.Limit(pageSize).Offset((page - 1) * pageSize).Find(&models).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询书目列表失败")
	}

	titles := make([]*title.Title, len(models))
	for i := range models {
		titles[i] = toTitleEntity(&models[i])
	}
	return titles, total, nil
}

func (r *titleRepository) notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return title.ErrTitleNotFound
	}
	return apperrors.Wrap(err, "查询书目失败")
}

// toTitleEntity GORM模型 → 领域实体
func toTitleEntity(model *TitleModel) *title.Title {
	return &title.Title{
		ID:              model.ID,
		ISBN:            model.ISBN,
		Name:            model.Name,
		Author:          model.Author,
		Publisher:       model.Publisher,
		Price:           model.Price,
		Description:     model.Description,
		TotalCopies:     model.TotalCopies,
		AvailableCopies: model.AvailableCopies,
		IsAvailable:     model.IsAvailable,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
