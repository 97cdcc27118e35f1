package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/borrow"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// borrowRepository 借阅仓储实现(MySQL)
// 教学要点:
// 1. 续借、支付、归还都是条件UPDATE,前置条件写在WHERE里
// 2. MySQL的RowsAffected只统计"实际发生变化"的行,
//    写入值与原值完全相同时也会返回0,需要回读确认
type borrowRepository struct {
	db *gorm.DB
}

// NewBorrowRepository 创建借阅仓储
func NewBorrowRepository(db *gorm.DB) borrow.Repository {
	return &borrowRepository{db: db}
}

// Create 创建借阅
// active_key唯一索引兜底并发的重复借阅
func (r *borrowRepository) Create(ctx context.Context, b *borrow.Borrow) error {
	model := toBorrowModel(b)
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return borrow.ErrDuplicateActiveBorrow
		}
		return apperrors.Wrap(err, "创建借阅失败")
	}

	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 查询借阅
func (r *borrowRepository) FindByID(ctx context.Context, id uint) (*borrow.Borrow, error) {
	var model BorrowModel
	if err := dbFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		return nil, r.notFound(err)
	}
	return toBorrowEntity(&model), nil
}

// FindByTransactionID 根据网关交易号查询
func (r *borrowRepository) FindByTransactionID(ctx context.Context, transactionID string) (*borrow.Borrow, error) {
	if transactionID == "" {
		return nil, borrow.ErrBorrowNotFound
	}

	var model BorrowModel
	err := dbFromContext(ctx, r.db).Where("transaction_id = ?", transactionID).First(&model).Error
	if err != nil {
		return nil, r.notFound(err)
	}
	return toBorrowEntity(&model), nil
}

// ExistsOpen 是否存在未归还借阅
func (r *borrowRepository) ExistsOpen(ctx context.Context, borrowerID, titleID uint) (bool, error) {
	var count int64
	err := dbFromContext(ctx, r.db).Model(&BorrowModel{}).
		Where("active_key = ?", borrow.ActiveKeyFor(borrowerID, titleID)).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(err, "查询借阅失败")
	}
	return count > 0, nil
}

// UpdateRenewal 写入续借结果
// 乐观锁:renew_count作为版本号,两个并发续借只有一个能命中
func (r *borrowRepository) UpdateRenewal(ctx context.Context, b *borrow.Borrow, expectedRenewCount int) (bool, error) {
	result := dbFromContext(ctx, r.db).Model(&BorrowModel{}).
		Where("id = ? AND return_date IS NULL AND renew_count = ?", b.ID, expectedRenewCount).
		Updates(map[string]interface{}{
			"due_date":        b.DueDate,
			"renew_count":     b.RenewCount,
			"last_renewed_at": b.LastRenewedAt,
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "续借失败")
	}
	return result.RowsAffected == 1, nil
}

// UpdatePaymentIntent 写入支付意向
func (r *borrowRepository) UpdatePaymentIntent(ctx context.Context, b *borrow.Borrow) (bool, error) {
	db := dbFromContext(ctx, r.db)
	result := db.Model(&BorrowModel{}).
		Where("id = ? AND return_date IS NULL AND payment_status <> ?", b.ID, int(borrow.PaymentPaid)).
		Updates(map[string]interface{}{
			"fine":           b.Fine,
			"payment_method": string(b.Payment.Method),
			"payment_status": int(b.Payment.Status),
			"payment_amount": b.Payment.Amount,
			"transaction_id": strPtr(b.Payment.TransactionID),
			"paid_at":        gorm.Expr("NULL"),
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "保存支付意向失败")
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	// 0行:可能是前置条件不满足,也可能是写入值与原值相同(现金重复prepare)
	var model BorrowModel
	if err := db.First(&model, b.ID).Error; err != nil {
		return false, r.notFound(err)
	}
	same := model.ReturnDate == nil &&
		model.PaymentStatus == int(b.Payment.Status) &&
		model.PaymentMethod == string(b.Payment.Method) &&
		model.PaymentAmount == b.Payment.Amount &&
		model.Fine == b.Fine &&
		derefStr(model.TransactionID) == b.Payment.TransactionID
	return same, nil
}

// UpdatePaymentStatus 支付状态条件更新
func (r *borrowRepository) UpdatePaymentStatus(ctx context.Context, t borrow.PaymentTransition) (bool, error) {
	query := dbFromContext(ctx, r.db).Model(&BorrowModel{}).
		Where("id = ? AND payment_status = ? AND payment_method = ?", t.BorrowID, int(t.From), string(t.Method))
	if t.TransactionID != "" {
		query = query.Where("transaction_id = ?", t.TransactionID)
	}

	updates := map[string]interface{}{
		"payment_status": int(t.To),
	}
	if t.PaidAt != nil {
		updates["paid_at"] = *t.PaidAt
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "更新支付状态失败")
	}
	return result.RowsAffected == 1, nil
}

// MarkReturned 设置归还时间并释放去重键
func (r *borrowRepository) MarkReturned(ctx context.Context, id uint, returnedAt time.Time) (bool, error) {
	result := dbFromContext(ctx, r.db).Model(&BorrowModel{}).
		Where("id = ? AND return_date IS NULL", id).
		Updates(map[string]interface{}{
			"return_date": returnedAt,
			"active_key":  gorm.Expr("NULL"),
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "归还失败")
	}
	return result.RowsAffected == 1, nil
}

// List 管理端分页查询
func (r *borrowRepository) List(ctx context.Context, params borrow.ListParams) ([]*borrow.Borrow, int64, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	query := dbFromContext(ctx, r.db).Model(&BorrowModel{})
	if params.BorrowerID != 0 {
		query = query.Where("borrower_id = ?", params.BorrowerID)
	}
	if params.TitleID != 0 {
		query = query.Where("title_id = ?", params.TitleID)
	}
	if params.OpenOnly {
		query = query.Where("return_date IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询借阅总数失败")
	}

	var models []BorrowModel
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询借阅列表失败")
	}
	return toBorrowEntities(models), total, nil
}

// ListUnreconciled 已收款但未归还
func (r *borrowRepository) ListUnreconciled(ctx context.Context, limit int) ([]*borrow.Borrow, error) {
	if limit <= 0 {
		limit = 100
	}

	var models []BorrowModel
	err := dbFromContext(ctx, r.db).
		Where("payment_status = ? AND return_date IS NULL", int(borrow.PaymentPaid)).
		Order("paid_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询待对账借阅失败")
	}
	return toBorrowEntities(models), nil
}

func (r *borrowRepository) notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return borrow.ErrBorrowNotFound
	}
	return apperrors.Wrap(err, "查询借阅失败")
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toBorrowModel 领域实体 → GORM模型
func toBorrowModel(b *borrow.Borrow) *BorrowModel {
	model := &BorrowModel{
		ID:            b.ID,
		BorrowerID:    b.Borrower.ID,
		BorrowerName:  b.Borrower.Name,
		BorrowerEmail: b.Borrower.Email,
		TitleID:       b.TitleID,
		TitleName:     b.TitleName,
		CopyID:        b.CopyID,
		CopyCode:      b.CopyCode,
		Price:         b.Price,
		DueDate:       b.DueDate,
		RenewCount:    b.RenewCount,
		LastRenewedAt: b.LastRenewedAt,
		ReturnDate:    b.ReturnDate,
		Fine:          b.Fine,
		PaymentMethod: string(b.Payment.Method),
		PaymentStatus: int(b.Payment.Status),
		PaymentAmount: b.Payment.Amount,
		TransactionID: strPtr(b.Payment.TransactionID),
		PaidAt:        b.Payment.PaidAt,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if b.IsOpen() {
		key := b.ActiveKey()
		model.ActiveKey = &key
	}
	return model
}

// toBorrowEntity GORM模型 → 领域实体
func toBorrowEntity(model *BorrowModel) *borrow.Borrow {
	return &borrow.Borrow{
		ID: model.ID,
		Borrower: borrow.Borrower{
			ID:    model.BorrowerID,
			Name:  model.BorrowerName,
			Email: model.BorrowerEmail,
		},
		TitleID:       model.TitleID,
		TitleName:     model.TitleName,
		CopyID:        model.CopyID,
		CopyCode:      model.CopyCode,
		Price:         model.Price,
		DueDate:       model.DueDate,
		RenewCount:    model.RenewCount,
		LastRenewedAt: model.LastRenewedAt,
		ReturnDate:    model.ReturnDate,
		Fine:          model.Fine,
		Payment: borrow.Payment{
			Method:        borrow.PaymentMethod(model.PaymentMethod),
			Status:        borrow.PaymentStatus(model.PaymentStatus),
			Amount:        model.PaymentAmount,
			TransactionID: derefStr(model.TransactionID),
			PaidAt:        model.PaidAt,
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toBorrowEntities(models []BorrowModel) []*borrow.Borrow {
	borrows := make([]*borrow.Borrow, len(models))
	for i := range models {
		borrows[i] = toBorrowEntity(&models[i])
	}
	return borrows
}
