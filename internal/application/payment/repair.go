package payment

import (
	"context"
	"time"

	"go.uber.org/zap"

	appborrow "github.com/xiebiao/library/internal/application/borrow"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/pkg/metrics"
)

// RepairCloseUseCase 运维修复:对已收款但未归还的借阅重新执行归还
// 副本状态不一致(ErrCopyStateMismatch)时需要先人工修正副本记录
type RepairCloseUseCase struct {
	borrowRepo borrow.Repository
	finalizer  Finalizer
	logger     *zap.Logger
}

// NewRepairCloseUseCase 创建修复用例
func NewRepairCloseUseCase(borrowRepo borrow.Repository, finalizer Finalizer, logger *zap.Logger) *RepairCloseUseCase {
	return &RepairCloseUseCase{borrowRepo: borrowRepo, finalizer: finalizer, logger: logger}
}

// Execute 执行修复;未收款的借阅返回ErrInvalidPaymentTransition
func (uc *RepairCloseUseCase) Execute(ctx context.Context, borrowID uint) (resp *appborrow.BorrowResponse, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("repair", start, err) }()

	b, err := uc.borrowRepo.FindByID(ctx, borrowID)
	if err != nil {
		return nil, err
	}
	if !b.Payment.IsPaid() {
		return nil, borrow.ErrInvalidPaymentTransition
	}

	closed, err := uc.finalizer.Execute(ctx, borrowID)
	if err != nil {
		uc.logger.Error("repair close failed", zap.Uint("borrow_id", borrowID), zap.Error(err))
		return nil, err
	}

	uc.logger.Info("borrow repaired", zap.Uint("borrow_id", borrowID))
	return appborrow.NewBorrowResponse(closed), nil
}

// ListUnreconciledUseCase 已收款但未归还的借阅
type ListUnreconciledUseCase struct {
	borrowRepo borrow.Repository
}

// NewListUnreconciledUseCase 创建查询用例
func NewListUnreconciledUseCase(borrowRepo borrow.Repository) *ListUnreconciledUseCase {
	return &ListUnreconciledUseCase{borrowRepo: borrowRepo}
}

// Execute 执行查询
func (uc *ListUnreconciledUseCase) Execute(ctx context.Context, limit int) ([]*appborrow.BorrowResponse, error) {
	list, err := uc.borrowRepo.ListUnreconciled(ctx, limit)
	if err != nil {
		return nil, err
	}
	return appborrow.NewBorrowResponses(list), nil
}
