package bookcopy

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
)

// ListAvailableCopiesUseCase 书目的在架副本(按序号升序)
type ListAvailableCopiesUseCase struct {
	titleRepo title.Repository
	ledger    *bookcopy.Ledger
}

// NewListAvailableCopiesUseCase 创建查询用例
func NewListAvailableCopiesUseCase(titleRepo title.Repository, ledger *bookcopy.Ledger) *ListAvailableCopiesUseCase {
	return &ListAvailableCopiesUseCase{titleRepo: titleRepo, ledger: ledger}
}

// Execute 执行查询;书目不存在(或已下架)返回ErrTitleNotFound
func (uc *ListAvailableCopiesUseCase) Execute(ctx context.Context, titleID uint) ([]*CopyResponse, error) {
	if _, err := uc.titleRepo.FindByID(ctx, titleID); err != nil {
		return nil, err
	}
	copies, err := uc.ledger.ListAvailable(ctx, titleID)
	if err != nil {
		return nil, err
	}
	return toCopyResponses(copies), nil
}

// RecomputeTitleUseCase 运维接口:从副本记录重算书目计数
type RecomputeTitleUseCase struct {
	titleRepo title.Repository
	ledger    *bookcopy.Ledger
	txManager *mysql.TxManager
	logger    *zap.Logger
}

// NewRecomputeTitleUseCase 创建重算用例
func NewRecomputeTitleUseCase(titleRepo title.Repository, ledger *bookcopy.Ledger, txManager *mysql.TxManager, logger *zap.Logger) *RecomputeTitleUseCase {
	return &RecomputeTitleUseCase{
		titleRepo: titleRepo,
		ledger:    ledger,
		txManager: txManager,
		logger:    logger,
	}
}

// RecomputeResponse 重算结果
type RecomputeResponse struct {
	TitleID         uint `json:"title_id"`
	TotalCopies     int  `json:"total_copies"`
	AvailableCopies int  `json:"available_copies"`
	IsAvailable     bool `json:"is_available"`
}

// Execute 执行重算
func (uc *RecomputeTitleUseCase) Execute(ctx context.Context, titleID uint) (*RecomputeResponse, error) {
	var before *title.Title
	resp := &RecomputeResponse{TitleID: titleID}
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		before, err = uc.titleRepo.LockByID(txCtx, titleID)
		if err != nil {
			return err
		}
		resp.TotalCopies, resp.AvailableCopies, err = uc.ledger.Recompute(txCtx, titleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp.IsAvailable = resp.AvailableCopies > 0

	if before.TotalCopies != resp.TotalCopies || before.AvailableCopies != resp.AvailableCopies {
		uc.logger.Warn("title counters drifted",
			zap.Uint("title_id", titleID),
			zap.Int("total_before", before.TotalCopies),
			zap.Int("available_before", before.AvailableCopies),
			zap.Int("total", resp.TotalCopies),
			zap.Int("available", resp.AvailableCopies),
		)
	}
	return resp, nil
}
