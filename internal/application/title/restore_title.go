package title

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
)

// RestoreTitleUseCase 撤销下架
// 归档期间计数可能被人工改动过,恢复后按副本记录重算一次
type RestoreTitleUseCase struct {
	titleRepo title.Repository
	ledger    *bookcopy.Ledger
	txManager *mysql.TxManager
	logger    *zap.Logger
}

// NewRestoreTitleUseCase 创建恢复用例
func NewRestoreTitleUseCase(titleRepo title.Repository, ledger *bookcopy.Ledger, txManager *mysql.TxManager, logger *zap.Logger) *RestoreTitleUseCase {
	return &RestoreTitleUseCase{
		titleRepo: titleRepo,
		ledger:    ledger,
		txManager: txManager,
		logger:    logger,
	}
}

// Execute 执行恢复
// 书目本来就在架时不做任何修改,直接返回当前记录
func (uc *RestoreTitleUseCase) Execute(ctx context.Context, titleID uint) (*TitleResponse, error) {
	var (
		t        *title.Title
		restored bool
	)
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		restored, err = uc.titleRepo.Restore(txCtx, titleID)
		if err != nil {
			return err
		}
		if restored {
			if _, _, err := uc.ledger.Recompute(txCtx, titleID); err != nil {
				return err
			}
		}
		t, err = uc.titleRepo.FindByID(txCtx, titleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if restored {
		uc.logger.Info("title restored",
			zap.Uint("title_id", titleID),
			zap.Int("total", t.TotalCopies),
			zap.Int("available", t.AvailableCopies),
		)
	}
	return toTitleResponse(t, true), nil
}
