package title

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
)

// ArchiveTitleUseCase 书目下架(软删除)
// 只有全部副本都在架时才允许下架;台账只回答"是否全部归还",不负责删除
type ArchiveTitleUseCase struct {
	titleRepo title.Repository
	ledger    *bookcopy.Ledger
	txManager *mysql.TxManager
	logger    *zap.Logger
}

// NewArchiveTitleUseCase 创建下架用例
func NewArchiveTitleUseCase(titleRepo title.Repository, ledger *bookcopy.Ledger, txManager *mysql.TxManager, logger *zap.Logger) *ArchiveTitleUseCase {
	return &ArchiveTitleUseCase{
		titleRepo: titleRepo,
		ledger:    ledger,
		txManager: txManager,
		logger:    logger,
	}
}

// Execute 执行下架
func (uc *ArchiveTitleUseCase) Execute(ctx context.Context, titleID uint) error {
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		// 锁住书目行,与并发的新增副本串行
		if _, err := uc.titleRepo.LockByID(txCtx, titleID); err != nil {
			return err
		}

		returned, err := uc.ledger.IsFullyReturned(txCtx, titleID)
		if err != nil {
			return err
		}
		if !returned {
			return title.ErrTitleOnLoan
		}
		return uc.titleRepo.Delete(txCtx, titleID)
	})
	if err != nil {
		return err
	}

	uc.logger.Info("title archived", zap.Uint("title_id", titleID))
	return nil
}
