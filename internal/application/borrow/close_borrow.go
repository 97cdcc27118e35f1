package borrow

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// CloseBorrowUseCase 归还结算(内部操作,只由支付对账在确认收款后调用)
//
// 幂等:return_date已设置时直接返回现有记录,
// 网关重复回调与现金确认重试并发进入时,只有一个能命中条件UPDATE。
type CloseBorrowUseCase struct {
	borrowRepo borrow.Repository
	snapshots  borrow.SnapshotRepository
	cache      borrow.SnapshotCache
	ledger     *bookcopy.Ledger
	events     *outbox.Recorder
	txManager  *mysql.TxManager
	logger     *zap.Logger
	now        func() time.Time
}

// NewCloseBorrowUseCase 创建归还用例
func NewCloseBorrowUseCase(
	borrowRepo borrow.Repository,
	snapshots borrow.SnapshotRepository,
	cache borrow.SnapshotCache,
	ledger *bookcopy.Ledger,
	events *outbox.Recorder,
	txManager *mysql.TxManager,
	logger *zap.Logger,
) *CloseBorrowUseCase {
	return &CloseBorrowUseCase{
		borrowRepo: borrowRepo,
		snapshots:  snapshots,
		cache:      cache,
		ledger:     ledger,
		events:     events,
		txManager:  txManager,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute 执行归还
// 副本持有者与借阅不一致时整个事务回滚,返回ErrCopyStateMismatch
func (uc *CloseBorrowUseCase) Execute(ctx context.Context, borrowID uint) (result *borrow.Borrow, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "borrow.Close")
	span.SetAttributes(attribute.Int64("borrow_id", int64(borrowID)))
	defer func() {
		tracing.End(span, err)
		metrics.ObserveOperation("close", start, err)
	}()

	closed := false
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		b, err := uc.borrowRepo.FindByID(txCtx, borrowID)
		if err != nil {
			return err
		}
		result = b
		if !b.IsOpen() {
			return nil
		}

		now := uc.now()
		ok, err := uc.borrowRepo.MarkReturned(txCtx, b.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// 并发的另一次归还已经提交
			result, err = uc.borrowRepo.FindByID(txCtx, borrowID)
			return err
		}
		b.Close(now)

		if _, err := uc.ledger.Release(txCtx, b.CopyID, b.ID); err != nil {
			return err
		}
		if err := uc.snapshots.MarkReturned(txCtx, b.ID); err != nil {
			return err
		}
		if err := uc.events.Record(txCtx, outbox.TypeBorrowReturned, b.ID, newLifecycleEvent(b, now)); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, bookcopy.ErrCopyStateMismatch) {
			metrics.CopyStateMismatchTotal.Inc()
			uc.logger.Error("copy state mismatch on close, manual reconciliation required",
				zap.Uint("borrow_id", borrowID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if closed {
		invalidate(ctx, uc.cache, uc.logger, result.Borrower.ID)
		uc.logger.Info("borrow closed",
			zap.Uint("borrow_id", result.ID),
			zap.Uint("copy_id", result.CopyID),
			zap.Int64("fine", result.Fine),
		)
	}
	return result, nil
}
