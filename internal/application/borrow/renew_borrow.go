package borrow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// RenewBorrowUseCase 借阅人续借
type RenewBorrowUseCase struct {
	borrowRepo borrow.Repository
	snapshots  borrow.SnapshotRepository
	cache      borrow.SnapshotCache
	events     *outbox.Recorder
	txManager  *mysql.TxManager
	logger     *zap.Logger
	now        func() time.Time
}

// NewRenewBorrowUseCase 创建续借用例
func NewRenewBorrowUseCase(
	borrowRepo borrow.Repository,
	snapshots borrow.SnapshotRepository,
	cache borrow.SnapshotCache,
	events *outbox.Recorder,
	txManager *mysql.TxManager,
	logger *zap.Logger,
) *RenewBorrowUseCase {
	return &RenewBorrowUseCase{
		borrowRepo: borrowRepo,
		snapshots:  snapshots,
		cache:      cache,
		events:     events,
		txManager:  txManager,
		logger:     logger,
		now:        time.Now,
	}
}

// RenewBorrowRequest 续借请求
type RenewBorrowRequest struct {
	BorrowID   uint
	BorrowerID uint // 从JWT中提取
}

// RenewBorrowResponse 续借结果
type RenewBorrowResponse struct {
	BorrowID   uint   `json:"borrow_id"`
	DueDate    string `json:"due_date"`
	RenewCount int    `json:"renew_count"`
}

// Execute 执行续借
// renew_count作为乐观锁版本号:并发续借只有一个能写入,另一个返回ErrBorrowConflict
func (uc *RenewBorrowUseCase) Execute(ctx context.Context, req RenewBorrowRequest) (resp *RenewBorrowResponse, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "borrow.Renew")
	span.SetAttributes(attribute.Int64("borrow_id", int64(req.BorrowID)))
	defer func() {
		tracing.End(span, err)
		metrics.ObserveOperation("renew", start, err)
	}()

	var b *borrow.Borrow
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		b, err = uc.borrowRepo.FindByID(txCtx, req.BorrowID)
		if err != nil {
			return err
		}
		if !b.IsOwnedBy(req.BorrowerID) || !b.IsOpen() {
			return borrow.ErrBorrowNotFound
		}

		now := uc.now()
		expected := b.RenewCount
		if err := b.Renew(now); err != nil {
			return err
		}

		ok, err := uc.borrowRepo.UpdateRenewal(txCtx, b, expected)
		if err != nil {
			return err
		}
		if !ok {
			return borrow.ErrBorrowConflict
		}
		if err := uc.snapshots.MirrorRenewal(txCtx, b.ID, b.DueDate, b.RenewCount, now); err != nil {
			return err
		}
		return uc.events.Record(txCtx, outbox.TypeBorrowRenewed, b.ID, newLifecycleEvent(b, now))
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, uc.cache, uc.logger, b.Borrower.ID)
	uc.logger.Info("borrow renewed",
		zap.Uint("borrow_id", b.ID),
		zap.Int("renew_count", b.RenewCount),
		zap.Time("due_date", b.DueDate),
	)
	return &RenewBorrowResponse{
		BorrowID:   b.ID,
		DueDate:    b.DueDate.Format(timeLayout),
		RenewCount: b.RenewCount,
	}, nil
}
