package borrow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// CreateBorrowUseCase 登记借出
//
// 整个流程在一个事务内完成:
//  1. 查询书目(单价快照)
//  2. 台账抢占副本(条件UPDATE,并发安全)
//  3. 写入借阅记录(active_key唯一索引兜底重复借阅)
//  4. 副本绑定借阅、追加借阅人投影、写发件箱事件
//
// 任一步失败全部回滚,不会出现"副本已借出但没有借阅记录"的中间状态。
// 事务提交后失效借阅人的投影缓存。
type CreateBorrowUseCase struct {
	borrowRepo  borrow.Repository
	snapshots   borrow.SnapshotRepository
	cache       borrow.SnapshotCache
	titleRepo   title.Repository
	userService user.Service
	ledger      *bookcopy.Ledger
	events      *outbox.Recorder
	txManager   *mysql.TxManager
	logger      *zap.Logger
	now         func() time.Time
}

// NewCreateBorrowUseCase 创建借出用例
func NewCreateBorrowUseCase(
	borrowRepo borrow.Repository,
	snapshots borrow.SnapshotRepository,
	cache borrow.SnapshotCache,
	titleRepo title.Repository,
	userService user.Service,
	ledger *bookcopy.Ledger,
	events *outbox.Recorder,
	txManager *mysql.TxManager,
	logger *zap.Logger,
) *CreateBorrowUseCase {
	return &CreateBorrowUseCase{
		borrowRepo:  borrowRepo,
		snapshots:   snapshots,
		cache:       cache,
		titleRepo:   titleRepo,
		userService: userService,
		ledger:      ledger,
		events:      events,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateBorrowRequest 借出请求
type CreateBorrowRequest struct {
	BorrowerID uint
	TitleID    uint
	CopyID     *uint // 为空时由台账任选一个在架副本
}

// Execute 执行借出
func (uc *CreateBorrowUseCase) Execute(ctx context.Context, req CreateBorrowRequest) (resp *BorrowResponse, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "borrow.Create")
	span.SetAttributes(attribute.Int64("borrower_id", int64(req.BorrowerID)), attribute.Int64("title_id", int64(req.TitleID)))
	defer func() {
		tracing.End(span, err)
		metrics.ObserveOperation("create", start, err)
	}()

	borrower, err := uc.userService.GetUser(ctx, req.BorrowerID)
	if err != nil {
		return nil, err
	}

	// 快速失败;真正的并发保护是active_key唯一索引
	exists, err := uc.borrowRepo.ExistsOpen(ctx, req.BorrowerID, req.TitleID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, borrow.ErrDuplicateActiveBorrow
	}

	var b *borrow.Borrow
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		t, err := uc.titleRepo.FindByID(txCtx, req.TitleID)
		if err != nil {
			return err
		}

		c, err := uc.ledger.Claim(txCtx, t.ID, req.CopyID)
		if err != nil {
			return err
		}

		now := uc.now()
		b = borrow.NewBorrow(
			borrow.Borrower{ID: borrower.ID, Name: borrower.Name, Email: borrower.Email},
			t.ID, t.Name, c.ID, c.CopyCode, t.Price, now,
		)
		if err := uc.borrowRepo.Create(txCtx, b); err != nil {
			return err
		}
		if err := uc.ledger.AssignBorrow(txCtx, c.ID, b.ID); err != nil {
			return err
		}
		if err := uc.snapshots.Append(txCtx, b.Snapshot()); err != nil {
			return err
		}
		return uc.events.Record(txCtx, outbox.TypeBorrowCreated, b.ID, newLifecycleEvent(b, now))
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, uc.cache, uc.logger, b.Borrower.ID)
	uc.logger.Info("borrow created",
		zap.Uint("borrow_id", b.ID),
		zap.Uint("borrower_id", b.Borrower.ID),
		zap.Uint("title_id", b.TitleID),
		zap.String("copy_code", b.CopyCode),
		zap.Time("due_date", b.DueDate),
	)
	return NewBorrowResponse(b), nil
}

// invalidate 提交后失效缓存;失败只记日志,缓存有TTL兜底
func invalidate(ctx context.Context, cache borrow.SnapshotCache, logger *zap.Logger, userID uint) {
	if err := cache.Invalidate(ctx, userID); err != nil {
		logger.Warn("invalidate snapshot cache failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}
