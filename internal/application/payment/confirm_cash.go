package payment

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	appborrow "github.com/xiebiao/library/internal/application/borrow"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// ConfirmCashUseCase 馆员确认现金收款并完成归还
type ConfirmCashUseCase struct {
	borrowRepo borrow.Repository
	finalizer  Finalizer
	events     *outbox.Recorder
	txManager  *mysql.TxManager
	logger     *zap.Logger
	now        func() time.Time
}

// NewConfirmCashUseCase 创建现金确认用例
func NewConfirmCashUseCase(
	borrowRepo borrow.Repository,
	finalizer Finalizer,
	events *outbox.Recorder,
	txManager *mysql.TxManager,
	logger *zap.Logger,
) *ConfirmCashUseCase {
	return &ConfirmCashUseCase{
		borrowRepo: borrowRepo,
		finalizer:  finalizer,
		events:     events,
		txManager:  txManager,
		logger:     logger,
		now:        time.Now,
	}
}

// ConfirmCashRequest 现金确认请求
type ConfirmCashRequest struct {
	BorrowID   uint
	BorrowerID uint
}

// Execute 执行确认
//
// 重试语义:已收款但仍未归还的借阅(上一次归还失败)再次确认时只重跑归还,
// 已收款且已归还的借阅直接返回当前记录。
func (uc *ConfirmCashUseCase) Execute(ctx context.Context, req ConfirmCashRequest) (resp *appborrow.BorrowResponse, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "payment.ConfirmCash")
	span.SetAttributes(attribute.Int64("borrow_id", int64(req.BorrowID)))
	defer func() {
		tracing.End(span, err)
		metrics.ObserveOperation("confirm_cash", start, err)
	}()

	b, err := uc.borrowRepo.FindByID(ctx, req.BorrowID)
	if err != nil {
		return nil, err
	}
	if !b.IsOwnedBy(req.BorrowerID) {
		return nil, borrow.ErrBorrowNotFound
	}
	if b.Payment.Method != borrow.PaymentMethodCash {
		return nil, borrow.ErrWrongMethod
	}
	if !b.IsOpen() {
		if b.Payment.IsPaid() {
			return appborrow.NewBorrowResponse(b), nil
		}
		return nil, borrow.ErrBorrowNotFound
	}

	now := uc.now()
	if !b.Payment.IsPaid() {
		if b.Payment.Status != borrow.PaymentPending {
			return nil, borrow.ErrInvalidPaymentTransition
		}

		captured := false
		err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
			var err error
			captured, err = markPaid(txCtx, uc.borrowRepo, b, now)
			if err != nil || !captured {
				return err
			}
			return uc.events.Record(txCtx, outbox.TypePaymentPaid, b.ID, newPaymentEvent(b, now))
		})
		if err != nil {
			return nil, err
		}
		if captured {
			metrics.PaymentsCollectedTotal.WithLabelValues(string(borrow.PaymentMethodCash)).Inc()
			uc.logger.Info("cash payment captured", zap.Uint("borrow_id", b.ID), zap.Int64("amount", b.Payment.Amount))
		}
	}

	closed, err := finalize(ctx, uc.finalizer, uc.events, uc.logger, b, now)
	if err != nil {
		return nil, err
	}
	return appborrow.NewBorrowResponse(closed), nil
}
