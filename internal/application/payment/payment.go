// Package payment 归还结算的支付对账
//
// 支付状态机:unpaid → pending → {paid, failed};pending可被新的prepare覆盖,
// failed可以重新发起,paid是终态。只有进入paid才会触发归还(Finalizer)。
//
// 收款与归还是两次独立的写入:收款先提交,再执行归还。
// 归还失败时收款记录保留为paid,通过发件箱事件、指标和错误日志通知运维,
// 再由RepairCloseUseCase人工重试。
package payment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/pkg/metrics"
)

// Finalizer 确认收款后的归还操作(由借阅模块的CloseBorrowUseCase实现,必须幂等)
type Finalizer interface {
	Execute(ctx context.Context, borrowID uint) (*borrow.Borrow, error)
}

// paymentEvent 支付相关事件的消息体
type paymentEvent struct {
	BorrowID      uint      `json:"borrow_id"`
	BorrowerID    uint      `json:"borrower_id"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	Fine          int64     `json:"fine"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newPaymentEvent(b *borrow.Borrow, at time.Time) paymentEvent {
	return paymentEvent{
		BorrowID:      b.ID,
		BorrowerID:    b.Borrower.ID,
		Method:        string(b.Payment.Method),
		Status:        b.Payment.Status.String(),
		Amount:        b.Payment.Amount,
		Fine:          b.Fine,
		TransactionID: b.Payment.TransactionID,
		OccurredAt:    at,
	}
}

// finalize 收款后执行归还;失败时登记对账故障并返回ErrReconciliationFailed
func finalize(ctx context.Context, finalizer Finalizer, events *outbox.Recorder, logger *zap.Logger, b *borrow.Borrow, now time.Time) (*borrow.Borrow, error) {
	closed, err := finalizer.Execute(ctx, b.ID)
	if err == nil {
		return closed, nil
	}

	metrics.ReconciliationFailuresTotal.Inc()
	logger.Error("payment captured but close failed, manual reconciliation required",
		zap.Uint("borrow_id", b.ID),
		zap.String("method", string(b.Payment.Method)),
		zap.Int64("amount", b.Payment.Amount),
		zap.String("transaction_id", b.Payment.TransactionID),
		zap.Error(err),
	)

	// 独立写入,不与失败的归还事务绑定
	payload := newPaymentEvent(b, now)
	payload.Reason = err.Error()
	if recErr := events.Record(ctx, outbox.TypePaymentReconciliationFailed, b.ID, payload); recErr != nil {
		logger.Error("record reconciliation failure event failed", zap.Uint("borrow_id", b.ID), zap.Error(recErr))
	}
	return nil, borrow.ErrReconciliationFailed.WithCause(err)
}

// markPaid pending→paid条件更新
// 返回false表示并发的另一次确认已经写入paid(b被刷新为库里的最新状态),调用方照常继续归还
func markPaid(ctx context.Context, repo borrow.Repository, b *borrow.Borrow, now time.Time) (bool, error) {
	if err := b.MarkPaid(now); err != nil {
		return false, err
	}
	ok, err := repo.UpdatePaymentStatus(ctx, borrow.PaymentTransition{
		BorrowID:      b.ID,
		From:          borrow.PaymentPending,
		To:            borrow.PaymentPaid,
		Method:        b.Payment.Method,
		TransactionID: b.Payment.TransactionID,
		PaidAt:        b.Payment.PaidAt,
	})
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	current, err := repo.FindByID(ctx, b.ID)
	if err != nil {
		return false, err
	}
	if current.Payment.IsPaid() && current.Payment.Method == b.Payment.Method &&
		current.Payment.TransactionID == b.Payment.TransactionID {
		*b = *current
		return false, nil
	}
	return false, borrow.ErrInvalidPaymentTransition
}
