package payment

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
	"github.com/xiebiao/library/pkg/vnpay"
)

// 回调处理结果
const (
	OutcomeSuccess               = "success"
	OutcomeFailed                = "failed"
	OutcomePaidButFinalizeFailed = "paid_but_finalize_failed"
)

// 失败原因
const (
	ReasonInvalidSignature    = "invalid_signature"
	ReasonInvalidParams       = "invalid_params"
	ReasonBorrowNotFound      = "borrow_not_found"
	ReasonAmountMismatch      = "amount_mismatch"
	ReasonInvalidPaymentState = "invalid_payment_state"
	ReasonReconciliation      = "reconciliation_failed"
)

// ErrAmountMismatch 回调金额与支付意向不一致
var ErrAmountMismatch = apperrors.New(apperrors.ErrCodeInvalidPaymentState, "支付金额与应收金额不一致")

// CallbackOutcome 回调处理结果(决定重定向到前端的哪个结果页)
type CallbackOutcome struct {
	Status   string
	Reason   string
	BorrowID uint
}

// RedirectURL 前端结果页地址:<appBaseURL>/payment-result?status=..&reason=..
func (o *CallbackOutcome) RedirectURL(appBaseURL string) string {
	q := url.Values{}
	q.Set("status", o.Status)
	if o.Reason != "" {
		q.Set("reason", o.Reason)
	}
	if o.BorrowID != 0 {
		q.Set("borrow_id", strconv.FormatUint(uint64(o.BorrowID), 10))
	}
	return strings.TrimRight(appBaseURL, "/") + "/payment-result?" + q.Encode()
}

// HandleGatewayCallbackUseCase 处理支付网关的回跳
//
// 1. 先验签,签名不通过的回调不可信,不修改任何状态
// 2. 按交易号定位借阅,过期交易号(已被新的prepare覆盖)找不到记录
// 3. 拒绝码 → pending转failed;成功码 → pending转paid再归还
// 4. 重复的成功回调会再次调用幂等的归还
type HandleGatewayCallbackUseCase struct {
	borrowRepo borrow.Repository
	gateway    *vnpay.Client
	finalizer  Finalizer
	events     *outbox.Recorder
	txManager  *mysql.TxManager
	logger     *zap.Logger
	now        func() time.Time
}

// NewHandleGatewayCallbackUseCase 创建回调处理用例
func NewHandleGatewayCallbackUseCase(
	borrowRepo borrow.Repository,
	gateway *vnpay.Client,
	finalizer Finalizer,
	events *outbox.Recorder,
	txManager *mysql.TxManager,
	logger *zap.Logger,
) *HandleGatewayCallbackUseCase {
	return &HandleGatewayCallbackUseCase{
		borrowRepo: borrowRepo,
		gateway:    gateway,
		finalizer:  finalizer,
		events:     events,
		txManager:  txManager,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute 处理回调
// 返回的outcome总是非nil,调用方据此重定向;err说明失败原因
func (uc *HandleGatewayCallbackUseCase) Execute(ctx context.Context, params url.Values) (outcome *CallbackOutcome, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "payment.GatewayCallback")
	defer func() {
		span.SetAttributes(attribute.String("outcome", outcome.Status), attribute.String("reason", outcome.Reason))
		tracing.End(span, err)
		metrics.ObserveOperation("callback", start, err)
		metrics.GatewayCallbacksTotal.WithLabelValues(outcome.Status).Inc()
	}()

	cb, err := uc.gateway.ParseCallback(params)
	if err != nil {
		reason := ReasonInvalidParams
		if errors.Is(err, vnpay.ErrInvalidSignature) {
			reason = ReasonInvalidSignature
			uc.logger.Warn("gateway callback with invalid signature", zap.String("txn_ref", params.Get(vnpay.ParamTxnRef)))
		}
		return &CallbackOutcome{Status: OutcomeFailed, Reason: reason}, err
	}

	b, err := uc.borrowRepo.FindByTransactionID(ctx, cb.TxnRef)
	if err != nil {
		if errors.Is(err, borrow.ErrBorrowNotFound) {
			uc.logger.Warn("gateway callback for unknown transaction", zap.String("txn_ref", cb.TxnRef))
			return &CallbackOutcome{Status: OutcomeFailed, Reason: ReasonBorrowNotFound}, err
		}
		return &CallbackOutcome{Status: OutcomeFailed, Reason: ReasonInvalidPaymentState}, err
	}
	outcome = &CallbackOutcome{Status: OutcomeFailed, BorrowID: b.ID}
	span.SetAttributes(attribute.Int64("borrow_id", int64(b.ID)))

	if !cb.Approved() {
		outcome.Reason = "vnpay_" + cb.ResponseCode
		if err := uc.markFailed(ctx, b, cb); err != nil {
			if errors.Is(err, borrow.ErrInvalidPaymentTransition) || errors.Is(err, borrow.ErrAlreadyPaid) {
				outcome.Reason = ReasonInvalidPaymentState
			}
			return outcome, err
		}
		return outcome, nil
	}

	if cb.Amount != b.Payment.Amount {
		uc.logger.Error("gateway callback amount mismatch",
			zap.Uint("borrow_id", b.ID),
			zap.Int64("expected", b.Payment.Amount),
			zap.Int64("received", cb.Amount),
		)
		outcome.Reason = ReasonAmountMismatch
		return outcome, ErrAmountMismatch
	}

	now := uc.now()
	if !b.Payment.IsPaid() {
		if b.Payment.Status != borrow.PaymentPending {
			outcome.Reason = ReasonInvalidPaymentState
			return outcome, borrow.ErrInvalidPaymentTransition
		}

		captured := false
		err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
			var err error
			captured, err = markPaid(txCtx, uc.borrowRepo, b, now)
			if err != nil || !captured {
				return err
			}
			payload := newPaymentEvent(b, now)
			payload.Reason = cb.TransactionNo
			return uc.events.Record(txCtx, outbox.TypePaymentPaid, b.ID, payload)
		})
		if err != nil {
			outcome.Reason = ReasonInvalidPaymentState
			return outcome, err
		}
		if captured {
			metrics.PaymentsCollectedTotal.WithLabelValues(string(borrow.PaymentMethodGateway)).Inc()
			uc.logger.Info("gateway payment captured",
				zap.Uint("borrow_id", b.ID),
				zap.String("transaction_id", cb.TxnRef),
				zap.String("gateway_transaction_no", cb.TransactionNo),
				zap.String("bank_code", cb.BankCode),
			)
		}
	}

	if _, err := finalize(ctx, uc.finalizer, uc.events, uc.logger, b, now); err != nil {
		return &CallbackOutcome{Status: OutcomePaidButFinalizeFailed, Reason: ReasonReconciliation, BorrowID: b.ID}, err
	}
	return &CallbackOutcome{Status: OutcomeSuccess, BorrowID: b.ID}, nil
}

// markFailed 网关拒绝:pending→failed
// 同一个拒绝回调重复到达时(已经是failed)视为成功处理
func (uc *HandleGatewayCallbackUseCase) markFailed(ctx context.Context, b *borrow.Borrow, cb *vnpay.Callback) error {
	if b.Payment.Status == borrow.PaymentFailed {
		return nil
	}
	if err := b.MarkFailed(); err != nil {
		return err
	}

	now := uc.now()
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		ok, err := uc.borrowRepo.UpdatePaymentStatus(txCtx, borrow.PaymentTransition{
			BorrowID:      b.ID,
			From:          borrow.PaymentPending,
			To:            borrow.PaymentFailed,
			Method:        borrow.PaymentMethodGateway,
			TransactionID: b.Payment.TransactionID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return borrow.ErrInvalidPaymentTransition
		}
		payload := newPaymentEvent(b, now)
		payload.Reason = "vnpay_" + cb.ResponseCode
		return uc.events.Record(txCtx, outbox.TypePaymentFailed, b.ID, payload)
	})
	if err != nil {
		return err
	}

	uc.logger.Info("gateway payment declined",
		zap.Uint("borrow_id", b.ID),
		zap.String("transaction_id", cb.TxnRef),
		zap.String("response_code", cb.ResponseCode),
	)
	return nil
}
