package payment

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/fine"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
	"github.com/xiebiao/library/pkg/vnpay"
)

// PrepareReturnUseCase 发起归还结算(生成支付意向)
//
// 应收金额 = 借阅时的单价快照 + 罚金。
// 现金:只返回金额,由馆员现场收款后调用ConfirmCash。
// 网关:生成新的交易号并返回签名后的跳转URL,结果由网关回调决定。
type PrepareReturnUseCase struct {
	borrowRepo borrow.Repository
	policy     fine.Policy
	gateway    *vnpay.Client
	events     *outbox.Recorder
	txManager  *mysql.TxManager
	logger     *zap.Logger
	now        func() time.Time
}

// NewPrepareReturnUseCase 创建结算用例
func NewPrepareReturnUseCase(
	borrowRepo borrow.Repository,
	policy fine.Policy,
	gateway *vnpay.Client,
	events *outbox.Recorder,
	txManager *mysql.TxManager,
	logger *zap.Logger,
) *PrepareReturnUseCase {
	return &PrepareReturnUseCase{
		borrowRepo: borrowRepo,
		policy:     policy,
		gateway:    gateway,
		events:     events,
		txManager:  txManager,
		logger:     logger,
		now:        time.Now,
	}
}

// PrepareReturnRequest 结算请求
type PrepareReturnRequest struct {
	BorrowID   uint
	BorrowerID uint
	Method     string // cash / vnpay
	ClientIP   string
}

// PrepareReturnResponse 结算结果
type PrepareReturnResponse struct {
	BorrowID      uint   `json:"borrow_id"`
	Method        string `json:"method"`
	Price         int64  `json:"price"`
	Fine          int64  `json:"fine"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transaction_id,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
}

// Execute 执行结算
func (uc *PrepareReturnUseCase) Execute(ctx context.Context, req PrepareReturnRequest) (resp *PrepareReturnResponse, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "payment.Prepare")
	span.SetAttributes(attribute.Int64("borrow_id", int64(req.BorrowID)), attribute.String("method", req.Method))
	defer func() {
		tracing.End(span, err)
		metrics.ObserveOperation("prepare", start, err)
	}()

	method, err := borrow.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, err
	}

	b, err := uc.borrowRepo.FindByID(ctx, req.BorrowID)
	if err != nil {
		return nil, err
	}
	if !b.IsOwnedBy(req.BorrowerID) || !b.IsOpen() {
		return nil, borrow.ErrBorrowNotFound
	}

	now := uc.now()
	fineAmount := uc.policy.Calculate(b.DueDate, now)
	amount := b.Price + fineAmount

	var transactionID string
	if method == borrow.PaymentMethodGateway {
		transactionID = borrow.GenerateTransactionID(b.ID, now)
	}
	if err := b.PreparePayment(method, fineAmount, amount, transactionID); err != nil {
		return nil, err
	}

	resp = &PrepareReturnResponse{
		BorrowID:      b.ID,
		Method:        string(method),
		Price:         b.Price,
		Fine:          fineAmount,
		Amount:        amount,
		TransactionID: transactionID,
	}

	// 先签名再落库:网关配置缺失时不留下无法完成的支付意向
	if method == borrow.PaymentMethodGateway {
		resp.PaymentURL, err = uc.gateway.BuildPaymentURL(vnpay.PaymentRequest{
			TxnRef:    transactionID,
			Amount:    amount,
			OrderInfo: fmt.Sprintf("Thanh toan tra sach - Borrow %d", b.ID),
			IPAddr:    req.ClientIP,
			CreatedAt: now,
		})
		if err != nil {
			return nil, err
		}
	}

	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		ok, err := uc.borrowRepo.UpdatePaymentIntent(txCtx, b)
		if err != nil {
			return err
		}
		if !ok {
			return uc.classifyConflict(txCtx, b.ID)
		}
		return uc.events.Record(txCtx, outbox.TypePaymentPrepared, b.ID, newPaymentEvent(b, now))
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("payment intent prepared",
		zap.Uint("borrow_id", b.ID),
		zap.String("method", string(method)),
		zap.Int64("fine", fineAmount),
		zap.Int64("amount", amount),
		zap.String("transaction_id", transactionID),
	)
	return resp, nil
}

// classifyConflict 条件更新未命中:已收款、已归还或被并发修改
func (uc *PrepareReturnUseCase) classifyConflict(ctx context.Context, borrowID uint) error {
	current, err := uc.borrowRepo.FindByID(ctx, borrowID)
	if err != nil {
		return err
	}
	switch {
	case current.Payment.IsPaid():
		return borrow.ErrAlreadyPaid
	case !current.IsOpen():
		return borrow.ErrBorrowNotFound
	default:
		return borrow.ErrBorrowConflict
	}
}
