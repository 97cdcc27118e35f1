package borrow

import (
	"strings"
	"time"
)

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"  // 现场收取现金
	PaymentMethodGateway PaymentMethod = "vnpay" // 第三方网关跳转支付
)

// ParsePaymentMethod 边界输入统一转换为强类型
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentMethodCash:
		return PaymentMethodCash, nil
	case PaymentMethodGateway, "gateway":
		return PaymentMethodGateway, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// PaymentStatus 支付状态
// 状态机:unpaid → pending → {paid, failed}
type PaymentStatus int

const (
	PaymentUnpaid  PaymentStatus = 1 // 未发起支付
	PaymentPending PaymentStatus = 2 // 已生成支付意向,等待确认
	PaymentPaid    PaymentStatus = 3 // 已收款(终态)
	PaymentFailed  PaymentStatus = 4 // 网关拒绝
)

// String 实现Stringer接口(API与日志使用)
func (s PaymentStatus) String() string {
	switch s {
	case PaymentUnpaid:
		return "unpaid"
	case PaymentPending:
		return "pending"
	case PaymentPaid:
		return "paid"
	case PaymentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// paymentTransitions 合法的状态转换
// pending→pending:重新prepare覆盖旧的支付意向(每条借阅最多一个未完成意向)
// failed→pending:网关拒绝后允许重新发起
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentUnpaid:  {PaymentPending},
	PaymentPending: {PaymentPending, PaymentPaid, PaymentFailed},
	PaymentFailed:  {PaymentPending},
	PaymentPaid:    {},
}

// Payment 借阅记录内嵌的支付子记录
type Payment struct {
	Method        PaymentMethod
	Status        PaymentStatus
	Amount        int64  // 应收金额(VND) = 单价 + 罚金
	TransactionID string // 网关关联键
	PaidAt        *time.Time
}

// CanTransitionTo 检查是否可以转换到目标状态
func (p *Payment) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range paymentTransitions[p.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
func (p *Payment) TransitionTo(target PaymentStatus) error {
	if !p.CanTransitionTo(target) {
		if p.Status == PaymentPaid {
			return ErrAlreadyPaid
		}
		return ErrInvalidPaymentTransition
	}
	p.Status = target
	return nil
}

// IsPaid 是否已收款
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentPaid
}

// PaymentTransition 支付状态的条件更新
// From/Method/TransactionID都作为前置条件写进同一条UPDATE
type PaymentTransition struct {
	BorrowID      uint
	From          PaymentStatus
	To            PaymentStatus
	Method        PaymentMethod
	TransactionID string // 非空时要求匹配(过期的网关回调不能改写新的支付意向)
	PaidAt        *time.Time
}
