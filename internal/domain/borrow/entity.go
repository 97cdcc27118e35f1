package borrow

import (
	"fmt"
	"time"
)

// 借阅业务常量(硬性规则,不可配置)
const (
	BorrowDays  = 7 // 初始借期(天)
	RenewDays   = 7 // 每次续借延长(天)
	MaxRenewals = 2 // 最多续借次数
)

const day = 24 * time.Hour

// Borrower 借阅人快照
// 创建借阅时从身份服务复制,之后不随用户资料同步
type Borrower struct {
	ID    uint
	Name  string
	Email string
}

// Borrow 借阅记录(聚合根)
// 教学要点:
// 1. ReturnDate为nil表示未归还,非nil表示已归还,只能设置一次
// 2. Price是创建时的借阅费用快照,防止改价影响已借出的记录
// 3. Payment是内嵌子记录,不单独建聚合
type Borrow struct {
	ID            uint
	Borrower      Borrower
	TitleID       uint
	TitleName     string
	CopyID        uint
	CopyCode      string
	Price         int64
	DueDate       time.Time
	RenewCount    int
	LastRenewedAt *time.Time
	ReturnDate    *time.Time
	Fine          int64
	Payment       Payment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewBorrow 创建借阅(工厂方法)
// 初始状态:应还日期=now+7天,支付方式默认现金,状态unpaid,金额0
func NewBorrow(borrower Borrower, titleID uint, titleName string, copyID uint, copyCode string, price int64, now time.Time) *Borrow {
	return &Borrow{
		Borrower:  borrower,
		TitleID:   titleID,
		TitleName: titleName,
		CopyID:    copyID,
		CopyCode:  copyCode,
		Price:     price,
		DueDate:   now.Add(BorrowDays * day),
		Payment: Payment{
			Method: PaymentMethodCash,
			Status: PaymentUnpaid,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ActiveKeyFor 未归还借阅的去重键:借阅人+书目
// 同一借阅人不能同时持有同一书目的两个副本
func ActiveKeyFor(borrowerID, titleID uint) string {
	return fmt.Sprintf("%d:%d", borrowerID, titleID)
}

// ActiveKey 本记录的去重键
func (b *Borrow) ActiveKey() string {
	return ActiveKeyFor(b.Borrower.ID, b.TitleID)
}

// IsOpen 是否未归还
func (b *Borrow) IsOpen() bool {
	return b.ReturnDate == nil
}

// IsOwnedBy 是否属于指定借阅人
func (b *Borrow) IsOwnedBy(borrowerID uint) bool {
	return b.Borrower.ID == borrowerID
}

// IsOverdue 是否已逾期(到期时刻本身算逾期)
func (b *Borrow) IsOverdue(now time.Time) bool {
	return !b.DueDate.After(now)
}

// Renew 续借
// 规则顺序:
// 1. 已逾期一律不能续借(与已续借次数无关)
// 2. 续借次数达到上限
func (b *Borrow) Renew(now time.Time) error {
	if !b.IsOpen() {
		return ErrBorrowNotFound
	}
	if b.IsOverdue(now) {
		return ErrAlreadyOverdue
	}
	if b.RenewCount >= MaxRenewals {
		return ErrRenewalLimitReached
	}

	b.DueDate = b.DueDate.Add(RenewDays * day)
	b.RenewCount++
	renewedAt := now
	b.LastRenewedAt = &renewedAt
	b.UpdatedAt = now
	return nil
}

// PreparePayment 生成(或覆盖)支付意向
func (b *Borrow) PreparePayment(method PaymentMethod, fine, amount int64, transactionID string) error {
	if !b.IsOpen() {
		return ErrBorrowNotFound
	}
	if err := b.Payment.TransitionTo(PaymentPending); err != nil {
		return err
	}
	b.Fine = fine
	b.Payment.Method = method
	b.Payment.Amount = amount
	b.Payment.TransactionID = transactionID
	b.Payment.PaidAt = nil
	return nil
}

// MarkPaid 确认收款
func (b *Borrow) MarkPaid(now time.Time) error {
	if err := b.Payment.TransitionTo(PaymentPaid); err != nil {
		return err
	}
	paidAt := now
	b.Payment.PaidAt = &paidAt
	return nil
}

// MarkFailed 网关拒绝
func (b *Borrow) MarkFailed() error {
	return b.Payment.TransitionTo(PaymentFailed)
}

// Close 标记归还(只允许一次)
// 返回false表示已经归还过,调用方应视为幂等成功
func (b *Borrow) Close(now time.Time) bool {
	if !b.IsOpen() {
		return false
	}
	returnedAt := now
	b.ReturnDate = &returnedAt
	b.UpdatedAt = now
	return true
}

// Snapshot 生成借阅人视图的投影条目
func (b *Borrow) Snapshot() *Snapshot {
	return &Snapshot{
		BorrowID:      b.ID,
		UserID:        b.Borrower.ID,
		TitleID:       b.TitleID,
		TitleName:     b.TitleName,
		CopyCode:      b.CopyCode,
		BorrowedAt:    b.CreatedAt,
		DueDate:       b.DueDate,
		RenewCount:    b.RenewCount,
		LastRenewedAt: b.LastRenewedAt,
		Returned:      !b.IsOpen(),
	}
}

// GenerateTransactionID 生成网关交易号
// 格式:BORROW_<借阅ID>_<毫秒时间戳>,每次prepare都会生成新的交易号
func GenerateTransactionID(borrowID uint, now time.Time) string {
	return fmt.Sprintf("BORROW_%d_%d", borrowID, now.UnixMilli())
}
