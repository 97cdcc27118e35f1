package borrow

import (
	"time"

	"github.com/xiebiao/library/internal/domain/borrow"
)

const timeLayout = "2006-01-02 15:04:05"

// BorrowResponse 借阅记录(管理端视图)
type BorrowResponse struct {
	ID            uint    `json:"id"`
	BorrowerID    uint    `json:"borrower_id"`
	BorrowerName  string  `json:"borrower_name"`
	BorrowerEmail string  `json:"borrower_email"`
	TitleID       uint    `json:"title_id"`
	TitleName     string  `json:"title"`
	CopyID        uint    `json:"copy_id"`
	CopyCode      string  `json:"copy_code"`
	Price         int64   `json:"price"`
	DueDate       string  `json:"due_date"`
	RenewCount    int     `json:"renew_count"`
	LastRenewedAt *string `json:"last_renewed_at,omitempty"`
	ReturnDate    *string `json:"return_date,omitempty"`
	Fine          int64   `json:"fine"`
	PaymentMethod string  `json:"payment_method"`
	PaymentStatus string  `json:"payment_status"`
	PaymentAmount int64   `json:"payment_amount"`
	TransactionID string  `json:"transaction_id,omitempty"`
	PaidAt        *string `json:"paid_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// NewBorrowResponse 领域实体 → 响应DTO
func NewBorrowResponse(b *borrow.Borrow) *BorrowResponse {
	return &BorrowResponse{
		ID:            b.ID,
		BorrowerID:    b.Borrower.ID,
		BorrowerName:  b.Borrower.Name,
		BorrowerEmail: b.Borrower.Email,
		TitleID:       b.TitleID,
		TitleName:     b.TitleName,
		CopyID:        b.CopyID,
		CopyCode:      b.CopyCode,
		Price:         b.Price,
		DueDate:       b.DueDate.Format(timeLayout),
		RenewCount:    b.RenewCount,
		LastRenewedAt: formatOptional(b.LastRenewedAt),
		ReturnDate:    formatOptional(b.ReturnDate),
		Fine:          b.Fine,
		PaymentMethod: string(b.Payment.Method),
		PaymentStatus: b.Payment.Status.String(),
		PaymentAmount: b.Payment.Amount,
		TransactionID: b.Payment.TransactionID,
		PaidAt:        formatOptional(b.Payment.PaidAt),
		CreatedAt:     b.CreatedAt.Format(timeLayout),
	}
}

// NewBorrowResponses 批量转换
func NewBorrowResponses(list []*borrow.Borrow) []*BorrowResponse {
	resp := make([]*BorrowResponse, len(list))
	for i, b := range list {
		resp[i] = NewBorrowResponse(b)
	}
	return resp
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}

// lifecycleEvent 借阅生命周期事件的消息体
type lifecycleEvent struct {
	BorrowID   uint       `json:"borrow_id"`
	BorrowerID uint       `json:"borrower_id"`
	TitleID    uint       `json:"title_id"`
	CopyID     uint       `json:"copy_id"`
	DueDate    time.Time  `json:"due_date"`
	RenewCount int        `json:"renew_count"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func newLifecycleEvent(b *borrow.Borrow, at time.Time) lifecycleEvent {
	return lifecycleEvent{
		BorrowID:   b.ID,
		BorrowerID: b.Borrower.ID,
		TitleID:    b.TitleID,
		CopyID:     b.CopyID,
		DueDate:    b.DueDate,
		RenewCount: b.RenewCount,
		ReturnedAt: b.ReturnDate,
		OccurredAt: at,
	}
}
