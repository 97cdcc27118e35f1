package dto

// CreateBorrowRequest 登记借出
// copy_id为空时由台账分配序号最小的在架副本
type CreateBorrowRequest struct {
	BorrowerID uint  `json:"borrower_id" binding:"required" example:"7"`
	TitleID    uint  `json:"title_id" binding:"required" example:"3"`
	CopyID     *uint `json:"copy_id" binding:"omitempty,min=1" example:"11"`
}

// ListBorrowsRequest 管理端借阅查询
type ListBorrowsRequest struct {
	Page       int  `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize   int  `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	BorrowerID uint `form:"borrower_id" example:"7"`
	TitleID    uint `form:"title_id" example:"3"`
	OpenOnly   bool `form:"open_only" example:"true"`
}

// PrepareReturnRequest 准备归还支付(借阅人自助)
type PrepareReturnRequest struct {
	Method string `json:"method" binding:"required,oneof=cash vnpay" example:"vnpay"`
}

// AdminPrepareReturnRequest 馆员代借阅人准备支付
type AdminPrepareReturnRequest struct {
	BorrowerID uint   `json:"borrower_id" binding:"required" example:"7"`
	Method     string `json:"method" binding:"required,oneof=cash vnpay" example:"cash"`
}

// ConfirmCashRequest 馆员确认现金收款
type ConfirmCashRequest struct {
	BorrowerID uint `json:"borrower_id" binding:"required" example:"7"`
}

// ListUnreconciledRequest 已收款未归还列表
type ListUnreconciledRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500" example:"50"`
}
