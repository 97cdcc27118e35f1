package borrow

import (
	"time"
)

// Snapshot 借阅人视图的投影条目
// 设计说明:
// 1. 只读优化的投影,不是数据源;与借阅记录冲突时以借阅记录为准
// 2. 每次写入都跟随借阅记录的写入,在同一事务内完成
// 3. Redis只缓存按用户聚合后的列表,提交后失效,未命中时从MySQL重建
type Snapshot struct {
	BorrowID      uint       `json:"borrow_id"`
	UserID        uint       `json:"user_id"`
	TitleID       uint       `json:"title_id"`
	TitleName     string     `json:"title"`
	CopyCode      string     `json:"copy_code"`
	BorrowedAt    time.Time  `json:"borrowed_at"`
	DueDate       time.Time  `json:"due_date"`
	RenewCount    int        `json:"renew_count"`
	LastRenewedAt *time.Time `json:"last_renewed_at,omitempty"`
	Returned      bool       `json:"returned"`
}
