package bookcopy

import (
	"fmt"
	"time"
)

// Status 副本状态
// 教学要点:与订单状态一样使用int存储,便于索引
type Status int

const (
	StatusAvailable Status = 1 // 在架
	StatusBorrowed  Status = 2 // 借出
)

// String 实现Stringer接口
func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusBorrowed:
		return "borrowed"
	default:
		return "unknown"
	}
}

// Copy 实体副本(一本可单独追踪的实体书)
// 设计说明:
// 1. 副本只会被创建和状态流转,从不删除
// 2. CurrentBorrowID是弱引用:只记录"当前由哪条借阅持有",不表示所有权
// 3. Status=Borrowed 当且仅当 恰好一条未归还借阅通过CurrentBorrowID引用它
type Copy struct {
	ID              uint
	TitleID         uint
	CopyNumber      int    // 同一书目内递增的序号
	CopyCode        string // 人类可读编码,如 9786041234567-0003
	Status          Status
	CurrentBorrowID *uint
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FormatCode 生成副本编码:<前缀>-<4位序号>
func FormatCode(prefix string, number int) string {
	return fmt.Sprintf("%s-%04d", prefix, number)
}

// NewCopy 创建在架副本
func NewCopy(titleID uint, prefix string, number int) *Copy {
	now := time.Now()
	return &Copy{
		TitleID:    titleID,
		CopyNumber: number,
		CopyCode:   FormatCode(prefix, number),
		Status:     StatusAvailable,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsHeldBy 是否由指定借阅持有
func (c *Copy) IsHeldBy(borrowID uint) bool {
	return c.Status == StatusBorrowed && c.CurrentBorrowID != nil && *c.CurrentBorrowID == borrowID
}
