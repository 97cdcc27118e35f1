package borrow

import (
	"context"
	"time"
)

// Repository 借阅仓储接口
// 教学要点:
// 1. 状态变更都是条件更新,返回bool表示前置条件是否命中
// 2. 支持通过context传递事务
type Repository interface {
	// Create 创建借阅;去重键冲突返回ErrDuplicateActiveBorrow
	Create(ctx context.Context, b *Borrow) error

	// FindByID 查询借阅(含已归还)
	FindByID(ctx context.Context, id uint) (*Borrow, error)

	// FindByTransactionID 根据网关交易号查询
	FindByTransactionID(ctx context.Context, transactionID string) (*Borrow, error)

	// ExistsOpen 借阅人是否持有该书目的未归还借阅
	ExistsOpen(ctx context.Context, borrowerID, titleID uint) (bool, error)

	// UpdateRenewal 写入续借结果,条件:未归还且renew_count仍等于expectedRenewCount
	UpdateRenewal(ctx context.Context, b *Borrow, expectedRenewCount int) (bool, error)

	// UpdatePaymentIntent 写入支付意向与罚金,条件:未归还且未支付
	UpdatePaymentIntent(ctx context.Context, b *Borrow) (bool, error)

	// UpdatePaymentStatus 支付状态条件更新
	UpdatePaymentStatus(ctx context.Context, t PaymentTransition) (bool, error)

	// MarkReturned 设置归还时间并释放去重键,条件:return_date IS NULL
	MarkReturned(ctx context.Context, id uint, returnedAt time.Time) (bool, error)

	// List 管理端分页查询
	List(ctx context.Context, params ListParams) ([]*Borrow, int64, error)

	// ListUnreconciled 已收款但未归还的借阅(需要人工修复)
	ListUnreconciled(ctx context.Context, limit int) ([]*Borrow, error)
}

// ListParams 管理端查询参数
type ListParams struct {
	Page       int
	PageSize   int
	BorrowerID uint // 0表示不过滤
	TitleID    uint // 0表示不过滤
	OpenOnly   bool
}

// SnapshotRepository 借阅人投影的持久化(与借阅记录同库同事务)
type SnapshotRepository interface {
	// Append 新增投影条目
	Append(ctx context.Context, s *Snapshot) error

	// MirrorRenewal 同步续借后的三个字段
	MirrorRenewal(ctx context.Context, borrowID uint, dueDate time.Time, renewCount int, lastRenewedAt time.Time) error

	// MarkReturned 标记已归还
	MarkReturned(ctx context.Context, borrowID uint) error

	// ListByUser 用户的全部投影条目(按借阅时间倒序)
	ListByUser(ctx context.Context, userID uint) ([]*Snapshot, error)
}

// SnapshotCache 按用户缓存投影列表
type SnapshotCache interface {
	// Get 命中返回(list, true);未命中返回(nil, false)
	Get(ctx context.Context, userID uint) ([]*Snapshot, bool, error)

	// Set 写入缓存
	Set(ctx context.Context, userID uint, list []*Snapshot) error

	// Invalidate 失效缓存(在事务提交后调用)
	Invalidate(ctx context.Context, userID uint) error
}
