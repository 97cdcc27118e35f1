package bookcopy

import (
	"context"
)

// Repository 副本仓储接口
// 教学要点:
// 1. 状态变更方法都是"条件更新"(compare-and-swap):前置条件和修改在同一条UPDATE里
// 2. 返回的bool表示条件是否命中(RowsAffected==1),由台账决定如何解释
type Repository interface {
	// CreateBatch 批量创建副本
	CreateBatch(ctx context.Context, copies []*Copy) error

	// FindByID 查询副本
	FindByID(ctx context.Context, id uint) (*Copy, error)

	// MaxCopyNumber 书目下当前最大序号(没有副本时返回0)
	MaxCopyNumber(ctx context.Context, titleID uint) (int, error)

	// ListAvailable 在架副本,按序号升序
	ListAvailable(ctx context.Context, titleID uint) ([]*Copy, error)

	// FindAvailableIDs 取若干在架副本ID作为抢占候选(按序号升序)
	FindAvailableIDs(ctx context.Context, titleID uint, limit int) ([]uint, error)

	// MarkBorrowed available→borrowed,条件:id、书目匹配且当前在架
	MarkBorrowed(ctx context.Context, copyID, titleID uint) (bool, error)

	// AssignBorrow 绑定持有借阅,条件:已借出且尚未绑定
	AssignBorrow(ctx context.Context, copyID, borrowID uint) (bool, error)

	// MarkAvailable borrowed→available并清空持有者,条件:持有者等于expectedBorrowID
	MarkAvailable(ctx context.Context, copyID, expectedBorrowID uint) (bool, error)

	// CountByTitle 全量统计副本总数与在架数
	CountByTitle(ctx context.Context, titleID uint) (total, available int, err error)
}
