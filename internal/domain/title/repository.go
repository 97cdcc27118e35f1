package title

import (
	"context"
)

// Repository 书目仓储接口
// 教学要点:所有方法都要支持通过context传递事务
type Repository interface {
	// Create 创建书目
	Create(ctx context.Context, t *Title) error

	// FindByID 根据ID查找(已归档的书目视为不存在)
	FindByID(ctx context.Context, id uint) (*Title, error)

	// FindByISBN 根据ISBN查找
	FindByISBN(ctx context.Context, isbn string) (*Title, error)

	// LockByID 悲观锁查询(批量新增副本时串行化编号分配)
	LockByID(ctx context.Context, id uint) (*Title, error)

	// UpdateCounters 写入台账重算的派生计数
	UpdateCounters(ctx context.Context, id uint, total, available int) error

	// Delete 归档(软删除)
	Delete(ctx context.Context, id uint) error

	// Restore 撤销归档;返回false表示书目本来就没有归档
	Restore(ctx context.Context, id uint) (bool, error)

	// List 分页查询
	List(ctx context.Context, params ListParams) ([]*Title, int64, error)
}

// ListParams 列表查询参数
type ListParams struct {
	Page          int    // 页码(从1开始)
	PageSize      int    // 每页数量
	Keyword       string // 搜索书名、作者、出版社
	AvailableOnly bool   // 只看有在架副本的书目
	SortBy        string // price_asc, price_desc, created_at_desc
}
