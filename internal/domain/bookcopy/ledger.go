package bookcopy

import (
	"context"

	"github.com/xiebiao/library/internal/domain/title"
)

const (
	// claimCandidates 每轮抢占读取的候选数量
	claimCandidates = 5
	// claimRounds 候选全部被并发抢走时的重试轮数
	claimRounds = 3
	// maxBatch 单次新增副本上限
	maxBatch = 500
)

// CounterWriter 书目派生计数的写入方(由书目仓储实现)
type CounterWriter interface {
	UpdateCounters(ctx context.Context, id uint, total, available int) error
}

// Ledger 副本台账
// 设计说明:
// 1. 拥有每个副本的状态,以及父书目上的三个派生计数
// 2. claim/release都是单条条件UPDATE,不做"先读后写",两个并发请求不可能抢到同一副本
// 3. 计数永远全量重算(不做加减),即使之前出现过漂移也会自愈
// 4. 本身不开启事务,由调用方通过ctx传入事务
type Ledger struct {
	copies   Repository
	counters CounterWriter
}

// NewLedger 创建副本台账
func NewLedger(copies Repository, counters title.Repository) *Ledger {
	return &Ledger{copies: copies, counters: counters}
}

// Claim 抢占一个在架副本
// copyID非空时只尝试指定副本;为空时在该书目的在架副本中任选一个
func (l *Ledger) Claim(ctx context.Context, titleID uint, copyID *uint) (*Copy, error) {
	if copyID != nil {
		ok, err := l.copies.MarkBorrowed(ctx, *copyID, titleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoAvailableCopy
		}
		return l.afterClaim(ctx, titleID, *copyID)
	}

	for round := 0; round < claimRounds; round++ {
		ids, err := l.copies.FindAvailableIDs(ctx, titleID, claimCandidates)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, ErrNoAvailableCopy
		}

		for _, id := range ids {
			ok, err := l.copies.MarkBorrowed(ctx, id, titleID)
			if err != nil {
				return nil, err
			}
			if ok {
				return l.afterClaim(ctx, titleID, id)
			}
			// 被并发请求抢先,继续尝试下一个候选
		}
	}

	return nil, ErrNoAvailableCopy
}

func (l *Ledger) afterClaim(ctx context.Context, titleID, copyID uint) (*Copy, error) {
	if _, _, err := l.Recompute(ctx, titleID); err != nil {
		return nil, err
	}
	return l.copies.FindByID(ctx, copyID)
}

// AssignBorrow 把刚创建的借阅绑定到已抢占的副本
func (l *Ledger) AssignBorrow(ctx context.Context, copyID, borrowID uint) error {
	ok, err := l.copies.AssignBorrow(ctx, copyID, borrowID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCopyStateMismatch
	}
	return nil
}

// Release 归还副本
// 只有当前持有者等于expectedBorrowID时才会释放,
// 防止释放一个已经被数据修复流程重新分配的副本
func (l *Ledger) Release(ctx context.Context, copyID, expectedBorrowID uint) (*Copy, error) {
	ok, err := l.copies.MarkAvailable(ctx, copyID, expectedBorrowID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCopyStateMismatch
	}

	c, err := l.copies.FindByID(ctx, copyID)
	if err != nil {
		return nil, err
	}
	if _, _, err := l.Recompute(ctx, c.TitleID); err != nil {
		return nil, err
	}
	return c, nil
}

// Recompute 从副本记录全量重算书目计数
func (l *Ledger) Recompute(ctx context.Context, titleID uint) (total, available int, err error) {
	total, available, err = l.copies.CountByTitle(ctx, titleID)
	if err != nil {
		return 0, 0, err
	}
	if err := l.counters.UpdateCounters(ctx, titleID, total, available); err != nil {
		return 0, 0, err
	}
	return total, available, nil
}

// IsFullyReturned 所有副本都在架(只读,供目录模块判断能否归档)
func (l *Ledger) IsFullyReturned(ctx context.Context, titleID uint) (bool, error) {
	total, available, err := l.copies.CountByTitle(ctx, titleID)
	if err != nil {
		return false, err
	}
	return total == available, nil
}

// AddCopies 为书目批量新增副本,序号接着当前最大值
// 调用方需先锁定书目行,保证并发新增时序号不冲突
func (l *Ledger) AddCopies(ctx context.Context, t *title.Title, quantity int) ([]*Copy, error) {
	if quantity < 1 || quantity > maxBatch {
		return nil, ErrInvalidQuantity
	}

	last, err := l.copies.MaxCopyNumber(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	prefix := t.CodePrefix()
	batch := make([]*Copy, quantity)
	for i := range batch {
		batch[i] = NewCopy(t.ID, prefix, last+i+1)
	}

	if err := l.copies.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	total, available, err := l.Recompute(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.ApplyCounters(total, available)
	return batch, nil
}

// ListAvailable 在架副本列表(按序号升序)
func (l *Ledger) ListAvailable(ctx context.Context, titleID uint) ([]*Copy, error) {
	return l.copies.ListAvailable(ctx, titleID)
}
