package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/pkg/metrics"
)

const (
	defaultTxAttempts = 3
	txRetryBackoff    = 20 * time.Millisecond
)

// TxManager 事务管理器
//
// 事务DB通过context传递,仓储方法用dbFromContext取出;
// 嵌套调用复用外层事务(GORM自动使用Savepoint)。
//
// 副本抢占与归还都是热点行上的条件UPDATE,InnoDB在并发下可能选中
// 其中一个事务作为死锁牺牲者。最外层事务遇到死锁或锁等待超时时整体重跑fn,
// 所以fn必须只通过txCtx修改数据库,闭包外的变量每次重跑都会被覆盖。
type TxManager struct {
	db          *gorm.DB
	maxAttempts int
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db, maxAttempts: defaultTxAttempts}
}

// Transaction 执行事务
// fn返回error时ROLLBACK,返回nil时COMMIT
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    c, err := ledger.Claim(ctx, titleID, nil)
//	    if err != nil {
//	        return err
//	    }
//	    if err := borrowRepo.Create(ctx, b); err != nil {
//	        return err // 副本抢占一并回滚
//	    }
//	    return ledger.AssignBorrow(ctx, c.ID, b.ID)
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return m.run(ctx, fn)
	}

	var err error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err = m.run(ctx, fn)
		if err == nil || !isRetryableTxError(err) || attempt == m.maxAttempts {
			return err
		}
		metrics.TxRetriesTotal.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * txRetryBackoff):
		}
	}
	return err
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbFromContext(ctx, m.db).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}
