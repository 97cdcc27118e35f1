package mysql

import (
	"context"
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL错误码
const (
	erDupEntry           = 1062
	erLockWaitTimeout    = 1205
	erLockDeadlock       = 1213
	sqliteUniqueMismatch = "UNIQUE constraint failed"
)

// txKey context中事务DB的key
type txKey struct{}

// withTx 把事务DB放进context
func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// inTx context里是否已有事务
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// dbFromContext 从context获取事务DB,没有则使用默认DB
// 教学要点:所有仓储方法都必须经过这里,否则会绕开调用方的事务
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// isDuplicateError 判断是否为唯一索引冲突
// TranslateError开启时两种驱动都会翻译成gorm.ErrDuplicatedKey,
// 原始错误码与SQLite(测试)的报错文本作为兜底
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == erDupEntry
	}
	return strings.Contains(err.Error(), sqliteUniqueMismatch)
}

// isRetryableTxError 死锁与锁等待超时:InnoDB已回滚整个事务,可以安全重跑
func isRetryableTxError(err error) bool {
	var myErr *mysqldriver.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == erLockDeadlock || myErr.Number == erLockWaitTimeout
}

// normalizePage 分页参数兜底
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
