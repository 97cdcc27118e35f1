package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
)

// SeedUser 直接写入一个借阅人(密码哈希不可用于登录)
func SeedUser(t *testing.T, db *gorm.DB, email, name string) *user.User {
	t.Helper()
	u := user.NewUser(email, "not-a-bcrypt-hash", name, user.RoleMember)
	require.NoError(t, mysql.NewUserRepository(db).Create(context.Background(), u))
	return u
}

// SeedTitle 创建书目并上架copies个副本
func SeedTitle(t *testing.T, db *gorm.DB, isbn, name string, price int64, copies int) *title.Title {
	t.Helper()
	ctx := context.Background()

	titles := mysql.NewTitleRepository(db)
	tt := title.NewTitle(isbn, name, "Nguyen Nhat Anh", "NXB Tre", price, "")
	require.NoError(t, titles.Create(ctx, tt))
	if copies > 0 {
		_, err := bookcopy.NewLedger(mysql.NewCopyRepository(db), titles).AddCopies(ctx, tt, copies)
		require.NoError(t, err)
	}
	return tt
}
