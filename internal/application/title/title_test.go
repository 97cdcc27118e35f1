package title

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/testutil"
)

func TestArchiveAndRestoreTitle(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	titles := mysql.NewTitleRepository(db)
	ledger := bookcopy.NewLedger(mysql.NewCopyRepository(db), titles)
	txManager := mysql.NewTxManager(db)
	archive := NewArchiveTitleUseCase(titles, ledger, txManager, zap.NewNop())
	restore := NewRestoreTitleUseCase(titles, ledger, txManager, zap.NewNop())

	tt := testutil.SeedTitle(t, db, "978-6041234567", "Mat Biec", 10000, 2)

	var claimed *bookcopy.Copy
	require.NoError(t, txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		claimed, err = ledger.Claim(txCtx, tt.ID, nil)
		return err
	}))
	assert.ErrorIs(t, archive.Execute(ctx, tt.ID), title.ErrTitleOnLoan)

	// 副本被直接改回在架,计数留下偏差
	require.NoError(t, db.Table("copies").Where("id = ?", claimed.ID).
		Updates(map[string]interface{}{"status": int(bookcopy.StatusAvailable), "current_borrow_id": nil}).Error)

	require.NoError(t, archive.Execute(ctx, tt.ID))
	_, err := titles.FindByID(ctx, tt.ID)
	assert.ErrorIs(t, err, title.ErrTitleNotFound)

	resp, err := restore.Execute(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, tt.ID, resp.ID)
	assert.Equal(t, 2, resp.TotalCopies)
	assert.Equal(t, 2, resp.AvailableCopies, "恢复时按副本记录重算")
	assert.True(t, resp.IsAvailable)

	// 对在架书目重复调用不报错
	again, err := restore.Execute(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.AvailableCopies, again.AvailableCopies)

	_, err = restore.Execute(ctx, 999)
	assert.ErrorIs(t, err, title.ErrTitleNotFound)
}
