package mysql_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/testutil"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
)

type fixture struct {
	db      *gorm.DB
	tx      *mysql.TxManager
	titles  title.Repository
	copies  bookcopy.Repository
	borrows borrow.Repository
	ledger  *bookcopy.Ledger
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewTestDB(t)
	titles := mysql.NewTitleRepository(db)
	copies := mysql.NewCopyRepository(db)
	return &fixture{
		db:      db,
		tx:      mysql.NewTxManager(db),
		titles:  titles,
		copies:  copies,
		borrows: mysql.NewBorrowRepository(db),
		ledger:  bookcopy.NewLedger(copies, titles),
	}
}

// seedTitle 创建书目并上架quantity个副本
func (f *fixture) seedTitle(t *testing.T, isbn string, quantity int) *title.Title {
	t.Helper()
	ctx := context.Background()

	tt := title.NewTitle(isbn, "Clean Code", "Robert C. Martin", "Prentice Hall", 10000, "")
	require.NoError(t, f.titles.Create(ctx, tt))
	if quantity > 0 {
		_, err := f.ledger.AddCopies(ctx, tt, quantity)
		require.NoError(t, err)
	}
	return tt
}

func TestTitleRepository_CreateAndCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tt := f.seedTitle(t, "978-0132350884", 3)

	got, err := f.titles.FindByID(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCopies)
	assert.Equal(t, 3, got.AvailableCopies)
	assert.True(t, got.IsAvailable)

	dup := title.NewTitle("978-0132350884", "Other", "x", "y", 1, "")
	assert.ErrorIs(t, f.titles.Create(ctx, dup), title.ErrISBNDuplicate)

	require.NoError(t, f.titles.Delete(ctx, tt.ID))
	_, err = f.titles.FindByID(ctx, tt.ID)
	assert.ErrorIs(t, err, title.ErrTitleNotFound)
	assert.ErrorIs(t, f.titles.Delete(ctx, tt.ID), title.ErrTitleNotFound)

	restored, err := f.titles.Restore(ctx, tt.ID)
	require.NoError(t, err)
	assert.True(t, restored)
	got, err = f.titles.FindByID(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCopies)

	restored, err = f.titles.Restore(ctx, tt.ID)
	require.NoError(t, err)
	assert.False(t, restored, "未归档的书目不做修改")

	_, err = f.titles.Restore(ctx, 999)
	assert.ErrorIs(t, err, title.ErrTitleNotFound)
}

func TestTitleRepository_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedTitle(t, "9780000000001", 1)
	f.seedTitle(t, "9780000000002", 0)

	all, total, err := f.titles.List(ctx, title.ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	available, total, err := f.titles.List(ctx, title.ListParams{Page: 1, PageSize: 10, AvailableOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, available, 1)
	assert.Equal(t, "9780000000001", available[0].ISBN)
}

func TestCopyRepository_CodesAndNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tt := f.seedTitle(t, "978-0132350884", 2)
	more, err := f.ledger.AddCopies(ctx, tt, 2)
	require.NoError(t, err)

	require.Len(t, more, 2)
	assert.Equal(t, 3, more[0].CopyNumber)
	assert.Equal(t, "9780132350884-0003", more[0].CopyCode)
	assert.Equal(t, "9780132350884-0004", more[1].CopyCode)
	assert.Equal(t, 4, tt.TotalCopies)

	list, err := f.ledger.ListAvailable(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "9780132350884-0001", list[0].CopyCode)
}

func TestCopyRepository_ConditionalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tt := f.seedTitle(t, "9780000000001", 1)

	ids, err := f.copies.FindAvailableIDs(ctx, tt.ID, 5)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	copyID := ids[0]

	// 书目不匹配不能抢占
	ok, err := f.copies.MarkBorrowed(ctx, copyID, tt.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.copies.MarkBorrowed(ctx, copyID, tt.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// 已借出不能重复抢占
	ok, err = f.copies.MarkBorrowed(ctx, copyID, tt.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.copies.AssignBorrow(ctx, copyID, 11)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.copies.AssignBorrow(ctx, copyID, 12)
	require.NoError(t, err)
	assert.False(t, ok, "已绑定的副本不能再绑定")

	ok, err = f.copies.MarkAvailable(ctx, copyID, 12)
	require.NoError(t, err)
	assert.False(t, ok, "持有者不匹配时不能释放")

	ok, err = f.copies.MarkAvailable(ctx, copyID, 11)
	require.NoError(t, err)
	assert.True(t, ok)

	c, err := f.copies.FindByID(ctx, copyID)
	require.NoError(t, err)
	assert.Equal(t, bookcopy.StatusAvailable, c.Status)
	assert.Nil(t, c.CurrentBorrowID)
}

func TestLedger_ConcurrentClaimOfLastCopy(t *testing.T) {
	f := newFixture(t)
	tt := f.seedTitle(t, "9780000000001", 1)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		noCopy    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.tx.Transaction(context.Background(), func(ctx context.Context) error {
				_, err := f.ledger.Claim(ctx, tt.ID, nil)
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, bookcopy.ErrNoAvailableCopy):
				noCopy++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, noCopy)

	got, err := f.titles.FindByID(context.Background(), tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalCopies)
	assert.Equal(t, 0, got.AvailableCopies)
	assert.False(t, got.IsAvailable)
}

func TestLedger_RecomputeHealsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tt := f.seedTitle(t, "9780000000001", 3)

	// 人为制造漂移
	require.NoError(t, f.titles.UpdateCounters(ctx, tt.ID, 99, 42))

	total, available, err := f.ledger.Recompute(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, available)

	got, err := f.titles.FindByID(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCopies)
}

func newOpenBorrow(borrowerID, titleID, copyID uint, now time.Time) *borrow.Borrow {
	return borrow.NewBorrow(borrow.Borrower{ID: borrowerID, Name: "An", Email: "an@example.com"},
		titleID, "Clean Code", copyID, "X-0001", 10000, now)
}

func TestBorrowRepository_ActiveKeyDedup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := newOpenBorrow(7, 3, 1, now)
	require.NoError(t, f.borrows.Create(ctx, first))

	exists, err := f.borrows.ExistsOpen(ctx, 7, 3)
	require.NoError(t, err)
	assert.True(t, exists)

	// 同一借阅人同一书目的第二条未归还借阅被唯一索引拒绝
	assert.ErrorIs(t, f.borrows.Create(ctx, newOpenBorrow(7, 3, 2, now)), borrow.ErrDuplicateActiveBorrow)

	// 其他借阅人不受影响
	require.NoError(t, f.borrows.Create(ctx, newOpenBorrow(8, 3, 2, now)))

	ok, err := f.borrows.MarkReturned(ctx, first.ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.borrows.MarkReturned(ctx, first.ID, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "归还时间只能写入一次")

	// 归还后释放去重键,可以再次借阅
	exists, err = f.borrows.ExistsOpen(ctx, 7, 3)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, f.borrows.Create(ctx, newOpenBorrow(7, 3, 3, now)))
}

func TestBorrowRepository_RenewalOptimisticLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	b := newOpenBorrow(7, 3, 1, now)
	require.NoError(t, f.borrows.Create(ctx, b))

	stale := *b
	require.NoError(t, b.Renew(now.Add(time.Hour)))
	ok, err := f.borrows.UpdateRenewal(ctx, b, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// 基于旧版本的续借不能命中
	require.NoError(t, stale.Renew(now.Add(2*time.Hour)))
	ok, err = f.borrows.UpdateRenewal(ctx, &stale, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.borrows.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RenewCount)
	assert.WithinDuration(t, b.DueDate, got.DueDate, time.Millisecond)
}

func TestBorrowRepository_PaymentTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	b := newOpenBorrow(7, 3, 1, now)
	require.NoError(t, f.borrows.Create(ctx, b))

	require.NoError(t, b.PreparePayment(borrow.PaymentMethodGateway, 0, 10000, "BORROW_1_1"))
	ok, err := f.borrows.UpdatePaymentIntent(ctx, b)
	require.NoError(t, err)
	require.True(t, ok)

	found, err := f.borrows.FindByTransactionID(ctx, "BORROW_1_1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)
	assert.Equal(t, borrow.PaymentPending, found.Payment.Status)

	// 交易号不匹配(过期回调)不能改写
	ok, err = f.borrows.UpdatePaymentStatus(ctx, borrow.PaymentTransition{
		BorrowID: b.ID, From: borrow.PaymentPending, To: borrow.PaymentPaid,
		Method: borrow.PaymentMethodGateway, TransactionID: "BORROW_1_0",
	})
	require.NoError(t, err)
	assert.False(t, ok)

	// 支付方式不匹配不能改写
	ok, err = f.borrows.UpdatePaymentStatus(ctx, borrow.PaymentTransition{
		BorrowID: b.ID, From: borrow.PaymentPending, To: borrow.PaymentPaid, Method: borrow.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	paidAt := now.Add(time.Minute)
	ok, err = f.borrows.UpdatePaymentStatus(ctx, borrow.PaymentTransition{
		BorrowID: b.ID, From: borrow.PaymentPending, To: borrow.PaymentPaid,
		Method: borrow.PaymentMethodGateway, TransactionID: "BORROW_1_1", PaidAt: &paidAt,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// 已支付后不能再写入新的支付意向
	b.Payment.Status = borrow.PaymentPending
	ok, err = f.borrows.UpdatePaymentIntent(ctx, b)
	require.NoError(t, err)
	assert.False(t, ok)

	unreconciled, err := f.borrows.ListUnreconciled(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unreconciled, 1)
	assert.Equal(t, b.ID, unreconciled[0].ID)

	_, err = f.borrows.FindByTransactionID(ctx, "")
	assert.ErrorIs(t, err, borrow.ErrBorrowNotFound)
}

func TestBorrowRepository_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := newOpenBorrow(7, 3, 1, now)
	require.NoError(t, f.borrows.Create(ctx, a))
	require.NoError(t, f.borrows.Create(ctx, newOpenBorrow(8, 3, 2, now)))
	_, err := f.borrows.MarkReturned(ctx, a.ID, now)
	require.NoError(t, err)

	list, total, err := f.borrows.List(ctx, borrow.ListParams{Page: 1, PageSize: 10, OpenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, uint(8), list[0].Borrower.ID)

	_, total, err = f.borrows.List(ctx, borrow.ListParams{BorrowerID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSnapshotRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := mysql.NewSnapshotRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	b := newOpenBorrow(7, 3, 1, now)
	b.ID = 21
	require.NoError(t, repo.Append(ctx, b.Snapshot()))

	require.NoError(t, b.Renew(now.Add(time.Hour)))
	require.NoError(t, repo.MirrorRenewal(ctx, b.ID, b.DueDate, b.RenewCount, *b.LastRenewedAt))
	require.NoError(t, repo.MarkReturned(ctx, b.ID))

	list, err := repo.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].RenewCount)
	assert.True(t, list[0].Returned)
	assert.WithinDuration(t, b.DueDate, list[0].DueDate, time.Millisecond)
}

func TestOutboxRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := mysql.NewOutboxRepository(db)
	ctx := context.Background()

	first, err := outbox.NewEvent(outbox.TypeBorrowCreated, 1, map[string]uint{"borrow_id": 1})
	require.NoError(t, err)
	second, err := outbox.NewEvent(outbox.TypeBorrowReturned, 1, map[string]uint{"borrow_id": 1})
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	pending, err := repo.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.EventID, pending[0].EventID)
	assert.JSONEq(t, `{"borrow_id":1}`, string(pending[0].Payload))

	require.NoError(t, repo.MarkSent(ctx, first.ID, time.Now()))
	for i := 0; i < outbox.MaxAttempts; i++ {
		require.NoError(t, repo.MarkAttemptFailed(ctx, second.ID, "broker unavailable"))
	}

	pending, err = repo.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "已投递和死信都不再被拉取")

	var dead mysql.OutboxEventModel
	require.NoError(t, db.First(&dead, second.ID).Error)
	assert.Equal(t, int(outbox.StatusDead), dead.Status)
	assert.Equal(t, outbox.MaxAttempts, dead.Attempts)
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := mysql.NewUserRepository(db)
	ctx := context.Background()

	u := user.NewUser("an@example.com", "hash", "An", user.RoleAdmin)
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)

	assert.ErrorIs(t, repo.Create(ctx, user.NewUser("an@example.com", "hash", "An", user.RoleMember)), apperrors.ErrEmailDuplicate)

	got, err := repo.FindByEmail(ctx, "an@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	reader := user.NewUser("reader@example.com", "hash", "Reader", user.RoleMember)
	require.NoError(t, repo.Create(ctx, reader))
	require.NoError(t, repo.UpdateRole(ctx, reader.ID, user.RoleAdmin))
	got, err = repo.FindByID(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, got.Role)
	assert.ErrorIs(t, repo.UpdateRole(ctx, 999, user.RoleAdmin), apperrors.ErrUserNotFound)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	f := newFixture(t)
	tt := f.seedTitle(t, "9780000000001", 1)

	err := f.tx.Transaction(context.Background(), func(ctx context.Context) error {
		if _, err := f.ledger.Claim(ctx, tt.ID, nil); err != nil {
			return err
		}
		return borrow.ErrDuplicateActiveBorrow
	})
	assert.ErrorIs(t, err, borrow.ErrDuplicateActiveBorrow)

	got, err := f.titles.FindByID(context.Background(), tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies, "回滚后副本仍在架")
}

func TestTxManager_RetriesDeadlockVictim(t *testing.T) {
	f := newFixture(t)
	tt := f.seedTitle(t, "9780000000002", 1)
	deadlock := &mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	before := promtest.ToFloat64(metrics.TxRetriesTotal)

	calls := 0
	err := f.tx.Transaction(context.Background(), func(ctx context.Context) error {
		calls++
		if _, err := f.ledger.Claim(ctx, tt.ID, nil); err != nil {
			return err
		}
		if calls == 1 {
			return fmt.Errorf("claim copy: %w", deadlock)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, before+1, promtest.ToFloat64(metrics.TxRetriesTotal))

	// 第一次的抢占已回滚,第二次才真正生效
	got, err := f.titles.FindByID(context.Background(), tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)
}

func TestTxManager_NoRetry(t *testing.T) {
	f := newFixture(t)
	deadlock := &mysqldriver.MySQLError{Number: 1213}

	t.Run("business error", func(t *testing.T) {
		calls := 0
		err := f.tx.Transaction(context.Background(), func(ctx context.Context) error {
			calls++
			return borrow.ErrDuplicateActiveBorrow
		})
		assert.ErrorIs(t, err, borrow.ErrDuplicateActiveBorrow)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := f.tx.Transaction(context.Background(), func(ctx context.Context) error {
			calls++
			return deadlock
		})
		assert.ErrorIs(t, err, deadlock)
		assert.Equal(t, 3, calls)
	})

	t.Run("nested transaction leaves retry to the outermost", func(t *testing.T) {
		inner := 0
		err := f.tx.Transaction(context.Background(), func(ctx context.Context) error {
			err := f.tx.Transaction(ctx, func(ctx context.Context) error {
				inner++
				return deadlock
			})
			if inner < 2 {
				return err
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, inner)
	})
}
