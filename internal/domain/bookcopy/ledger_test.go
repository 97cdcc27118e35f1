package bookcopy

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/title"
)

// memCopies 内存版副本仓储
type memCopies struct {
	copies map[uint]*Copy
	nextID uint
	// stolen 在FindAvailableIDs返回后、MarkBorrowed之前被"并发请求"抢走的副本
	stolen map[uint]bool
}

func newMemCopies() *memCopies {
	return &memCopies{copies: map[uint]*Copy{}, stolen: map[uint]bool{}}
}

func (m *memCopies) CreateBatch(_ context.Context, copies []*Copy) error {
	for _, c := range copies {
		m.nextID++
		c.ID = m.nextID
		cp := *c
		m.copies[c.ID] = &cp
	}
	return nil
}

func (m *memCopies) FindByID(_ context.Context, id uint) (*Copy, error) {
	c, ok := m.copies[id]
	if !ok {
		return nil, ErrCopyNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCopies) MaxCopyNumber(_ context.Context, titleID uint) (int, error) {
	maxNumber := 0
	for _, c := range m.copies {
		if c.TitleID == titleID && c.CopyNumber > maxNumber {
			maxNumber = c.CopyNumber
		}
	}
	return maxNumber, nil
}

func (m *memCopies) available(titleID uint) []*Copy {
	var list []*Copy
	for _, c := range m.copies {
		if c.TitleID == titleID && c.Status == StatusAvailable {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CopyNumber < list[j].CopyNumber })
	return list
}

func (m *memCopies) ListAvailable(_ context.Context, titleID uint) ([]*Copy, error) {
	return m.available(titleID), nil
}

func (m *memCopies) FindAvailableIDs(_ context.Context, titleID uint, limit int) ([]uint, error) {
	var ids []uint
	for _, c := range m.available(titleID) {
		if len(ids) == limit {
			break
		}
		ids = append(ids, c.ID)
	}
	// 模拟并发:候选一返回就被别人抢走
	for id := range m.stolen {
		if c, ok := m.copies[id]; ok {
			c.Status = StatusBorrowed
		}
	}
	m.stolen = map[uint]bool{}
	return ids, nil
}

func (m *memCopies) MarkBorrowed(_ context.Context, copyID, titleID uint) (bool, error) {
	c, ok := m.copies[copyID]
	if !ok || c.TitleID != titleID || c.Status != StatusAvailable {
		return false, nil
	}
	c.Status = StatusBorrowed
	return true, nil
}

func (m *memCopies) AssignBorrow(_ context.Context, copyID, borrowID uint) (bool, error) {
	c, ok := m.copies[copyID]
	if !ok || c.Status != StatusBorrowed || c.CurrentBorrowID != nil {
		return false, nil
	}
	id := borrowID
	c.CurrentBorrowID = &id
	return true, nil
}

func (m *memCopies) MarkAvailable(_ context.Context, copyID, expectedBorrowID uint) (bool, error) {
	c, ok := m.copies[copyID]
	if !ok || !c.IsHeldBy(expectedBorrowID) {
		return false, nil
	}
	c.Status = StatusAvailable
	c.CurrentBorrowID = nil
	return true, nil
}

func (m *memCopies) CountByTitle(_ context.Context, titleID uint) (int, int, error) {
	total, available := 0, 0
	for _, c := range m.copies {
		if c.TitleID != titleID {
			continue
		}
		total++
		if c.Status == StatusAvailable {
			available++
		}
	}
	return total, available, nil
}

// memTitles 只实现台账用到的计数写入
type memTitles struct {
	title.Repository
	counters map[uint][2]int
}

func (m *memTitles) UpdateCounters(_ context.Context, id uint, total, available int) error {
	m.counters[id] = [2]int{total, available}
	return nil
}

func newTestLedger(t *testing.T, quantity int) (*Ledger, *memCopies, *memTitles, *title.Title) {
	t.Helper()
	copies := newMemCopies()
	titles := &memTitles{counters: map[uint][2]int{}}
	l := NewLedger(copies, titles)

	tt := &title.Title{ID: 1, ISBN: "978-604-1234567"}
	if quantity > 0 {
		_, err := l.AddCopies(context.Background(), tt, quantity)
		require.NoError(t, err)
	}
	return l, copies, titles, tt
}

func TestLedger_AddCopies(t *testing.T) {
	l, _, titles, tt := newTestLedger(t, 3)
	ctx := context.Background()

	assert.Equal(t, [2]int{3, 3}, titles.counters[1])
	assert.True(t, tt.IsAvailable)

	more, err := l.AddCopies(ctx, tt, 2)
	require.NoError(t, err)
	assert.Equal(t, "9786041234567-0004", more[0].CopyCode)
	assert.Equal(t, "9786041234567-0005", more[1].CopyCode)
	assert.Equal(t, 5, tt.TotalCopies)

	_, err = l.AddCopies(ctx, tt, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = l.AddCopies(ctx, tt, 501)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestLedger_ClaimAndRelease(t *testing.T) {
	l, _, titles, _ := newTestLedger(t, 2)
	ctx := context.Background()

	c, err := l.Claim(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.CopyNumber, "按序号取最小的在架副本")
	assert.Equal(t, StatusBorrowed, c.Status)
	assert.Equal(t, [2]int{2, 1}, titles.counters[1])

	require.NoError(t, l.AssignBorrow(ctx, c.ID, 100))
	assert.ErrorIs(t, l.AssignBorrow(ctx, c.ID, 101), ErrCopyStateMismatch)

	_, err = l.Release(ctx, c.ID, 101)
	assert.ErrorIs(t, err, ErrCopyStateMismatch, "持有者不匹配")

	released, err := l.Release(ctx, c.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, released.Status)
	assert.Nil(t, released.CurrentBorrowID)
	assert.Equal(t, [2]int{2, 2}, titles.counters[1])

	full, err := l.IsFullyReturned(ctx, 1)
	require.NoError(t, err)
	assert.True(t, full)
}

func TestLedger_ClaimSpecificCopy(t *testing.T) {
	l, _, _, _ := newTestLedger(t, 2)
	ctx := context.Background()

	second := uint(2)
	c, err := l.Claim(ctx, 1, &second)
	require.NoError(t, err)
	assert.Equal(t, uint(2), c.ID)

	_, err = l.Claim(ctx, 1, &second)
	assert.ErrorIs(t, err, ErrNoAvailableCopy, "指定的副本已借出")

	_, err = l.Claim(ctx, 99, nil)
	assert.ErrorIs(t, err, ErrNoAvailableCopy)
}

func TestLedger_ClaimRetriesWhenCandidatesAreTaken(t *testing.T) {
	l, copies, _, _ := newTestLedger(t, 7)
	ctx := context.Background()

	// 前5个候选全部在读取后被抢走,下一轮应拿到第6个
	for id := uint(1); id <= 5; id++ {
		copies.stolen[id] = true
	}

	c, err := l.Claim(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, c.CopyNumber)
}

func TestLedger_ClaimExhausted(t *testing.T) {
	l, _, titles, _ := newTestLedger(t, 1)
	ctx := context.Background()

	_, err := l.Claim(ctx, 1, nil)
	require.NoError(t, err)

	_, err = l.Claim(ctx, 1, nil)
	assert.ErrorIs(t, err, ErrNoAvailableCopy)
	assert.Equal(t, [2]int{1, 0}, titles.counters[1])

	full, err := l.IsFullyReturned(ctx, 1)
	require.NoError(t, err)
	assert.False(t, full)
}
