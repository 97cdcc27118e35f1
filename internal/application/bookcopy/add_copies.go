package bookcopy

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/pkg/tracing"
)

// AddCopiesUseCase 为书目批量新增副本
type AddCopiesUseCase struct {
	titleRepo title.Repository
	ledger    *bookcopy.Ledger
	txManager *mysql.TxManager
	logger    *zap.Logger
}

// NewAddCopiesUseCase 创建新增副本用例
func NewAddCopiesUseCase(titleRepo title.Repository, ledger *bookcopy.Ledger, txManager *mysql.TxManager, logger *zap.Logger) *AddCopiesUseCase {
	return &AddCopiesUseCase{
		titleRepo: titleRepo,
		ledger:    ledger,
		txManager: txManager,
		logger:    logger,
	}
}

// AddCopiesResponse 新增结果
type AddCopiesResponse struct {
	TitleID         uint            `json:"title_id"`
	Added           []*CopyResponse `json:"added"`
	TotalCopies     int             `json:"total_copies"`
	AvailableCopies int             `json:"available_copies"`
}

// CopyResponse 副本信息
type CopyResponse struct {
	ID         uint   `json:"id"`
	CopyNumber int    `json:"copy_number"`
	CopyCode   string `json:"copy_code"`
	Status     string `json:"status"`
}

// Execute 执行新增
// 书目行加悲观锁,两个并发请求不会分配到相同序号
func (uc *AddCopiesUseCase) Execute(ctx context.Context, titleID uint, quantity int) (resp *AddCopiesResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "copy.Add")
	defer func() { tracing.End(span, err) }()

	var (
		t     *title.Title
		added []*bookcopy.Copy
	)
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		t, err = uc.titleRepo.LockByID(txCtx, titleID)
		if err != nil {
			return err
		}
		added, err = uc.ledger.AddCopies(txCtx, t, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("copies added",
		zap.Uint("title_id", titleID),
		zap.Int("quantity", len(added)),
		zap.Int("total", t.TotalCopies),
	)
	return &AddCopiesResponse{
		TitleID:         t.ID,
		Added:           toCopyResponses(added),
		TotalCopies:     t.TotalCopies,
		AvailableCopies: t.AvailableCopies,
	}, nil
}

func toCopyResponses(copies []*bookcopy.Copy) []*CopyResponse {
	list := make([]*CopyResponse, len(copies))
	for i, c := range copies {
		list[i] = &CopyResponse{
			ID:         c.ID,
			CopyNumber: c.CopyNumber,
			CopyCode:   c.CopyCode,
			Status:     c.Status.String(),
		}
	}
	return list
}
