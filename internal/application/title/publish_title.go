package title

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/pkg/tracing"
)

const timeLayout = "2006-01-02 15:04:05"

// PublishTitleUseCase 书目上架用例
// 书目与初始副本在同一个事务里创建,副本创建失败时书目一并回滚
type PublishTitleUseCase struct {
	titleService title.Service
	ledger       *bookcopy.Ledger
	txManager    *mysql.TxManager
	logger       *zap.Logger
}

// NewPublishTitleUseCase 创建上架用例
func NewPublishTitleUseCase(
	titleService title.Service,
	ledger *bookcopy.Ledger,
	txManager *mysql.TxManager,
	logger *zap.Logger,
) *PublishTitleUseCase {
	return &PublishTitleUseCase{
		titleService: titleService,
		ledger:       ledger,
		txManager:    txManager,
		logger:       logger,
	}
}

// PublishTitleRequest 上架请求
type PublishTitleRequest struct {
	ISBN          string
	Name          string
	Author        string
	Publisher     string
	Price         int64 // 单次借阅费用(VND)
	Description   string
	InitialCopies int // 0表示只建书目,稍后再补副本
}

// TitleResponse 书目响应
type TitleResponse struct {
	ID              uint   `json:"id"`
	ISBN            string `json:"isbn"`
	Name            string `json:"name"`
	Author          string `json:"author"`
	Publisher       string `json:"publisher"`
	Price           int64  `json:"price"`
	Description     string `json:"description,omitempty"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	IsAvailable     bool   `json:"is_available"`
	CreatedAt       string `json:"created_at"`
}

// Execute 执行上架
func (uc *PublishTitleUseCase) Execute(ctx context.Context, req PublishTitleRequest) (resp *TitleResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "title.Publish")
	defer func() { tracing.End(span, err) }()

	var t *title.Title
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		t, err = uc.titleService.PublishTitle(txCtx, req.ISBN, req.Name, req.Author, req.Publisher, req.Price, req.Description)
		if err != nil {
			return err
		}
		if req.InitialCopies > 0 {
			if _, err := uc.ledger.AddCopies(txCtx, t, req.InitialCopies); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("title published",
		zap.Uint("title_id", t.ID),
		zap.String("isbn", t.ISBN),
		zap.Int("copies", t.TotalCopies),
	)
	return toTitleResponse(t, true), nil
}

func toTitleResponse(t *title.Title, withDescription bool) *TitleResponse {
	resp := &TitleResponse{
		ID:              t.ID,
		ISBN:            t.ISBN,
		Name:            t.Name,
		Author:          t.Author,
		Publisher:       t.Publisher,
		Price:           t.Price,
		TotalCopies:     t.TotalCopies,
		AvailableCopies: t.AvailableCopies,
		IsAvailable:     t.IsAvailable,
		CreatedAt:       t.CreatedAt.Format(timeLayout),
	}
	if withDescription {
		resp.Description = t.Description
	}
	return resp
}
