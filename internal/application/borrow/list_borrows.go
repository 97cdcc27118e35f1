package borrow

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/borrow"
)

// ListMyBorrowsUseCase 借阅人查看自己的借阅(读投影)
// 先读Redis,未命中或Redis异常时从MySQL重建
type ListMyBorrowsUseCase struct {
	snapshots borrow.SnapshotRepository
	cache     borrow.SnapshotCache
	logger    *zap.Logger
}

// NewListMyBorrowsUseCase 创建查询用例
func NewListMyBorrowsUseCase(snapshots borrow.SnapshotRepository, cache borrow.SnapshotCache, logger *zap.Logger) *ListMyBorrowsUseCase {
	return &ListMyBorrowsUseCase{snapshots: snapshots, cache: cache, logger: logger}
}

// Execute 执行查询
func (uc *ListMyBorrowsUseCase) Execute(ctx context.Context, userID uint) ([]*borrow.Snapshot, error) {
	list, hit, err := uc.cache.Get(ctx, userID)
	if err != nil {
		uc.logger.Warn("read snapshot cache failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	if hit {
		return list, nil
	}

	list, err = uc.snapshots.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := uc.cache.Set(ctx, userID, list); err != nil {
		uc.logger.Warn("write snapshot cache failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	return list, nil
}

// ListBorrowsUseCase 管理端分页查询全部借阅
type ListBorrowsUseCase struct {
	borrowRepo borrow.Repository
}

// NewListBorrowsUseCase 创建查询用例
func NewListBorrowsUseCase(borrowRepo borrow.Repository) *ListBorrowsUseCase {
	return &ListBorrowsUseCase{borrowRepo: borrowRepo}
}

// ListBorrowsRequest 查询参数
type ListBorrowsRequest struct {
	Page       int
	PageSize   int
	BorrowerID uint
	TitleID    uint
	OpenOnly   bool
}

// ListBorrowsResponse 查询结果
type ListBorrowsResponse struct {
	List     []*BorrowResponse `json:"list"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// Execute 执行查询
func (uc *ListBorrowsUseCase) Execute(ctx context.Context, req ListBorrowsRequest) (*ListBorrowsResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	list, total, err := uc.borrowRepo.List(ctx, borrow.ListParams{
		Page:       req.Page,
		PageSize:   req.PageSize,
		BorrowerID: req.BorrowerID,
		TitleID:    req.TitleID,
		OpenOnly:   req.OpenOnly,
	})
	if err != nil {
		return nil, err
	}
	return &ListBorrowsResponse{
		List:     NewBorrowResponses(list),
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}
