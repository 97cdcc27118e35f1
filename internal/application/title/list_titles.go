package title

import (
	"context"

	"github.com/xiebiao/library/internal/domain/title"
)

// ListTitlesUseCase 书目列表(列表不返回description)
type ListTitlesUseCase struct {
	titleService title.Service
}

// NewListTitlesUseCase 创建列表查询用例
func NewListTitlesUseCase(titleService title.Service) *ListTitlesUseCase {
	return &ListTitlesUseCase{titleService: titleService}
}

// ListTitlesRequest 列表查询请求
type ListTitlesRequest struct {
	Page          int
	PageSize      int
	Keyword       string
	AvailableOnly bool
	SortBy        string
}

// ListTitlesResponse 列表查询响应
type ListTitlesResponse struct {
	List     []*TitleResponse `json:"list"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// Execute 执行查询
func (uc *ListTitlesUseCase) Execute(ctx context.Context, req ListTitlesRequest) (*ListTitlesResponse, error) {
	params := title.ListParams{
		Page:          req.Page,
		PageSize:      req.PageSize,
		Keyword:       req.Keyword,
		AvailableOnly: req.AvailableOnly,
		SortBy:        req.SortBy,
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	titles, total, err := uc.titleService.ListTitles(ctx, params)
	if err != nil {
		return nil, err
	}

	list := make([]*TitleResponse, len(titles))
	for i, t := range titles {
		list[i] = toTitleResponse(t, false)
	}
	return &ListTitlesResponse{
		List:     list,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}, nil
}

// GetTitleUseCase 书目详情
type GetTitleUseCase struct {
	titleService title.Service
}

// NewGetTitleUseCase 创建详情查询用例
func NewGetTitleUseCase(titleService title.Service) *GetTitleUseCase {
	return &GetTitleUseCase{titleService: titleService}
}

// Execute 执行查询
func (uc *GetTitleUseCase) Execute(ctx context.Context, id uint) (*TitleResponse, error) {
	t, err := uc.titleService.GetTitle(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTitleResponse(t, true), nil
}
