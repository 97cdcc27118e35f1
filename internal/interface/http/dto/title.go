package dto

// PublishTitleRequest HTTP上架请求
// validator tag说明:
// - required: 必填字段
// - min/max: 数值范围校验
// ISBN格式由领域服务校验
type PublishTitleRequest struct {
	ISBN          string `json:"isbn" binding:"required" example:"9786041234567"`
	Name          string `json:"name" binding:"required,max=200" example:"Mat Biec"`
	Author        string `json:"author" binding:"required,max=100" example:"Nguyen Nhat Anh"`
	Publisher     string `json:"publisher" binding:"required,max=100" example:"NXB Tre"`
	Price         int64  `json:"price" binding:"required,min=1,max=100000000" example:"10000"` // 单次借阅费用(VND)
	Description   string `json:"description" binding:"max=5000" example:"Tieu thuyet"`
	InitialCopies int    `json:"initial_copies" binding:"min=0,max=500" example:"3"`
}

// ListTitlesRequest HTTP书目列表请求
type ListTitlesRequest struct {
	Page          int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	Keyword       string `form:"keyword" binding:"omitempty,max=100" example:"Mat Biec"`
	AvailableOnly bool   `form:"available_only" example:"true"`
	SortBy        string `form:"sort_by" binding:"omitempty,oneof=price_asc price_desc created_at_desc" example:"created_at_desc"`
}

// AddCopiesRequest 新增副本请求
type AddCopiesRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=500" example:"5"`
}
