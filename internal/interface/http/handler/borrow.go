package handler

import (
	"github.com/gin-gonic/gin"

	appborrow "github.com/xiebiao/library/internal/application/borrow"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// BorrowHandler 借阅HTTP处理器
// 借阅人接口从Token取身份;馆员接口由请求体指定借阅人
type BorrowHandler struct {
	createUseCase  *appborrow.CreateBorrowUseCase
	renewUseCase   *appborrow.RenewBorrowUseCase
	mineUseCase    *appborrow.ListMyBorrowsUseCase
	listUseCase    *appborrow.ListBorrowsUseCase
	prepareUseCase *apppayment.PrepareReturnUseCase
}

// NewBorrowHandler 创建借阅处理器
func NewBorrowHandler(
	createUseCase *appborrow.CreateBorrowUseCase,
	renewUseCase *appborrow.RenewBorrowUseCase,
	mineUseCase *appborrow.ListMyBorrowsUseCase,
	listUseCase *appborrow.ListBorrowsUseCase,
	prepareUseCase *apppayment.PrepareReturnUseCase,
) *BorrowHandler {
	return &BorrowHandler{
		createUseCase:  createUseCase,
		renewUseCase:   renewUseCase,
		mineUseCase:    mineUseCase,
		listUseCase:    listUseCase,
		prepareUseCase: prepareUseCase,
	}
}

// CreateBorrow 登记借出
// @Summary      登记借出
// @Description  馆员为借阅人登记借出,在同一事务内抢占副本、写借阅记录和投影
// @Tags         借阅
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateBorrowRequest true "借出信息"
// @Success      200 {object} response.Response{data=appborrow.BorrowResponse} "借出成功"
// @Failure      400 {object} response.Response "重复借阅或无可借副本"
// @Failure      404 {object} response.Response "借阅人或书目不存在"
// @Router       /borrows [post]
func (h *BorrowHandler) CreateBorrow(c *gin.Context) {
	var req dto.CreateBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.createUseCase.Execute(c.Request.Context(), appborrow.CreateBorrowRequest{
		BorrowerID: req.BorrowerID,
		TitleID:    req.TitleID,
		CopyID:     req.CopyID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListMyBorrows 我的借阅
// @Summary      我的借阅
// @Tags         借阅
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]borrow.Snapshot}
// @Router       /borrows/me [get]
func (h *BorrowHandler) ListMyBorrows(c *gin.Context) {
	result, err := h.mineUseCase.Execute(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RenewBorrow 续借
// @Summary      续借
// @Description  未逾期且续借次数小于2时,应还日期顺延7天
// @Tags         借阅
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "借阅ID"
// @Success      200 {object} response.Response{data=appborrow.RenewBorrowResponse}
// @Failure      400 {object} response.Response "已逾期或续借次数已达上限"
// @Router       /borrows/{id}/renew [post]
func (h *BorrowHandler) RenewBorrow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.renewUseCase.Execute(c.Request.Context(), appborrow.RenewBorrowRequest{
		BorrowID:   id,
		BorrowerID: middleware.MustGetUserID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// PrepareReturn 发起归还支付(借阅人)
// @Summary      发起归还支付
// @Description  计算罚金并记录支付意向;vnpay方式返回网关跳转地址
// @Tags         借阅
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "借阅ID"
// @Param        request body dto.PrepareReturnRequest true "支付方式"
// @Success      200 {object} response.Response{data=apppayment.PrepareReturnResponse}
// @Failure      400 {object} response.Response "已支付"
// @Router       /borrows/{id}/return/prepare [post]
func (h *BorrowHandler) PrepareReturn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.PrepareReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.prepareUseCase.Execute(c.Request.Context(), apppayment.PrepareReturnRequest{
		BorrowID:   id,
		BorrowerID: middleware.MustGetUserID(c),
		Method:     req.Method,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListBorrows 全部借阅(馆员)
// @Summary      全部借阅
// @Tags         管理
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Param        borrower_id query int false "借阅人"
// @Param        title_id query int false "书目"
// @Param        open_only query bool false "只看未归还"
// @Success      200 {object} response.Response{data=response.PageData{list=[]appborrow.BorrowResponse}}
// @Router       /admin/borrows [get]
func (h *BorrowHandler) ListBorrows(c *gin.Context) {
	var req dto.ListBorrowsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.listUseCase.Execute(c.Request.Context(), appborrow.ListBorrowsRequest{
		Page:       req.Page,
		PageSize:   req.PageSize,
		BorrowerID: req.BorrowerID,
		TitleID:    req.TitleID,
		OpenOnly:   req.OpenOnly,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}
