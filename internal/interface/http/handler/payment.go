package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/pkg/response"
)

const defaultUnreconciledLimit = 50

// PaymentHandler 归还支付HTTP处理器
type PaymentHandler struct {
	prepareUseCase      *apppayment.PrepareReturnUseCase
	confirmCashUseCase  *apppayment.ConfirmCashUseCase
	callbackUseCase     *apppayment.HandleGatewayCallbackUseCase
	repairUseCase       *apppayment.RepairCloseUseCase
	unreconciledUseCase *apppayment.ListUnreconciledUseCase
	appBaseURL          string
}

// NewPaymentHandler 创建支付处理器
// appBaseURL 网关回调处理完成后重定向的前端地址
func NewPaymentHandler(
	prepareUseCase *apppayment.PrepareReturnUseCase,
	confirmCashUseCase *apppayment.ConfirmCashUseCase,
	callbackUseCase *apppayment.HandleGatewayCallbackUseCase,
	repairUseCase *apppayment.RepairCloseUseCase,
	unreconciledUseCase *apppayment.ListUnreconciledUseCase,
	appBaseURL string,
) *PaymentHandler {
	return &PaymentHandler{
		prepareUseCase:      prepareUseCase,
		confirmCashUseCase:  confirmCashUseCase,
		callbackUseCase:     callbackUseCase,
		repairUseCase:       repairUseCase,
		unreconciledUseCase: unreconciledUseCase,
		appBaseURL:          appBaseURL,
	}
}

// PrepareReturn 馆员代借阅人发起归还支付
// @Summary      发起归还支付(馆员)
// @Tags         管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "借阅ID"
// @Param        request body dto.AdminPrepareReturnRequest true "借阅人与支付方式"
// @Success      200 {object} response.Response{data=apppayment.PrepareReturnResponse}
// @Router       /admin/borrows/{id}/return/prepare [post]
func (h *PaymentHandler) PrepareReturn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AdminPrepareReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.prepareUseCase.Execute(c.Request.Context(), apppayment.PrepareReturnRequest{
		BorrowID:   id,
		BorrowerID: req.BorrowerID,
		Method:     req.Method,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ConfirmCash 确认现金收款并归还
// @Summary      确认现金收款
// @Description  收款与归还;重复确认返回同一条已归还记录
// @Tags         管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "借阅ID"
// @Param        request body dto.ConfirmCashRequest true "借阅人"
// @Success      200 {object} response.Response{data=appborrow.BorrowResponse}
// @Failure      400 {object} response.Response "支付方式不是现金"
// @Failure      500 {object} response.Response "已收款但归还失败"
// @Router       /admin/borrows/{id}/return/confirm-cash [post]
func (h *PaymentHandler) ConfirmCash(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ConfirmCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.confirmCashUseCase.Execute(c.Request.Context(), apppayment.ConfirmCashRequest{
		BorrowID:   id,
		BorrowerID: req.BorrowerID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListUnreconciled 已收款但未归还的借阅
// @Summary      待人工对账
// @Tags         管理
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "最多返回条数"
// @Success      200 {object} response.Response{data=[]appborrow.BorrowResponse}
// @Router       /admin/borrows/unreconciled [get]
func (h *PaymentHandler) ListUnreconciled(c *gin.Context) {
	var req dto.ListUnreconciledRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultUnreconciledLimit
	}

	result, err := h.unreconciledUseCase.Execute(c.Request.Context(), req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Repair 重新执行归还
// @Summary      人工修复
// @Description  对已收款但归还失败的借阅重新执行归还
// @Tags         管理
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "借阅ID"
// @Success      200 {object} response.Response{data=appborrow.BorrowResponse}
// @Router       /admin/borrows/{id}/repair [post]
func (h *PaymentHandler) Repair(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.repairUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// VNPayReturn 网关回调
// @Summary      VNPAY回调
// @Description  验签后完成收款与归还,结果以302重定向到前端结果页
// @Tags         支付
// @Param        vnp_TxnRef query string true "交易号"
// @Param        vnp_SecureHash query string true "签名"
// @Success      302 "重定向到 /payment-result"
// @Router       /payments/vnpay/return [get]
func (h *PaymentHandler) VNPayReturn(c *gin.Context) {
	// 错误已经在用例里记录,这里只关心要展示给用户的结果
	outcome, _ := h.callbackUseCase.Execute(c.Request.Context(), c.Request.URL.Query())
	c.Redirect(http.StatusFound, outcome.RedirectURL(h.appBaseURL))
}
