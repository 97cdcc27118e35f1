package handler

import (
	"github.com/gin-gonic/gin"

	appcopy "github.com/xiebiao/library/internal/application/bookcopy"
	apptitle "github.com/xiebiao/library/internal/application/title"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/pkg/response"
)

// TitleHandler 书目与副本HTTP处理器
type TitleHandler struct {
	publishUseCase   *apptitle.PublishTitleUseCase
	listUseCase      *apptitle.ListTitlesUseCase
	getUseCase       *apptitle.GetTitleUseCase
	archiveUseCase   *apptitle.ArchiveTitleUseCase
	restoreUseCase   *apptitle.RestoreTitleUseCase
	addCopiesUseCase *appcopy.AddCopiesUseCase
	availableUseCase *appcopy.ListAvailableCopiesUseCase
	recomputeUseCase *appcopy.RecomputeTitleUseCase
}

// NewTitleHandler 创建书目处理器
func NewTitleHandler(
	publishUseCase *apptitle.PublishTitleUseCase,
	listUseCase *apptitle.ListTitlesUseCase,
	getUseCase *apptitle.GetTitleUseCase,
	archiveUseCase *apptitle.ArchiveTitleUseCase,
	restoreUseCase *apptitle.RestoreTitleUseCase,
	addCopiesUseCase *appcopy.AddCopiesUseCase,
	availableUseCase *appcopy.ListAvailableCopiesUseCase,
	recomputeUseCase *appcopy.RecomputeTitleUseCase,
) *TitleHandler {
	return &TitleHandler{
		publishUseCase:   publishUseCase,
		listUseCase:      listUseCase,
		getUseCase:       getUseCase,
		archiveUseCase:   archiveUseCase,
		restoreUseCase:   restoreUseCase,
		addCopiesUseCase: addCopiesUseCase,
		availableUseCase: availableUseCase,
		recomputeUseCase: recomputeUseCase,
	}
}

// PublishTitle 上架书目
// @Summary      上架书目
// @Description  创建书目并可同时上架若干副本(馆员)
// @Tags         书目
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.PublishTitleRequest true "书目信息"
// @Success      200 {object} response.Response{data=apptitle.TitleResponse} "上架成功"
// @Failure      400 {object} response.Response "参数错误或ISBN已存在"
// @Router       /titles [post]
func (h *TitleHandler) PublishTitle(c *gin.Context) {
	var req dto.PublishTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.publishUseCase.Execute(c.Request.Context(), apptitle.PublishTitleRequest{
		ISBN:          req.ISBN,
		Name:          req.Name,
		Author:        req.Author,
		Publisher:     req.Publisher,
		Price:         req.Price,
		Description:   req.Description,
		InitialCopies: req.InitialCopies,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListTitles 书目列表
// @Summary      书目列表
// @Tags         书目
// @Produce      json
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Param        keyword query string false "书名/作者关键字"
// @Param        available_only query bool false "只看可借"
// @Param        sort_by query string false "排序" Enums(price_asc, price_desc, created_at_desc)
// @Success      200 {object} response.Response{data=response.PageData{list=[]apptitle.TitleResponse}}
// @Router       /titles [get]
func (h *TitleHandler) ListTitles(c *gin.Context) {
	var req dto.ListTitlesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.listUseCase.Execute(c.Request.Context(), apptitle.ListTitlesRequest{
		Page:          req.Page,
		PageSize:      req.PageSize,
		Keyword:       req.Keyword,
		AvailableOnly: req.AvailableOnly,
		SortBy:        req.SortBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}

// GetTitle 书目详情
// @Summary      书目详情
// @Tags         书目
// @Produce      json
// @Param        id path int true "书目ID"
// @Success      200 {object} response.Response{data=apptitle.TitleResponse}
// @Failure      404 {object} response.Response "书目不存在"
// @Router       /titles/{id} [get]
func (h *TitleHandler) GetTitle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.getUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ArchiveTitle 下架书目
// @Summary      下架书目
// @Description  所有副本都已归还才能下架(馆员)
// @Tags         书目
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "书目ID"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response "仍有副本借出"
// @Router       /titles/{id} [delete]
func (h *TitleHandler) ArchiveTitle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.archiveUseCase.Execute(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RestoreTitle 撤销下架
// @Summary      撤销下架
// @Description  恢复已归档的书目并重算副本计数(馆员)
// @Tags         书目
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "书目ID"
// @Success      200 {object} response.Response{data=apptitle.TitleResponse}
// @Failure      404 {object} response.Response "书目不存在"
// @Router       /titles/{id}/restore [patch]
func (h *TitleHandler) RestoreTitle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.restoreUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// AddCopies 新增副本
// @Summary      新增副本
// @Tags         副本
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "书目ID"
// @Param        request body dto.AddCopiesRequest true "数量"
// @Success      200 {object} response.Response{data=appcopy.AddCopiesResponse}
// @Router       /titles/{id}/copies [post]
func (h *TitleHandler) AddCopies(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddCopiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.addCopiesUseCase.Execute(c.Request.Context(), id, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListAvailableCopies 在架副本
// @Summary      在架副本
// @Tags         副本
// @Produce      json
// @Param        id path int true "书目ID"
// @Success      200 {object} response.Response{data=[]appcopy.CopyResponse}
// @Router       /titles/{id}/copies/available [get]
func (h *TitleHandler) ListAvailableCopies(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.availableUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RecomputeCounters 重算书目计数
// @Summary      重算书目计数
// @Description  从副本记录全量重算总数与在架数(馆员,用于数据修复)
// @Tags         副本
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "书目ID"
// @Success      200 {object} response.Response{data=appcopy.RecomputeResponse}
// @Router       /titles/{id}/recompute [post]
func (h *TitleHandler) RecomputeCounters(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.recomputeUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
