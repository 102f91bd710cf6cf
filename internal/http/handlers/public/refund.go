package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/repository"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateRefundRequest 学员退款申请请求
type CreateRefundRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Reason  string `json:"reason"`
}

// CreateRefund 提交退款申请
func (h *Handler) CreateRefund(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	request, err := h.RefundService.Request(uid, req.OrderID, req.Reason)
	if err != nil {
		respondRefundRequestError(c, err)
		return
	}

	response.Success(c, request)
}

// ListRefunds 获取当前用户退款申请列表
func (h *Handler) ListRefunds(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	requests, total, err := h.RefundService.ListByStudent(uid, repository.RefundRequestListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.refund_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, requests, response.BuildPagination(page, pageSize, total))
}

// GetRefund 获取退款申请详情
func (h *Handler) GetRefund(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || requestID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	request, err := h.RefundService.GetForStudent(uint(requestID), uid)
	if err != nil {
		if errors.Is(err, service.ErrRefundNotFound) {
			respondError(c, response.CodeNotFound, "error.refund_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.refund_fetch_failed", err)
		return
	}

	response.Success(c, request)
}
