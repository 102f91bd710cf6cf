package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/repository"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListAdminRefunds 退款申请处理队列
func (h *Handler) ListAdminRefunds(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.RefundRequestListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if orderID, err := strconv.ParseUint(c.Query("order_id"), 10, 64); err == nil {
		filter.OrderID = uint(orderID)
	}
	if studentID, err := strconv.ParseUint(c.Query("student_id"), 10, 64); err == nil {
		filter.StudentID = uint(studentID)
	}
	if raw := strings.TrimSpace(c.Query("manual_review")); raw != "" {
		manual := raw == "true" || raw == "1"
		filter.ManualReview = &manual
	}

	requests, total, err := h.RefundService.ListAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.refund_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, requests, response.BuildPagination(page, pageSize, total))
}

// GetAdminRefund 退款申请详情（管理端）
func (h *Handler) GetAdminRefund(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || requestID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	request, err := h.RefundService.GetForAdmin(uint(requestID))
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

// ProcessRefundRequest 退款决策请求
type ProcessRefundRequest struct {
	Decision string   `json:"decision" binding:"required"`
	Amount   *float64 `json:"amount"`
}

// ProcessRefund 处理退款申请。
// 批准后同步发起网关退款；网关瞬时故障或明确拒绝都不落终态，
// 申请保持 pending，由重试任务或管理员再次裁定。
func (h *Handler) ProcessRefund(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || requestID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	var req ProcessRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	var amount *models.Money
	if req.Amount != nil {
		money := models.NewMoneyFromDecimal(decimal.NewFromFloat(*req.Amount))
		amount = &money
	}

	request, err := h.RefundService.Process(service.ProcessInput{
		AdminID:   adminID,
		RequestID: uint(requestID),
		Decision:  req.Decision,
		Amount:    amount,
		Context:   c.Request.Context(),
	})
	if err != nil {
		respondRefundProcessError(c, err)
		return
	}

	requestLog(c).Infow("admin_refund_processed",
		"refund_request_id", request.ID,
		"admin_id", adminID,
		"decision", req.Decision,
		"status", request.Status,
	)
	response.Success(c, request)
}

func respondRefundProcessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRefundNotFound):
		respondError(c, response.CodeNotFound, "error.refund_not_found", nil)
	case errors.Is(err, service.ErrRefundAlreadyProcessed):
		respondError(c, response.CodeConflict, "error.refund_already_processed", nil)
	case errors.Is(err, service.ErrRefundDecisionInvalid):
		respondError(c, response.CodeBadRequest, "error.refund_decision_invalid", nil)
	case errors.Is(err, service.ErrRefundAmountInvalid):
		respondError(c, response.CodeBadRequest, "error.refund_amount_invalid", nil)
	case errors.Is(err, service.ErrRefundNotEligible):
		respondError(c, response.CodeBadRequest, "error.refund_not_eligible", nil)
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, "error.order_not_found", nil)
	case errors.Is(err, service.ErrRefundRejected):
		respondError(c, response.CodeBadRequest, "error.refund_rejected", nil)
	case errors.Is(err, service.ErrGatewayUnavailable):
		respondError(c, response.CodeInternal, "error.gateway_unavailable", nil)
	default:
		respondError(c, response.CodeInternal, "error.refund_process_failed", err)
	}
}
