package public

import (
	"strconv"
	"strings"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/i18n"
	"github.com/coursepay-next/internal/repository"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	CourseID   uint   `json:"course_id" binding:"required"`
	Gateway    string `json:"gateway" binding:"required"`
	CouponCode string `json:"coupon_code"`
}

// CreateOrder 创建待支付订单并返回收银台跳转链接
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.OrderService.Create(service.CreateOrderInput{
		UserID:     uid,
		CourseID:   req.CourseID,
		Gateway:    req.Gateway,
		CouponCode: req.CouponCode,
		ClientIP:   c.ClientIP(),
		Locale:     i18n.ResolveLocale(c),
		Context:    c.Request.Context(),
	})
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}

	response.Success(c, gin.H{
		"order":       result.Order,
		"payment_url": result.PaymentURL,
	})
}

// ListOrders 获取当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListByUser(uid, repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 按订单编号获取详情，非本人订单按不存在处理
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderCode := strings.TrimSpace(c.Param("order_code"))
	if orderCode == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	order, err := h.OrderService.GetByCode(orderCode, uid, false)
	if err != nil {
		respondOrderLookupError(c, err)
		return
	}

	response.Success(c, order)
}

// CancelOrder 取消待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	order, err := h.OrderService.Cancel(uint(orderID), uid, false)
	if err != nil {
		respondOrderCancelError(c, err)
		return
	}

	response.Success(c, order)
}
