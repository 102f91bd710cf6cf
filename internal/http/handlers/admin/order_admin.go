package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/repository"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListAdminOrders 订单列表（管理端）
func (h *Handler) ListAdminOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.OrderListFilter{
		Page:      page,
		PageSize:  pageSize,
		Status:    strings.TrimSpace(c.Query("status")),
		Gateway:   strings.TrimSpace(c.Query("gateway")),
		OrderCode: strings.TrimSpace(c.Query("order_code")),
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(userID)
	}
	if courseID, err := strconv.ParseUint(c.Query("course_id"), 10, 64); err == nil {
		filter.CourseID = uint(courseID)
	}
	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	filter.CreatedFrom = createdFrom
	filter.CreatedTo = createdTo

	orders, total, err := h.OrderService.ListAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetAdminOrder 订单详情（管理端）
func (h *Handler) GetAdminOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	order, err := h.OrderService.GetForAdmin(uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	response.Success(c, order)
}
