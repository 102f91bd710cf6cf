package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/repository"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CouponRequest 创建/更新优惠券请求
type CouponRequest struct {
	Code             string  `json:"code" binding:"required"`
	Type             string  `json:"type" binding:"required"`
	Value            float64 `json:"value" binding:"required"`
	MinOrderValue    float64 `json:"min_order_value"`
	MaxDiscount      float64 `json:"max_discount"`
	UsageLimit       int     `json:"usage_limit"`
	PerUserLimit     int     `json:"per_user_limit"`
	ScopeCourseIDs   []uint  `json:"scope_course_ids"`
	ScopeCategoryIDs []uint  `json:"scope_category_ids"`
	StartsAt         string  `json:"starts_at"`
	EndsAt           string  `json:"ends_at"`
	IsActive         *bool   `json:"is_active"`
}

func (r CouponRequest) toInput() (service.CouponInput, error) {
	startsAt, err := parseTimeNullable(r.StartsAt)
	if err != nil {
		return service.CouponInput{}, err
	}
	endsAt, err := parseTimeNullable(r.EndsAt)
	if err != nil {
		return service.CouponInput{}, err
	}
	return service.CouponInput{
		Code:             r.Code,
		Type:             r.Type,
		Value:            models.NewMoneyFromDecimal(decimal.NewFromFloat(r.Value)),
		MinOrderValue:    models.NewMoneyFromDecimal(decimal.NewFromFloat(r.MinOrderValue)),
		MaxDiscount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(r.MaxDiscount)),
		UsageLimit:       r.UsageLimit,
		PerUserLimit:     r.PerUserLimit,
		ScopeCourseIDs:   r.ScopeCourseIDs,
		ScopeCategoryIDs: r.ScopeCategoryIDs,
		StartsAt:         startsAt,
		EndsAt:           endsAt,
		IsActive:         r.IsActive,
	}, nil
}

// parseTimeNullable 解析可空的 RFC3339 时间字符串
func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	coupon, err := h.CouponAdminService.Create(input)
	if err != nil {
		respondCouponAdminError(c, err)
		return
	}

	requestLog(c).Infow("admin_coupon_created", "coupon_id", coupon.ID, "code", coupon.Code)
	response.Success(c, coupon)
}

// UpdateCoupon 更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	coupon, err := h.CouponAdminService.Update(uint(couponID), input)
	if err != nil {
		respondCouponAdminError(c, err)
		return
	}

	requestLog(c).Infow("admin_coupon_updated", "coupon_id", coupon.ID, "code", coupon.Code)
	response.Success(c, coupon)
}

// DeleteCoupon 删除优惠券，历史使用记录保留
func (h *Handler) DeleteCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.CouponAdminService.Delete(uint(couponID)); err != nil {
		respondCouponAdminError(c, err)
		return
	}

	requestLog(c).Infow("admin_coupon_deleted", "coupon_id", couponID)
	response.Success(c, gin.H{"deleted": true})
}

// GetCoupon 优惠券详情
func (h *Handler) GetCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	coupon, err := h.CouponAdminService.Get(uint(couponID))
	if err != nil {
		respondCouponAdminError(c, err)
		return
	}

	response.Success(c, coupon)
}

// ListCoupons 优惠券列表
func (h *Handler) ListCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.CouponListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active := raw == "true" || raw == "1"
		filter.IsActive = &active
	}

	coupons, total, err := h.CouponAdminService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, coupons, response.BuildPagination(page, pageSize, total))
}

func respondCouponAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		respondError(c, response.CodeNotFound, "error.coupon_not_found", nil)
	case errors.Is(err, service.ErrCouponInvalid):
		respondError(c, response.CodeBadRequest, "error.coupon_invalid", nil)
	default:
		respondError(c, response.CodeInternal, "error.coupon_save_failed", err)
	}
}
