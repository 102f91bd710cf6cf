package public

import (
	"errors"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ApplyCouponRequest 试算优惠券请求
type ApplyCouponRequest struct {
	Code     string `json:"code" binding:"required"`
	CourseID uint   `json:"course_id" binding:"required"`
}

// ApplyCoupon 下单前的优惠试算，只报价不占用名额。
// 名额真正的扣减发生在支付确认事务里，报价结果不构成承诺。
func (h *Handler) ApplyCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	course, err := h.CourseService.Get(req.CourseID)
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			respondError(c, response.CodeNotFound, "error.course_not_found", nil)
			return
		}
		requestLog(c).Errorw("apply_coupon_course_fetch_failed", "course_id", req.CourseID, "error", err)
		respondError(c, response.CodeInternal, "error.course_fetch_failed", err)
		return
	}
	if !course.Published {
		respondError(c, response.CodeNotFound, "error.course_not_found", nil)
		return
	}
	if course.IsFree {
		respondError(c, response.CodeBadRequest, "error.course_unavailable", nil)
		return
	}

	discount, coupon, err := h.CouponService.Quote(req.Code, userID, service.QuoteContext{
		CourseID:   course.ID,
		CategoryID: course.CategoryID,
		OrderTotal: course.Price,
	})
	if err != nil {
		respondWithMappedError(c, err, couponErrorRules, response.CodeInternal, "error.coupon_quote_failed")
		return
	}

	finalPrice := models.NewMoneyFromDecimal(course.Price.Decimal.Sub(discount.Decimal))
	response.Success(c, gin.H{
		"coupon": gin.H{
			"code":  coupon.Code,
			"type":  coupon.Type,
			"value": coupon.Value,
		},
		"base_price":  course.Price,
		"discount":    discount,
		"final_price": finalPrice,
	})
}
