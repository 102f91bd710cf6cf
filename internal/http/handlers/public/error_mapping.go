package public

import (
	"errors"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var couponErrorRules = []mappedHandlerError{
	{target: service.ErrCouponInvalid, code: response.CodeBadRequest, key: "error.coupon_invalid"},
	{target: service.ErrCouponNotFound, code: response.CodeBadRequest, key: "error.coupon_not_found"},
	{target: service.ErrCouponInactive, code: response.CodeBadRequest, key: "error.coupon_inactive"},
	{target: service.ErrCouponNotStarted, code: response.CodeBadRequest, key: "error.coupon_not_started"},
	{target: service.ErrCouponExpired, code: response.CodeBadRequest, key: "error.coupon_expired"},
	{target: service.ErrCouponExhausted, code: response.CodeBadRequest, key: "error.coupon_exhausted"},
	{target: service.ErrCouponPerUserLimit, code: response.CodeBadRequest, key: "error.coupon_user_limit"},
	{target: service.ErrCouponMinOrder, code: response.CodeBadRequest, key: "error.coupon_min_order"},
	{target: service.ErrCouponScope, code: response.CodeBadRequest, key: "error.coupon_scope"},
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrCourseNotFound, code: response.CodeNotFound, key: "error.course_not_found"},
	{target: service.ErrCourseUnavailable, code: response.CodeBadRequest, key: "error.course_unavailable"},
	{target: service.ErrAlreadyEnrolled, code: response.CodeBadRequest, key: "error.already_enrolled"},
	{target: service.ErrGatewayUnavailable, code: response.CodeBadRequest, key: "error.gateway_unavailable"},
}

var orderLookupErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderAccessDenied, code: response.CodeNotFound, key: "error.order_not_found"},
}

var orderCancelErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderAccessDenied, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderNotCancellable, code: response.CodeConflict, key: "error.order_not_cancellable"},
}

var enrollFreeErrorRules = []mappedHandlerError{
	{target: service.ErrCourseNotFound, code: response.CodeNotFound, key: "error.course_not_found"},
	{target: service.ErrCourseUnavailable, code: response.CodeBadRequest, key: "error.course_unavailable"},
	{target: service.ErrCourseNotFree, code: response.CodeBadRequest, key: "error.course_not_free"},
	{target: service.ErrAlreadyEnrolled, code: response.CodeBadRequest, key: "error.already_enrolled"},
}

var progressErrorRules = []mappedHandlerError{
	{target: service.ErrProgressInvalid, code: response.CodeBadRequest, key: "error.progress_invalid"},
	{target: service.ErrEnrollmentNotFound, code: response.CodeNotFound, key: "error.enrollment_not_found"},
}

var refundRequestErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderAccessDenied, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrRefundNotEligible, code: response.CodeBadRequest, key: "error.refund_not_eligible"},
	{target: service.ErrEligibilityWindowExceeded, code: response.CodeBadRequest, key: "error.refund_progress_exceeded"},
	{target: service.ErrRefundAlreadyRequested, code: response.CodeConflict, key: "error.refund_already_requested"},
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(orderCreateErrorRules, couponErrorRules), response.CodeInternal, "error.order_create_failed")
}

func respondOrderLookupError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderLookupErrorRules, response.CodeInternal, "error.order_fetch_failed")
}

func respondOrderCancelError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderCancelErrorRules, response.CodeInternal, "error.order_fetch_failed")
}

func respondEnrollFreeError(c *gin.Context, err error) {
	respondWithMappedError(c, err, enrollFreeErrorRules, response.CodeInternal, "error.enrollment_failed")
}

func respondProgressError(c *gin.Context, err error) {
	respondWithMappedError(c, err, progressErrorRules, response.CodeInternal, "error.enrollment_failed")
}

func respondRefundRequestError(c *gin.Context, err error) {
	respondWithMappedError(c, err, refundRequestErrorRules, response.CodeInternal, "error.refund_request_failed")
}
