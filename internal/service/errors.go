package service

import "errors"

// 订单相关错误
var (
	ErrOrderNotFound       = errors.New("订单不存在")
	ErrOrderFetchFailed    = errors.New("订单查询失败")
	ErrOrderCreateFailed   = errors.New("订单创建失败")
	ErrOrderUpdateFailed   = errors.New("订单更新失败")
	ErrOrderNotCancellable = errors.New("订单当前状态不可取消")
	ErrOrderStatusInvalid  = errors.New("订单状态流转不合法")
	ErrOrderAccessDenied   = errors.New("无权访问该订单")
)

// 课程相关错误
var (
	ErrCourseNotFound    = errors.New("课程不存在")
	ErrCourseUnavailable = errors.New("课程不可购买")
	ErrCourseNotFree     = errors.New("付费课程不能直接报名")
	ErrAlreadyEnrolled   = errors.New("已报名该课程")
)

// 报名相关错误
var (
	ErrEnrollmentNotFound = errors.New("报名记录不存在")
	ErrProgressInvalid    = errors.New("学习进度取值非法")
)

// 优惠券相关错误
var (
	ErrCouponInvalid      = errors.New("优惠券无效")
	ErrCouponNotFound     = errors.New("优惠券不存在")
	ErrCouponInactive     = errors.New("优惠券已停用")
	ErrCouponNotStarted   = errors.New("优惠券未生效")
	ErrCouponExpired      = errors.New("优惠券已过期")
	ErrCouponExhausted    = errors.New("优惠券已被用完")
	ErrCouponPerUserLimit = errors.New("优惠券超出每人使用次数")
	ErrCouponMinOrder     = errors.New("订单金额未达到优惠券使用门槛")
	ErrCouponScope        = errors.New("优惠券不适用于该课程")
)

// 对账相关错误
var (
	ErrInvalidSignature = errors.New("网关通知验签失败")
	ErrAmountMismatch   = errors.New("通知金额与订单金额不一致")
)

// 支付网关相关错误
var (
	ErrGatewayUnavailable = errors.New("支付网关暂不可用")
)

// 退款相关错误
var (
	ErrRefundNotFound            = errors.New("退款申请不存在")
	ErrRefundAlreadyRequested    = errors.New("该订单已有待处理的退款申请")
	ErrRefundAlreadyProcessed    = errors.New("退款申请已处理")
	ErrRefundNotEligible         = errors.New("订单当前状态不可退款")
	ErrRefundAmountInvalid       = errors.New("退款金额不合法")
	ErrRefundRejected            = errors.New("网关拒绝退款")
	ErrEligibilityWindowExceeded = errors.New("学习进度超出可退款范围")
	ErrRefundDecisionInvalid     = errors.New("退款决策不合法")
)

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrAccountDisabled    = errors.New("账号已被禁用")
	ErrEmailTaken         = errors.New("邮箱已被注册")
)
