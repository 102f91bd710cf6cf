package constants

// 订单支付状态常量
const (
	OrderStatusPending           = "pending"
	OrderStatusPaid              = "paid"
	OrderStatusFailed            = "failed"
	OrderStatusCancelled         = "cancelled"
	OrderStatusRefunded          = "refunded"
	OrderStatusPartiallyRefunded = "partially_refunded"
)

// 支付网关常量
const (
	GatewayVNPay = "vnpay"
	GatewayMoMo  = "momo"
)

// 优惠券类型常量
const (
	CouponTypeFixed   = "fixed"
	CouponTypePercent = "percent"
)

// 报名状态常量
const (
	EnrollmentStatusActive  = "active"
	EnrollmentStatusRevoked = "revoked"
)

// 退款申请状态常量
const (
	RefundStatusPending  = "pending"
	RefundStatusApproved = "approved"
	RefundStatusRejected = "rejected"
)

// 退款决策常量
const (
	RefundDecisionApprove = "approve"
	RefundDecisionReject  = "reject"
)

// 用户角色常量
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskRefundRetry        = "refund:retry"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
	TaskManualReviewAlert  = "alert:manual_review"
)

// VNPay 响应码常量
const (
	VNPayResultSuccess = "00"
)

// MoMo 结果码常量
const (
	MoMoResultSuccess = "0"
)

// 回调应答常量（网关要求的纯文本确认体）
const (
	CallbackAckSuccess = "success"
	CallbackAckFail    = "fail"
)
