package repository

import "time"

// CourseListFilter 查询课程列表的过滤条件
type CourseListFilter struct {
	Page          int
	PageSize      int
	CategoryID    uint
	InstructorID  uint
	Search        string
	OnlyPublished bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	CourseID    uint
	Status      string
	Gateway     string
	OrderCode   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CouponUsageListFilter 查询优惠券使用记录的过滤条件
type CouponUsageListFilter struct {
	Page     int
	PageSize int
	CouponID uint
	UserID   uint
}

// RefundRequestListFilter 查询退款申请列表的过滤条件
type RefundRequestListFilter struct {
	Page         int
	PageSize     int
	StudentID    uint
	OrderID      uint
	Status       string
	ManualReview *bool
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Role     string
	Status   string
}
