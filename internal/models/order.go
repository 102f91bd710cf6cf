package models

import (
	"time"
)

// Order 订单表
// 财务记录：只追加状态、不做物理删除，也不启用软删除。
type Order struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                         // 主键
	OrderCode      string     `gorm:"uniqueIndex;not null" json:"order_code"`                       // 订单编号（对外幂等键）
	UserID         uint       `gorm:"index;not null" json:"user_id"`                                // 用户ID
	CourseID       uint       `gorm:"index;not null" json:"course_id"`                              // 课程ID
	BasePrice      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"base_price"`      // 课程原价
	DiscountAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	FinalPrice     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"final_price"`     // 实付金额
	Gateway        string     `gorm:"not null" json:"gateway"`                                      // 支付网关（vnpay/momo）
	Status         string     `gorm:"index;not null" json:"status"`                                 // 支付状态
	CouponID       *uint      `gorm:"index" json:"coupon_id,omitempty"`                             // 优惠券ID
	ManualReview   bool       `gorm:"not null;default:false" json:"manual_review"`                  // 人工复核标记
	RefundedAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"refunded_amount"` // 已退款金额
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time  `gorm:"index" json:"updated_at"`                                      // 更新时间
	PaidAt         *time.Time `gorm:"index" json:"paid_at"`                                         // 支付时间
	CanceledAt     *time.Time `gorm:"index" json:"canceled_at"`                                     // 取消时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
