package models

import (
	"time"
)

// RefundRequest 退款申请
// 学员发起、管理员决策；每个订单最多一条待处理申请。
type RefundRequest struct {
	ID                uint       `gorm:"primarykey" json:"id"`                          // 主键
	OrderID           uint       `gorm:"index;not null" json:"order_id"`                // 订单ID
	StudentID         uint       `gorm:"index;not null" json:"student_id"`              // 学员用户ID
	Reason            string     `gorm:"type:text" json:"reason"`                       // 申请原因
	Status            string     `gorm:"index;not null" json:"status"`                  // 状态（pending/approved/rejected）
	ProgressAtRequest int        `gorm:"not null;default:0" json:"progress_at_request"` // 申请时的学习进度
	Amount            Money      `gorm:"type:decimal(20,2);not null" json:"amount"`     // 批准退款金额
	GatewayRefundID   string     `gorm:"index" json:"gateway_refund_id,omitempty"`      // 网关退款流水号
	RetryCount        int        `gorm:"not null;default:0" json:"retry_count"`         // 网关重试次数
	ManualReview      bool       `gorm:"not null;default:false" json:"manual_review"`   // 重试耗尽后转人工
	ProcessedBy       *uint      `gorm:"index" json:"processed_by,omitempty"`           // 处理管理员ID
	ProcessedAt       *time.Time `gorm:"index" json:"processed_at,omitempty"`           // 处理时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt         time.Time  `gorm:"index" json:"updated_at"`                       // 更新时间
}

// TableName 指定表名
func (RefundRequest) TableName() string {
	return "refund_requests"
}
