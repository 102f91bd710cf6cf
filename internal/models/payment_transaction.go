package models

import (
	"time"
)

// PaymentTransaction 支付通知流水
// 每条验签通过的网关通知一条记录，(gateway, gateway_txn_id) 唯一，仅追加。
// 该唯一约束是回调/webhook 去重的核心依据。
type PaymentTransaction struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                       // 主键
	OrderID        uint      `gorm:"index;not null" json:"order_id"`                             // 订单ID
	Gateway        string    `gorm:"uniqueIndex:idx_gateway_txn;not null" json:"gateway"`        // 支付网关
	GatewayTxnID   string    `gorm:"uniqueIndex:idx_gateway_txn;not null" json:"gateway_txn_id"` // 网关流水号
	Amount         Money     `gorm:"type:decimal(20,2);not null" json:"amount"`                  // 通知金额
	ResultCode     string    `gorm:"not null" json:"result_code"`                                // 网关结果码
	RawPayloadHash string    `gorm:"type:varchar(64)" json:"raw_payload_hash"`                   // 原始参数摘要
	ReceivedAt     time.Time `gorm:"index" json:"received_at"`                                   // 接收时间
}

// TableName 指定表名
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
