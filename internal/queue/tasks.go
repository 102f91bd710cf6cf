package queue

import (
	"encoding/json"

	"github.com/coursepay-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskRefundRetry 网关退款重试任务
	TaskRefundRetry = constants.TaskRefundRetry
	// TaskOrderTimeoutCancel 订单超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskManualReviewAlert 人工复核提醒任务
	TaskManualReviewAlert = constants.TaskManualReviewAlert
)

// RefundRetryPayload 退款重试任务载荷
type RefundRetryPayload struct {
	RefundRequestID uint `json:"refund_request_id"`
	Attempt         int  `json:"attempt"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// ManualReviewAlertPayload 人工复核提醒任务载荷
type ManualReviewAlertPayload struct {
	Kind    string `json:"kind"`
	OrderID uint   `json:"order_id"`
	RefID   uint   `json:"ref_id"`
	Reason  string `json:"reason"`
}

// NewRefundRetryTask 创建退款重试任务
func NewRefundRetryTask(payload RefundRetryPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefundRetry, body), nil
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewManualReviewAlertTask 创建人工复核提醒任务
func NewManualReviewAlertTask(payload ManualReviewAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskManualReviewAlert, body), nil
}
