package worker

import (
	"context"
	"encoding/json"

	"github.com/coursepay-next/internal/logger"
	"github.com/coursepay-next/internal/provider"
	"github.com/coursepay-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskRefundRetry, c.handleRefundRetry)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
	mux.HandleFunc(queue.TaskManualReviewAlert, c.handleManualReviewAlert)
}

// handleRefundRetry 重发批准后因网关瞬时故障未完成的退款。
// RetryIssue 对重试耗尽和网关再次拒绝返回 nil，任务不再重投，
// 返回错误只发生在下一轮退避重试已经入队之后。
func (c *Consumer) handleRefundRetry(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_refund_retry_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.RefundRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_refund_retry_unmarshal_failed", "error", err)
		return err
	}
	if payload.RefundRequestID == 0 {
		logger.Debugw("worker_refund_retry_skip_invalid_payload", "refund_request_id", payload.RefundRequestID)
		return nil
	}

	if err := c.RefundService.RetryIssue(ctx, payload.RefundRequestID); err != nil {
		logger.Warnw("worker_refund_retry_failed",
			"refund_request_id", payload.RefundRequestID,
			"attempt", payload.Attempt,
			"error", err,
		)
		return nil
	}
	logger.Infow("worker_refund_retry_done",
		"refund_request_id", payload.RefundRequestID,
		"attempt", payload.Attempt,
	)
	return nil
}

// handleOrderTimeoutCancel 到期回收未支付订单，已离开 pending 的订单空操作
func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}

	if err := c.OrderService.CancelExpired(payload.OrderID); err != nil {
		logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

// handleManualReviewAlert 人工复核提醒。
// 告警投递渠道由运维在日志管道上订阅 manual_review_alert 事件。
func (c *Consumer) handleManualReviewAlert(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_manual_review_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ManualReviewAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_manual_review_unmarshal_failed", "error", err)
		return err
	}

	logger.Warnw("manual_review_alert",
		"kind", payload.Kind,
		"order_id", payload.OrderID,
		"ref_id", payload.RefID,
		"reason", payload.Reason,
	)
	return nil
}
