package worker

import (
	"context"
	"testing"

	"github.com/coursepay-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleRefundRetrySkipsInvalidPayload(t *testing.T) {
	consumer := NewConsumer(nil)

	task := asynq.NewTask(queue.TaskRefundRetry, []byte(`{"refund_request_id":0}`))
	if err := consumer.handleRefundRetry(context.Background(), task); err != nil {
		t.Fatalf("zero refund request id should be skipped, got %v", err)
	}

	bad := asynq.NewTask(queue.TaskRefundRetry, []byte(`not-json`))
	if err := consumer.handleRefundRetry(context.Background(), bad); err == nil {
		t.Fatalf("malformed payload should return error")
	}
}

func TestHandleOrderTimeoutCancelSkipsInvalidPayload(t *testing.T) {
	consumer := NewConsumer(nil)

	task := asynq.NewTask(queue.TaskOrderTimeoutCancel, []byte(`{"order_id":0}`))
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("zero order id should be skipped, got %v", err)
	}

	bad := asynq.NewTask(queue.TaskOrderTimeoutCancel, []byte(`not-json`))
	if err := consumer.handleOrderTimeoutCancel(context.Background(), bad); err == nil {
		t.Fatalf("malformed payload should return error")
	}
}

func TestHandleManualReviewAlert(t *testing.T) {
	consumer := NewConsumer(nil)

	task := asynq.NewTask(queue.TaskManualReviewAlert, []byte(`{"kind":"order","order_id":7,"reason":"notification_amount_mismatch"}`))
	if err := consumer.handleManualReviewAlert(context.Background(), task); err != nil {
		t.Fatalf("alert handling should not fail, got %v", err)
	}
}
