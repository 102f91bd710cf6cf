package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coursepay-next/internal/config"
	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/payment"
	"github.com/coursepay-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type refundTestEnv struct {
	svc     *RefundService
	db      *gorm.DB
	gateway *fakeGateway
}

func setupRefundTest(t *testing.T) *refundTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:refund_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Order{},
		&models.PaymentTransaction{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Enrollment{},
		&models.RefundRequest{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	refundRepo := repository.NewRefundRequestRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	txnRepo := repository.NewPaymentTransactionRepository(db)
	couponSvc := NewCouponService(repository.NewCouponRepository(db), repository.NewCouponUsageRepository(db))
	enrollSvc := NewEnrollmentService(repository.NewEnrollmentRepository(db), repository.NewCourseRepository(db))

	gateway := &fakeGateway{name: constants.GatewayVNPay}
	registry := payment.NewRegistry()
	registry.Register(gateway)

	svc := NewRefundService(refundRepo, orderRepo, txnRepo, couponSvc, enrollSvc, registry, nil, config.RefundConfig{
		ProgressThresholdPercent: 30,
		MaxRetries:               3,
		RetryBackoffSeconds:      1,
	})
	return &refundTestEnv{svc: svc, db: db, gateway: gateway}
}

// createPaidOrder 造一条已支付订单及其网关流水与报名记录
func createPaidOrder(t *testing.T, db *gorm.DB, code string, userID, courseID uint, final int64, progress int) *models.Order {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		OrderCode:  code,
		UserID:     userID,
		CourseID:   courseID,
		BasePrice:  models.NewMoneyFromInt(final),
		FinalPrice: models.NewMoneyFromInt(final),
		Gateway:    constants.GatewayVNPay,
		Status:     constants.OrderStatusPaid,
		CreatedAt:  now,
		UpdatedAt:  now,
		PaidAt:     &now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create paid order failed: %v", err)
	}
	if err := db.Create(&models.PaymentTransaction{
		OrderID:      order.ID,
		Gateway:      constants.GatewayVNPay,
		GatewayTxnID: "TXN-" + code,
		Amount:       models.NewMoneyFromInt(final),
		ResultCode:   constants.VNPayResultSuccess,
		ReceivedAt:   now,
	}).Error; err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if err := db.Create(&models.Enrollment{
		UserID:          userID,
		CourseID:        courseID,
		Status:          constants.EnrollmentStatusActive,
		ProgressPercent: progress,
		EnrolledAt:      now,
		UpdatedAt:       now,
	}).Error; err != nil {
		t.Fatalf("create enrollment failed: %v", err)
	}
	return order
}

func TestRefundRequestEligibilityWindow(t *testing.T) {
	env := setupRefundTest(t)

	tooFar := createPaidOrder(t, env.db, "RF001", 1, 7, 450000, 45)
	if _, err := env.svc.Request(1, tooFar.ID, "not what I expected"); !errors.Is(err, ErrEligibilityWindowExceeded) {
		t.Fatalf("progress 45/threshold 30 err = %v, want ErrEligibilityWindowExceeded", err)
	}

	early := createPaidOrder(t, env.db, "RF002", 2, 7, 450000, 10)
	request, err := env.svc.Request(2, early.ID, "changed my mind")
	if err != nil {
		t.Fatalf("progress 10/threshold 30 should be accepted: %v", err)
	}
	if request.Status != constants.RefundStatusPending {
		t.Fatalf("status = %s, want pending", request.Status)
	}
	if request.ProgressAtRequest != 10 {
		t.Fatalf("progress_at_request = %d, want 10", request.ProgressAtRequest)
	}
}

func TestRefundRequestGuards(t *testing.T) {
	env := setupRefundTest(t)
	order := createPaidOrder(t, env.db, "RF003", 1, 7, 450000, 0)

	// 非拥有者
	if _, err := env.svc.Request(2, order.ID, "x"); !errors.Is(err, ErrOrderAccessDenied) {
		t.Fatalf("foreign request err = %v, want ErrOrderAccessDenied", err)
	}

	// 每单最多一条待处理申请
	if _, err := env.svc.Request(1, order.ID, "first"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := env.svc.Request(1, order.ID, "second"); !errors.Is(err, ErrRefundAlreadyRequested) {
		t.Fatalf("second request err = %v, want ErrRefundAlreadyRequested", err)
	}

	// 未支付订单不可退
	pending := createPendingOrder(t, env.db, "RF004", 1, 8, 450000, nil, 0)
	if _, err := env.svc.Request(1, pending.ID, "x"); !errors.Is(err, ErrRefundNotEligible) {
		t.Fatalf("pending order err = %v, want ErrRefundNotEligible", err)
	}
}

func TestRefundProcessReject(t *testing.T) {
	env := setupRefundTest(t)
	order := createPaidOrder(t, env.db, "RF005", 1, 7, 450000, 0)
	request, err := env.svc.Request(1, order.ID, "please")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	processed, err := env.svc.Process(ProcessInput{AdminID: 9, RequestID: request.ID, Decision: constants.RefundDecisionReject})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if processed.Status != constants.RefundStatusRejected || processed.ProcessedAt == nil {
		t.Fatalf("reject state wrong: %+v", processed)
	}

	// 终态申请不可重复处理
	if _, err := env.svc.Process(ProcessInput{AdminID: 9, RequestID: request.ID, Decision: constants.RefundDecisionApprove}); !errors.Is(err, ErrRefundAlreadyProcessed) {
		t.Fatalf("reprocess err = %v, want ErrRefundAlreadyProcessed", err)
	}

	// 订单状态不受影响
	reloaded := &models.Order{}
	env.db.First(reloaded, order.ID)
	if reloaded.Status != constants.OrderStatusPaid {
		t.Fatalf("order status = %s, want paid", reloaded.Status)
	}
}

func TestRefundApproveFullRefund(t *testing.T) {
	env := setupRefundTest(t)

	// 订单使用过优惠券，全额退款要回补使用次数
	coupon := createTestCoupon(t, env.db, &models.Coupon{
		Code:       "USED",
		Type:       constants.CouponTypeFixed,
		Value:      models.NewMoneyFromInt(50000),
		IsActive:   true,
		UsageLimit: 5,
		UsedCount:  1,
	})
	order := createPaidOrder(t, env.db, "RF006", 1, 7, 450000, 0)
	if err := env.db.Create(&models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         1,
		OrderID:        order.ID,
		DiscountAmount: models.NewMoneyFromInt(50000),
		UsedAt:         time.Now(),
	}).Error; err != nil {
		t.Fatalf("create usage failed: %v", err)
	}

	request, err := env.svc.Request(1, order.ID, "refund all")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	processed, err := env.svc.Process(ProcessInput{
		AdminID:   9,
		RequestID: request.ID,
		Decision:  constants.RefundDecisionApprove,
		Context:   context.Background(),
	})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if processed.Status != constants.RefundStatusApproved {
		t.Fatalf("request status = %s, want approved", processed.Status)
	}
	if processed.GatewayRefundID == "" {
		t.Fatalf("gateway refund id should be recorded")
	}
	if !processed.Amount.Decimal.Equal(decimal.NewFromInt(450000)) {
		t.Fatalf("amount = %s, want full 450000", processed.Amount.String())
	}

	reloadedOrder := &models.Order{}
	env.db.First(reloadedOrder, order.ID)
	if reloadedOrder.Status != constants.OrderStatusRefunded {
		t.Fatalf("order status = %s, want refunded", reloadedOrder.Status)
	}
	if !reloadedOrder.RefundedAmount.Decimal.Equal(decimal.NewFromInt(450000)) {
		t.Fatalf("refunded amount = %s, want 450000", reloadedOrder.RefundedAmount.String())
	}

	enrollment := &models.Enrollment{}
	env.db.Where("user_id = ? AND course_id = ?", 1, 7).First(enrollment)
	if enrollment.Status != constants.EnrollmentStatusRevoked {
		t.Fatalf("enrollment status = %s, want revoked", enrollment.Status)
	}

	reloadedCoupon := &models.Coupon{}
	env.db.First(reloadedCoupon, coupon.ID)
	if reloadedCoupon.UsedCount != 0 {
		t.Fatalf("coupon used_count = %d, want 0 after release", reloadedCoupon.UsedCount)
	}
}

func TestRefundApprovePartialRefund(t *testing.T) {
	env := setupRefundTest(t)
	order := createPaidOrder(t, env.db, "RF007", 1, 7, 450000, 0)
	request, err := env.svc.Request(1, order.ID, "half back")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	partial := models.NewMoneyFromInt(200000)
	processed, err := env.svc.Process(ProcessInput{
		AdminID:   9,
		RequestID: request.ID,
		Decision:  constants.RefundDecisionApprove,
		Amount:    &partial,
	})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if processed.Status != constants.RefundStatusApproved {
		t.Fatalf("request status = %s, want approved", processed.Status)
	}

	reloaded := &models.Order{}
	env.db.First(reloaded, order.ID)
	if reloaded.Status != constants.OrderStatusPartiallyRefunded {
		t.Fatalf("order status = %s, want partially_refunded", reloaded.Status)
	}

	// 部分退款不撤销报名
	enrollment := &models.Enrollment{}
	env.db.Where("user_id = ? AND course_id = ?", 1, 7).First(enrollment)
	if enrollment.Status != constants.EnrollmentStatusActive {
		t.Fatalf("enrollment status = %s, want active", enrollment.Status)
	}
}

func TestRefundApproveAmountValidation(t *testing.T) {
	env := setupRefundTest(t)
	order := createPaidOrder(t, env.db, "RF008", 1, 7, 450000, 0)
	request, err := env.svc.Request(1, order.ID, "too much")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	over := models.NewMoneyFromInt(500000)
	if _, err := env.svc.Process(ProcessInput{AdminID: 9, RequestID: request.ID, Decision: constants.RefundDecisionApprove, Amount: &over}); !errors.Is(err, ErrRefundAmountInvalid) {
		t.Fatalf("over-amount err = %v, want ErrRefundAmountInvalid", err)
	}
	zero := models.NewMoneyFromInt(0)
	if _, err := env.svc.Process(ProcessInput{AdminID: 9, RequestID: request.ID, Decision: constants.RefundDecisionApprove, Amount: &zero}); !errors.Is(err, ErrRefundAmountInvalid) {
		t.Fatalf("zero-amount err = %v, want ErrRefundAmountInvalid", err)
	}
}

func TestRefundGatewayUnavailableKeepsPending(t *testing.T) {
	env := setupRefundTest(t)
	order := createPaidOrder(t, env.db, "RF009", 1, 7, 450000, 0)
	request, err := env.svc.Request(1, order.ID, "flaky gateway")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	env.gateway.refundErr = payment.ErrRequestFailed
	_, err = env.svc.Process(ProcessInput{AdminID: 9, RequestID: request.ID, Decision: constants.RefundDecisionApprove})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}

	reloaded := &models.RefundRequest{}
	env.db.First(reloaded, request.ID)
	if reloaded.Status != constants.RefundStatusPending {
		t.Fatalf("transient failure must keep request pending, got %s", reloaded.Status)
	}
	if reloaded.RetryCount != 1 {
		t.Fatalf("retry_count = %d, want 1", reloaded.RetryCount)
	}

	orderReloaded := &models.Order{}
	env.db.First(orderReloaded, order.ID)
	if orderReloaded.Status != constants.OrderStatusPaid {
		t.Fatalf("order must stay paid until refund succeeds, got %s", orderReloaded.Status)
	}
}

func TestRefundGatewayRejectedSurfacesToAdmin(t *testing.T) {
	env := setupRefundTest(t)
	order := createPaidOrder(t, env.db, "RF010", 1, 7, 450000, 0)
	request, err := env.svc.Request(1, order.ID, "rejected by provider")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	env.gateway.refundErr = payment.ErrRefundFailed
	_, err = env.svc.Process(ProcessInput{AdminID: 9, RequestID: request.ID, Decision: constants.RefundDecisionApprove})
	if !errors.Is(err, ErrRefundRejected) {
		t.Fatalf("err = %v, want ErrRefundRejected", err)
	}

	// 网关明确拒绝不自动驳回，留给管理员裁定
	reloaded := &models.RefundRequest{}
	env.db.First(reloaded, request.ID)
	if reloaded.Status != constants.RefundStatusPending {
		t.Fatalf("status = %s, want pending", reloaded.Status)
	}
	if reloaded.RetryCount != 0 {
		t.Fatalf("terminal rejection should not consume retries, retry_count = %d", reloaded.RetryCount)
	}
}

func TestRefundRetryIssueFinalizes(t *testing.T) {
	env := setupRefundTest(t)
	order := createPaidOrder(t, env.db, "RF011", 1, 7, 450000, 0)
	request, err := env.svc.Request(1, order.ID, "retry me")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	env.gateway.refundErr = payment.ErrRequestFailed
	if _, err := env.svc.Process(ProcessInput{AdminID: 9, RequestID: request.ID, Decision: constants.RefundDecisionApprove}); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected transient failure, got %v", err)
	}

	// 网关恢复后重试完成落账
	env.gateway.refundErr = nil
	if err := env.svc.RetryIssue(context.Background(), request.ID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	reloaded := &models.RefundRequest{}
	env.db.First(reloaded, request.ID)
	if reloaded.Status != constants.RefundStatusApproved {
		t.Fatalf("status = %s, want approved", reloaded.Status)
	}
	orderReloaded := &models.Order{}
	env.db.First(orderReloaded, order.ID)
	if orderReloaded.Status != constants.OrderStatusRefunded {
		t.Fatalf("order status = %s, want refunded", orderReloaded.Status)
	}
}

func TestRefundRetriesExhaustedFlagManualReview(t *testing.T) {
	env := setupRefundTest(t)
	order := createPaidOrder(t, env.db, "RF012", 1, 7, 450000, 0)
	request, err := env.svc.Request(1, order.ID, "always down")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	env.gateway.refundErr = payment.ErrRequestFailed
	if _, err := env.svc.Process(ProcessInput{AdminID: 9, RequestID: request.ID, Decision: constants.RefundDecisionApprove}); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	// MaxRetries = 3：再失败两次后转人工
	for i := 0; i < 2; i++ {
		if err := env.svc.RetryIssue(context.Background(), request.ID); err != nil {
			t.Fatalf("retry %d failed: %v", i, err)
		}
	}

	reloaded := &models.RefundRequest{}
	env.db.First(reloaded, request.ID)
	if !reloaded.ManualReview {
		t.Fatalf("exhausted retries must flag manual review")
	}
	if reloaded.Status != constants.RefundStatusPending {
		t.Fatalf("status = %s, want pending (manual)", reloaded.Status)
	}

	// 转人工后的重试任务为空操作
	if err := env.svc.RetryIssue(context.Background(), request.ID); err != nil {
		t.Fatalf("retry after manual flag should no-op: %v", err)
	}
}
