package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coursepay-next/internal/config"
	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/logger"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/payment"
	"github.com/coursepay-next/internal/queue"
	"github.com/coursepay-next/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RefundService 退款流程服务
type RefundService struct {
	refundRepo    repository.RefundRequestRepository
	orderRepo     repository.OrderRepository
	txnRepo       repository.PaymentTransactionRepository
	couponSvc     *CouponService
	enrollmentSvc *EnrollmentService
	registry      *payment.Registry
	queueClient   *queue.Client
	cfg           config.RefundConfig
}

// NewRefundService 创建退款服务
func NewRefundService(refundRepo repository.RefundRequestRepository, orderRepo repository.OrderRepository, txnRepo repository.PaymentTransactionRepository, couponSvc *CouponService, enrollmentSvc *EnrollmentService, registry *payment.Registry, queueClient *queue.Client, cfg config.RefundConfig) *RefundService {
	if cfg.ProgressThresholdPercent <= 0 {
		cfg.ProgressThresholdPercent = 30
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBackoffSeconds <= 0 {
		cfg.RetryBackoffSeconds = 60
	}
	return &RefundService{
		refundRepo:    refundRepo,
		orderRepo:     orderRepo,
		txnRepo:       txnRepo,
		couponSvc:     couponSvc,
		enrollmentSvc: enrollmentSvc,
		registry:      registry,
		queueClient:   queueClient,
		cfg:           cfg,
	}
}

func refundLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// Request 学员发起退款申请。
// 申请时刻的学习进度会被固化到 progress_at_request，
// 后续进度变化不影响已提交申请的裁定依据。
func (s *RefundService) Request(studentID, orderID uint, reason string) (*models.RefundRequest, error) {
	if studentID == 0 || orderID == 0 {
		return nil, ErrRefundNotEligible
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != studentID {
		return nil, ErrOrderAccessDenied
	}
	if order.Status != constants.OrderStatusPaid && order.Status != constants.OrderStatusPartiallyRefunded {
		return nil, ErrRefundNotEligible
	}

	progress := 0
	enrollment, err := s.enrollmentSvc.GetByUserAndCourse(studentID, order.CourseID)
	if err != nil {
		return nil, err
	}
	if enrollment != nil {
		progress = enrollment.ProgressPercent
	}
	if progress > s.cfg.ProgressThresholdPercent {
		return nil, ErrEligibilityWindowExceeded
	}

	pending, err := s.refundRepo.GetPendingByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrRefundAlreadyRequested
	}

	now := time.Now()
	request := &models.RefundRequest{
		OrderID:           orderID,
		StudentID:         studentID,
		Reason:            strings.TrimSpace(reason),
		Status:            constants.RefundStatusPending,
		ProgressAtRequest: progress,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.refundRepo.Create(request); err != nil {
		return nil, err
	}
	refundLogger(
		"refund_request_id", request.ID,
		"order_id", orderID,
		"student_id", studentID,
		"progress_at_request", progress,
	).Infow("refund_requested")
	return request, nil
}

// ProcessInput 管理员退款决策输入
type ProcessInput struct {
	AdminID   uint
	RequestID uint
	Decision  string
	Amount    *models.Money
	Context   context.Context
}

// Process 管理员处理退款申请。
// 批准后立即发起网关退款：成功则落终态，网关故障保持 pending 并
// 进入重试队列，绝不因为瞬时故障把申请标成 rejected。
func (s *RefundService) Process(input ProcessInput) (*models.RefundRequest, error) {
	request, err := s.refundRepo.GetByID(input.RequestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrRefundNotFound
	}
	if request.Status != constants.RefundStatusPending {
		return nil, ErrRefundAlreadyProcessed
	}

	log := refundLogger(
		"refund_request_id", request.ID,
		"order_id", request.OrderID,
		"admin_id", input.AdminID,
		"decision", input.Decision,
	)

	switch strings.ToLower(strings.TrimSpace(input.Decision)) {
	case constants.RefundDecisionReject:
		now := time.Now()
		request.Status = constants.RefundStatusRejected
		request.ProcessedBy = &input.AdminID
		request.ProcessedAt = &now
		request.UpdatedAt = now
		if err := s.refundRepo.Update(request); err != nil {
			return nil, err
		}
		log.Infow("refund_rejected")
		return request, nil
	case constants.RefundDecisionApprove:
		return s.approve(input.Context, request, input.AdminID, input.Amount, log)
	default:
		return nil, ErrRefundDecisionInvalid
	}
}

func (s *RefundService) approve(ctx context.Context, request *models.RefundRequest, adminID uint, amount *models.Money, log *zap.SugaredLogger) (*models.RefundRequest, error) {
	order, err := s.orderRepo.GetByID(request.OrderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPaid && order.Status != constants.OrderStatusPartiallyRefunded {
		return nil, ErrRefundNotEligible
	}

	remaining := order.FinalPrice.Decimal.Sub(order.RefundedAmount.Decimal)
	refundAmount := remaining
	if amount != nil {
		refundAmount = amount.Decimal
	}
	if refundAmount.LessThanOrEqual(decimal.Zero) || refundAmount.GreaterThan(remaining) {
		return nil, ErrRefundAmountInvalid
	}

	// 先固化批准金额与处理人，网关失败后的重试读取这里的金额
	request.Amount = models.NewMoneyFromDecimal(refundAmount)
	request.ProcessedBy = &adminID
	request.UpdatedAt = time.Now()
	if err := s.refundRepo.Update(request); err != nil {
		return nil, err
	}

	return s.issueAndFinalize(ctx, request, order, log)
}

// issueAndFinalize 发起网关退款并在成功后落账
func (s *RefundService) issueAndFinalize(ctx context.Context, request *models.RefundRequest, order *models.Order, log *zap.SugaredLogger) (*models.RefundRequest, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	adapter, err := s.registry.Get(order.Gateway)
	if err != nil {
		return nil, ErrGatewayUnavailable
	}

	gatewayTxnID, err := s.lookupGatewayTxn(order)
	if err != nil {
		return nil, err
	}

	result, err := adapter.IssueRefund(ctx, payment.RefundInput{
		RequestID:    fmt.Sprintf("RF%d-%d", request.ID, request.RetryCount),
		OrderCode:    order.OrderCode,
		GatewayTxnID: gatewayTxnID,
		Amount:       request.Amount,
		Reason:       request.Reason,
	})
	if err != nil {
		if errors.Is(err, payment.ErrRefundFailed) {
			// 网关明确拒绝：保持 pending 交由管理员裁定，不自动驳回
			log.Warnw("refund_gateway_rejected", "error", err)
			return request, ErrRefundRejected
		}
		// 瞬时故障（网络、超时、响应异常）进入重试
		log.Warnw("refund_gateway_unavailable", "retry_count", request.RetryCount, "error", err)
		if err := s.scheduleRetry(request, log); err != nil {
			return nil, err
		}
		return request, ErrGatewayUnavailable
	}

	if err := s.finalize(request, order, result.RefundTxnID); err != nil {
		return nil, err
	}
	log.Infow("refund_issued",
		"gateway_refund_id", result.RefundTxnID,
		"amount", request.Amount.String(),
		"order_status", order.Status,
	)
	return request, nil
}

// finalize 网关退款成功后的落账：订单金额与状态、报名撤销、优惠券回补、申请终态。
func (s *RefundService) finalize(request *models.RefundRequest, order *models.Order, gatewayRefundID string) error {
	now := time.Now()
	newRefunded := order.RefundedAmount.Decimal.Add(request.Amount.Decimal)
	fullRefund := newRefunded.GreaterThanOrEqual(order.FinalPrice.Decimal)
	targetStatus := constants.OrderStatusPartiallyRefunded
	if fullRefund {
		targetStatus = constants.OrderStatusRefunded
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		refundRepo := s.refundRepo.WithTx(tx)

		ok, err := orderRepo.UpdateStatusIf(order.ID,
			[]string{constants.OrderStatusPaid, constants.OrderStatusPartiallyRefunded},
			targetStatus,
			map[string]interface{}{
				"refunded_amount": models.NewMoneyFromDecimal(newRefunded),
				"updated_at":      now,
			},
		)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStatusInvalid
		}

		if fullRefund {
			if err := s.enrollmentSvc.Revoke(tx, order.UserID, order.CourseID); err != nil {
				return err
			}
			if err := s.couponSvc.Release(tx, order.ID); err != nil {
				return err
			}
		}

		request.Status = constants.RefundStatusApproved
		request.GatewayRefundID = gatewayRefundID
		request.ProcessedAt = &now
		request.UpdatedAt = now
		return refundRepo.Update(request)
	})
	if err != nil {
		return err
	}

	order.Status = targetStatus
	order.RefundedAmount = models.NewMoneyFromDecimal(newRefunded)
	order.UpdatedAt = now
	return nil
}

// scheduleRetry 记录一次失败并安排下一次网关重试，线性退避
func (s *RefundService) scheduleRetry(request *models.RefundRequest, log *zap.SugaredLogger) error {
	if err := s.refundRepo.IncrementRetryCount(request.ID); err != nil {
		return err
	}
	request.RetryCount++

	if request.RetryCount >= s.cfg.MaxRetries {
		return s.flagManualReview(request, log)
	}

	if s.queueClient == nil || !s.queueClient.Enabled() {
		log.Warnw("refund_retry_queue_unavailable", "retry_count", request.RetryCount)
		return nil
	}
	delay := time.Duration(s.cfg.RetryBackoffSeconds*request.RetryCount) * time.Second
	if err := s.queueClient.EnqueueRefundRetry(queue.RefundRetryPayload{
		RefundRequestID: request.ID,
		Attempt:         request.RetryCount,
	}, delay); err != nil {
		log.Errorw("refund_enqueue_retry_failed", "error", err)
		return err
	}
	return nil
}

// flagManualReview 重试耗尽后转人工处理
func (s *RefundService) flagManualReview(request *models.RefundRequest, log *zap.SugaredLogger) error {
	request.ManualReview = true
	request.UpdatedAt = time.Now()
	if err := s.refundRepo.Update(request); err != nil {
		return err
	}
	if s.queueClient != nil && s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueManualReviewAlert(queue.ManualReviewAlertPayload{
			Kind:    "refund",
			OrderID: request.OrderID,
			RefID:   request.ID,
			Reason:  "refund_retry_exhausted",
		}); err != nil {
			log.Warnw("refund_enqueue_alert_failed", "error", err)
		}
	}
	log.Warnw("refund_manual_review_flagged", "retry_count", request.RetryCount)
	return nil
}

// RetryIssue 重试网关退款，由异步任务触发。
// 申请已被终态处理或尚未批准金额时为空操作。
func (s *RefundService) RetryIssue(ctx context.Context, requestID uint) error {
	request, err := s.refundRepo.GetByID(requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return nil
	}
	if request.Status != constants.RefundStatusPending || request.ManualReview {
		return nil
	}
	if request.Amount.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	order, err := s.orderRepo.GetByID(request.OrderID)
	if err != nil {
		return ErrOrderFetchFailed
	}
	if order == nil {
		return ErrOrderNotFound
	}

	log := refundLogger(
		"refund_request_id", request.ID,
		"order_id", order.ID,
		"retry_count", request.RetryCount,
	)
	_, err = s.issueAndFinalize(ctx, request, order, log)
	if errors.Is(err, ErrGatewayUnavailable) || errors.Is(err, ErrRefundRejected) {
		// 已安排下一次重试或等待人工裁定，任务本身视为完成
		return nil
	}
	return err
}

// lookupGatewayTxn 找到订单在所属网关的成功收款流水号，
// 优先取结果码为成功的那条，避免把失败尝试的流水号递给退款接口
func (s *RefundService) lookupGatewayTxn(order *models.Order) (string, error) {
	txns, err := s.txnRepo.ListByOrderID(order.ID)
	if err != nil {
		return "", err
	}
	successCode := ""
	switch order.Gateway {
	case constants.GatewayVNPay:
		successCode = constants.VNPayResultSuccess
	case constants.GatewayMoMo:
		successCode = constants.MoMoResultSuccess
	}
	fallback := ""
	for _, txn := range txns {
		if txn.Gateway != order.Gateway {
			continue
		}
		if txn.ResultCode == successCode {
			return txn.GatewayTxnID, nil
		}
		if fallback == "" {
			fallback = txn.GatewayTxnID
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", ErrRefundNotEligible
}

// GetForStudent 学员查看自己的退款申请
func (s *RefundService) GetForStudent(requestID, studentID uint) (*models.RefundRequest, error) {
	request, err := s.refundRepo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if request == nil || request.StudentID != studentID {
		return nil, ErrRefundNotFound
	}
	return request, nil
}

// ListByStudent 学员退款申请列表
func (s *RefundService) ListByStudent(studentID uint, filter repository.RefundRequestListFilter) ([]models.RefundRequest, int64, error) {
	filter.StudentID = studentID
	return s.refundRepo.List(filter)
}

// ListAdmin 管理端退款申请队列
func (s *RefundService) ListAdmin(filter repository.RefundRequestListFilter) ([]models.RefundRequest, int64, error) {
	return s.refundRepo.List(filter)
}

// GetForAdmin 管理端退款申请详情
func (s *RefundService) GetForAdmin(requestID uint) (*models.RefundRequest, error) {
	request, err := s.refundRepo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrRefundNotFound
	}
	return request, nil
}
