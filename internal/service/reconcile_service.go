package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/logger"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/payment"
	"github.com/coursepay-next/internal/queue"
	"github.com/coursepay-next/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReconcileService 对账服务。
// 浏览器回调与服务端 webhook 只是两种传输通道，验签之后形状一致，
// 两条 HTTP 路径都只调用 Reconcile，业务语义只在这里出现一次。
type ReconcileService struct {
	orderRepo     repository.OrderRepository
	txnRepo       repository.PaymentTransactionRepository
	couponSvc     *CouponService
	enrollmentSvc *EnrollmentService
	registry      *payment.Registry
	queueClient   *queue.Client
}

// NewReconcileService 创建对账服务
func NewReconcileService(orderRepo repository.OrderRepository, txnRepo repository.PaymentTransactionRepository, couponSvc *CouponService, enrollmentSvc *EnrollmentService, registry *payment.Registry, queueClient *queue.Client) *ReconcileService {
	return &ReconcileService{
		orderRepo:     orderRepo,
		txnRepo:       txnRepo,
		couponSvc:     couponSvc,
		enrollmentSvc: enrollmentSvc,
		registry:      registry,
		queueClient:   queueClient,
	}
}

// ReconcileResult 对账处理结果
type ReconcileResult struct {
	Order     *models.Order
	Duplicate bool
}

func reconcileLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// Reconcile 处理一条网关支付通知。
// 幂等性依赖 (gateway, gateway_txn_id) 唯一约束上的插入结果判定，
// 不做先查后插，回调与 webhook 并发送达同一笔交易时也恰好生效一次。
func (s *ReconcileService) Reconcile(ctx context.Context, gateway string, rawParams map[string]string) (*ReconcileResult, error) {
	gateway = strings.ToLower(strings.TrimSpace(gateway))

	adapter, err := s.registry.Get(gateway)
	if err != nil {
		return nil, ErrGatewayUnavailable
	}

	notification, err := adapter.VerifyNotification(rawParams)
	if err != nil {
		// 验签失败是安全事件，不落任何状态
		reconcileLogger(
			"gateway", gateway,
			"param_count", len(rawParams),
			"error", err,
		).Warnw("reconcile_signature_rejected")
		return nil, ErrInvalidSignature
	}

	log := reconcileLogger(
		"gateway", gateway,
		"order_code", notification.OrderCode,
		"gateway_txn_id", notification.TransactionID,
		"amount", notification.Amount.String(),
		"result_code", notification.ResultCode,
		"success", notification.Success,
	)

	order, err := s.orderRepo.GetByCode(notification.OrderCode)
	if err != nil {
		log.Errorw("reconcile_order_fetch_failed", "error", err)
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		// 通知不创建订单
		log.Warnw("reconcile_order_not_found")
		return nil, ErrOrderNotFound
	}

	payloadHash := hashRawParams(rawParams)
	result := &ReconcileResult{}
	amountMismatch := false

	txErr := models.DB.Transaction(func(tx *gorm.DB) error {
		txnRepo := s.txnRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		inserted, err := txnRepo.CreateIgnoreDuplicate(&models.PaymentTransaction{
			OrderID:        order.ID,
			Gateway:        gateway,
			GatewayTxnID:   notification.TransactionID,
			Amount:         notification.Amount,
			ResultCode:     notification.ResultCode,
			RawPayloadHash: payloadHash,
			ReceivedAt:     time.Now(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			// 同一笔网关交易的重复投递，返回已记录的结果，零副作用
			result.Duplicate = true
			return nil
		}

		locked, err := orderRepo.GetByCodeForUpdate(notification.OrderCode)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		order = locked

		if isOrderTerminal(order.Status) {
			// 已离开 pending 的订单收到另一流水号的迟到通知，按幂等空操作处理
			result.Duplicate = true
			return nil
		}

		if !notification.Amount.Decimal.Equal(order.FinalPrice.Decimal) {
			// 金额不一致强制失败，失败状态和流水记录要随事务一起提交
			amountMismatch = true
			return s.markFailed(orderRepo, order, true)
		}

		if !notification.Success {
			return s.markFailed(orderRepo, order, false)
		}

		return s.markPaid(tx, orderRepo, order)
	})

	if txErr != nil {
		if errors.Is(txErr, ErrCouponExhausted) {
			// 优惠券在提交时被并发用完：支付可能已在网关侧完成，
			// 订单转 FAILED 并打人工复核标记，不能静默吞掉这笔钱
			if err := s.failAfterCouponExhausted(order); err != nil {
				log.Errorw("reconcile_coupon_exhausted_mark_failed", "error", err)
				return nil, err
			}
			s.enqueueManualReviewAlert(order, "coupon_exhausted_at_commit", log)
			log.Warnw("reconcile_coupon_exhausted_order_failed", "order_id", order.ID)
			result.Order = order
			return result, ErrCouponExhausted
		}
		log.Errorw("reconcile_transaction_failed", "error", txErr)
		return nil, txErr
	}

	result.Order = order
	if amountMismatch {
		s.enqueueManualReviewAlert(order, "notification_amount_mismatch", log)
		log.Warnw("reconcile_amount_mismatch",
			"order_id", order.ID,
			"order_amount", order.FinalPrice.String(),
		)
		return result, ErrAmountMismatch
	}
	if result.Duplicate {
		log.Infow("reconcile_duplicate_ignored", "order_id", order.ID, "order_status", order.Status)
	} else {
		log.Infow("reconcile_processed", "order_id", order.ID, "order_status", order.Status)
	}
	return result, nil
}

// markPaid 在事务内推进订单到 paid，并同步提交优惠券使用与课程开通。
// 四个写操作同生共死，优惠券上限竞争失败时整体回滚。
func (s *ReconcileService) markPaid(tx *gorm.DB, orderRepo *repository.GormOrderRepository, order *models.Order) error {
	now := time.Now()
	ok, err := orderRepo.UpdateStatusIf(order.ID,
		[]string{constants.OrderStatusPending},
		constants.OrderStatusPaid,
		map[string]interface{}{"paid_at": now, "updated_at": now},
	)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderStatusInvalid
	}

	if order.CouponID != nil {
		if err := s.couponSvc.Commit(tx, *order.CouponID, order.UserID, order.ID, order.DiscountAmount); err != nil {
			return err
		}
	}

	if _, err := s.enrollmentSvc.Provision(tx, order.UserID, order.CourseID); err != nil {
		return err
	}

	order.Status = constants.OrderStatusPaid
	order.PaidAt = &now
	order.UpdatedAt = now
	return nil
}

func (s *ReconcileService) markFailed(orderRepo *repository.GormOrderRepository, order *models.Order, amountMismatch bool) error {
	now := time.Now()
	updates := map[string]interface{}{"updated_at": now}
	if amountMismatch {
		updates["manual_review"] = true
	}
	ok, err := orderRepo.UpdateStatusIf(order.ID,
		[]string{constants.OrderStatusPending},
		constants.OrderStatusFailed,
		updates,
	)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderStatusInvalid
	}
	order.Status = constants.OrderStatusFailed
	order.ManualReview = order.ManualReview || amountMismatch
	order.UpdatedAt = now
	return nil
}

// failAfterCouponExhausted 支付事务回滚后补记失败状态与复核标记
func (s *ReconcileService) failAfterCouponExhausted(order *models.Order) error {
	now := time.Now()
	ok, err := s.orderRepo.UpdateStatusIf(order.ID,
		[]string{constants.OrderStatusPending},
		constants.OrderStatusFailed,
		map[string]interface{}{"manual_review": true, "updated_at": now},
	)
	if err != nil {
		return ErrOrderUpdateFailed
	}
	if ok {
		order.Status = constants.OrderStatusFailed
		order.ManualReview = true
		order.UpdatedAt = now
	}
	return nil
}

func (s *ReconcileService) enqueueManualReviewAlert(order *models.Order, reason string, log *zap.SugaredLogger) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueManualReviewAlert(queue.ManualReviewAlertPayload{
		Kind:    "order",
		OrderID: order.ID,
		Reason:  reason,
	}); err != nil {
		log.Warnw("reconcile_enqueue_alert_failed", "order_id", order.ID, "error", err)
	}
}

// hashRawParams 对原始通知参数做摘要，供审计排查，不参与验签
func hashRawParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
		b.WriteString("&")
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
