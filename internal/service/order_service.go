package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/logger"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/payment"
	"github.com/coursepay-next/internal/queue"
	"github.com/coursepay-next/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo      repository.OrderRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	couponSvc      *CouponService
	registry       *payment.Registry
	queueClient    *queue.Client
	expireMinutes  int
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, courseRepo repository.CourseRepository, enrollmentRepo repository.EnrollmentRepository, couponSvc *CouponService, registry *payment.Registry, queueClient *queue.Client, expireMinutes int) *OrderService {
	if expireMinutes <= 0 {
		expireMinutes = 15
	}
	return &OrderService{
		orderRepo:      orderRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		couponSvc:      couponSvc,
		registry:       registry,
		queueClient:    queueClient,
		expireMinutes:  expireMinutes,
	}
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	UserID     uint
	CourseID   uint
	Gateway    string
	CouponCode string
	ClientIP   string
	Locale     string
	Context    context.Context
}

// CreateOrderResult 创建订单结果
type CreateOrderResult struct {
	Order      *models.Order
	PaymentURL string
}

func orderLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// Create 创建待支付订单并返回网关收银台跳转链接。
// 免费课程不走订单，直接使用 EnrollmentService.EnrollFree。
func (s *OrderService) Create(input CreateOrderInput) (*CreateOrderResult, error) {
	if input.UserID == 0 || input.CourseID == 0 {
		return nil, ErrOrderCreateFailed
	}
	gateway := strings.ToLower(strings.TrimSpace(input.Gateway))

	log := orderLogger(
		"user_id", input.UserID,
		"course_id", input.CourseID,
		"gateway", gateway,
		"coupon_code", strings.TrimSpace(input.CouponCode),
	)

	adapter, err := s.registry.Get(gateway)
	if err != nil {
		return nil, ErrGatewayUnavailable
	}

	course, err := s.courseRepo.GetByID(input.CourseID)
	if err != nil {
		log.Errorw("order_create_course_fetch_failed", "error", err)
		return nil, ErrOrderCreateFailed
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	if !course.Published {
		return nil, ErrCourseUnavailable
	}
	if course.IsFree || course.Price.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrCourseUnavailable
	}

	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(input.UserID, input.CourseID)
	if err != nil {
		log.Errorw("order_create_enrollment_check_failed", "error", err)
		return nil, ErrOrderCreateFailed
	}
	if enrollment != nil && enrollment.Status == constants.EnrollmentStatusActive {
		return nil, ErrAlreadyEnrolled
	}

	// 同一用户同一课程已有待支付订单时不再重复下单，重建跳转链接即可
	if pending, err := s.orderRepo.GetPendingByUserAndCourse(input.UserID, input.CourseID); err != nil {
		log.Errorw("order_create_pending_check_failed", "error", err)
		return nil, ErrOrderCreateFailed
	} else if pending != nil && pending.Gateway == gateway {
		payURL, err := s.buildPaymentURL(input.Context, adapter, pending, course, input)
		if err != nil {
			return nil, err
		}
		log.Infow("order_create_reused_pending", "order_id", pending.ID, "order_code", pending.OrderCode)
		return &CreateOrderResult{Order: pending, PaymentURL: payURL}, nil
	}

	basePrice := course.Price
	discount := models.Money{}
	var couponID *uint
	if strings.TrimSpace(input.CouponCode) != "" {
		quoted, coupon, err := s.couponSvc.Quote(input.CouponCode, input.UserID, QuoteContext{
			CourseID:   course.ID,
			CategoryID: course.CategoryID,
			OrderTotal: basePrice,
		})
		if err != nil {
			return nil, err
		}
		discount = quoted
		couponID = &coupon.ID
	}

	final := basePrice.Decimal.Sub(discount.Decimal)
	if final.LessThan(decimal.Zero) {
		final = decimal.Zero
	}
	if final.GreaterThan(basePrice.Decimal) {
		final = basePrice.Decimal
	}

	now := time.Now()
	order := &models.Order{
		OrderCode:      generateOrderCode(),
		UserID:         input.UserID,
		CourseID:       course.ID,
		BasePrice:      basePrice,
		DiscountAmount: discount,
		FinalPrice:     models.NewMoneyFromDecimal(final),
		Gateway:        gateway,
		Status:         constants.OrderStatusPending,
		CouponID:       couponID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.orderRepo.Create(order); err != nil {
		log.Errorw("order_create_persist_failed", "error", err)
		return nil, ErrOrderCreateFailed
	}

	s.enqueueTimeoutCancel(order, log)

	payURL, err := s.buildPaymentURL(input.Context, adapter, order, course, input)
	if err != nil {
		// 订单保留在 pending，客户端可重新发起支付或等待超时取消
		log.Warnw("order_create_payment_url_failed", "order_id", order.ID, "order_code", order.OrderCode, "error", err)
		return nil, err
	}

	log.Infow("order_created",
		"order_id", order.ID,
		"order_code", order.OrderCode,
		"base_price", order.BasePrice.String(),
		"discount_amount", order.DiscountAmount.String(),
		"final_price", order.FinalPrice.String(),
	)
	return &CreateOrderResult{Order: order, PaymentURL: payURL}, nil
}

func (s *OrderService) buildPaymentURL(ctx context.Context, adapter payment.Adapter, order *models.Order, course *models.Course, input CreateOrderInput) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	payURL, err := adapter.BuildPaymentURL(ctx, payment.PaymentURLInput{
		OrderCode: order.OrderCode,
		Amount:    order.FinalPrice,
		OrderInfo: fmt.Sprintf("course %s", course.Slug),
		ClientIP:  input.ClientIP,
		Locale:    input.Locale,
	})
	if err != nil {
		return "", ErrGatewayUnavailable
	}
	return payURL, nil
}

func (s *OrderService) enqueueTimeoutCancel(order *models.Order, log *zap.SugaredLogger) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	delay := time.Duration(s.expireMinutes) * time.Minute
	if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, delay); err != nil {
		log.Warnw("order_enqueue_timeout_cancel_failed", "order_id", order.ID, "error", err)
	}
}

// Cancel 取消待支付订单，owner-or-admin 策略
func (s *OrderService) Cancel(orderID, actorID uint, isAdmin bool) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !isAdmin && order.UserID != actorID {
		return nil, ErrOrderAccessDenied
	}
	if !isOrderTransitionAllowed(order.Status, constants.OrderStatusCancelled) {
		return nil, ErrOrderNotCancellable
	}

	now := time.Now()
	ok, err := s.orderRepo.UpdateStatusIf(order.ID,
		[]string{constants.OrderStatusPending},
		constants.OrderStatusCancelled,
		map[string]interface{}{"canceled_at": now, "updated_at": now},
	)
	if err != nil {
		return nil, ErrOrderUpdateFailed
	}
	if !ok {
		return nil, ErrOrderNotCancellable
	}
	order.Status = constants.OrderStatusCancelled
	order.CanceledAt = &now
	order.UpdatedAt = now
	orderLogger("order_id", order.ID, "order_code", order.OrderCode, "actor_id", actorID).Infow("order_cancelled")
	return order, nil
}

// CancelExpired 待支付订单超时取消，由延迟任务触发。
// 订单已离开 pending 时静默跳过。
func (s *OrderService) CancelExpired(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return ErrOrderFetchFailed
	}
	if order == nil {
		return nil
	}
	if order.Status != constants.OrderStatusPending {
		return nil
	}
	deadline := order.CreatedAt.Add(time.Duration(s.expireMinutes) * time.Minute)
	if time.Now().Before(deadline) {
		return nil
	}

	now := time.Now()
	ok, err := s.orderRepo.UpdateStatusIf(order.ID,
		[]string{constants.OrderStatusPending},
		constants.OrderStatusCancelled,
		map[string]interface{}{"canceled_at": now, "updated_at": now},
	)
	if err != nil {
		return ErrOrderUpdateFailed
	}
	if ok {
		orderLogger("order_id", order.ID, "order_code", order.OrderCode).Infow("order_timeout_cancelled")
	}
	return nil
}

// SweepExpired 批量兜底取消过期订单，补偿延迟任务丢失的情况
func (s *OrderService) SweepExpired(limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	before := time.Now().Add(-time.Duration(s.expireMinutes) * time.Minute)
	expired, err := s.orderRepo.ListExpiredPending(before, limit)
	if err != nil {
		return 0, ErrOrderFetchFailed
	}
	cancelled := 0
	now := time.Now()
	for _, order := range expired {
		ok, err := s.orderRepo.UpdateStatusIf(order.ID,
			[]string{constants.OrderStatusPending},
			constants.OrderStatusCancelled,
			map[string]interface{}{"canceled_at": now, "updated_at": now},
		)
		if err != nil {
			return cancelled, ErrOrderUpdateFailed
		}
		if ok {
			cancelled++
		}
	}
	if cancelled > 0 {
		orderLogger("cancelled_count", cancelled).Infow("order_expired_sweep_done")
	}
	return cancelled, nil
}

// GetForUser 用户订单详情，校验归属
func (s *OrderService) GetForUser(orderID, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetByCode 按订单编号查询详情
func (s *OrderService) GetByCode(orderCode string, userID uint, isAdmin bool) (*models.Order, error) {
	order, err := s.orderRepo.GetByCode(strings.TrimSpace(orderCode))
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

// GetForAdmin 管理端订单详情
func (s *OrderService) GetForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListByUser 用户订单列表
func (s *OrderService) ListByUser(userID uint, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	filter.UserID = userID
	return s.orderRepo.ListByUser(filter)
}

// ListAdmin 管理端订单列表
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

func generateOrderCode() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("CP%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}

// IsNotFound 判断是否为"资源不存在"类错误，供处理层做 404 映射
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrCouponNotFound) ||
		errors.Is(err, ErrRefundNotFound)
}
