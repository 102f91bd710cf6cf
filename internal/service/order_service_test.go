package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/payment"
	"github.com/coursepay-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Order{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Enrollment{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	orderRepo := repository.NewOrderRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	couponSvc := NewCouponService(repository.NewCouponRepository(db), repository.NewCouponUsageRepository(db))

	registry := payment.NewRegistry()
	registry.Register(&fakeGateway{name: constants.GatewayVNPay})

	return NewOrderService(orderRepo, courseRepo, enrollmentRepo, couponSvc, registry, nil, 15), db
}

func createTestCourse(t *testing.T, db *gorm.DB, id uint, price int64, free, published bool) *models.Course {
	t.Helper()
	course := &models.Course{
		ID:           id,
		Slug:         fmt.Sprintf("course-%d", id),
		Title:        fmt.Sprintf("Course %d", id),
		InstructorID: 100,
		Price:        models.NewMoneyFromInt(price),
		IsFree:       free,
		Published:    published,
	}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("create course failed: %v", err)
	}
	return course
}

func TestOrderCreateWithCoupon(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	course := createTestCourse(t, db, 7, 500000, false, true)
	createTestCoupon(t, db, &models.Coupon{
		Code:        "SALE10",
		Type:        constants.CouponTypePercent,
		Value:       models.NewMoneyFromInt(10),
		MaxDiscount: models.NewMoneyFromInt(40000),
		IsActive:    true,
	})

	result, err := svc.Create(CreateOrderInput{
		UserID:     1,
		CourseID:   course.ID,
		Gateway:    constants.GatewayVNPay,
		CouponCode: "SALE10",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	order := result.Order
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if !order.DiscountAmount.Decimal.Equal(decimal.NewFromInt(40000)) {
		t.Fatalf("discount = %s, want 40000", order.DiscountAmount.String())
	}
	if !order.FinalPrice.Decimal.Equal(decimal.NewFromInt(460000)) {
		t.Fatalf("final price = %s, want 460000", order.FinalPrice.String())
	}
	if order.CouponID == nil {
		t.Fatalf("coupon id should be recorded")
	}
	if !strings.HasPrefix(order.OrderCode, "CP") {
		t.Fatalf("order code %q missing prefix", order.OrderCode)
	}
	if !strings.Contains(result.PaymentURL, order.OrderCode) {
		t.Fatalf("payment url %q should reference order code", result.PaymentURL)
	}

	// 下单阶段只报价不消耗
	var usageCount int64
	db.Model(&models.CouponUsage{}).Count(&usageCount)
	if usageCount != 0 {
		t.Fatalf("usage recorded at creation time: %d", usageCount)
	}
}

func TestOrderCreateRejectsFreeAndUnpublished(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	free := createTestCourse(t, db, 10, 0, true, true)
	hidden := createTestCourse(t, db, 11, 100000, false, false)

	if _, err := svc.Create(CreateOrderInput{UserID: 1, CourseID: free.ID, Gateway: constants.GatewayVNPay}); !errors.Is(err, ErrCourseUnavailable) {
		t.Fatalf("free course err = %v, want ErrCourseUnavailable", err)
	}
	if _, err := svc.Create(CreateOrderInput{UserID: 1, CourseID: hidden.ID, Gateway: constants.GatewayVNPay}); !errors.Is(err, ErrCourseUnavailable) {
		t.Fatalf("unpublished course err = %v, want ErrCourseUnavailable", err)
	}
	if _, err := svc.Create(CreateOrderInput{UserID: 1, CourseID: 999, Gateway: constants.GatewayVNPay}); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("missing course err = %v, want ErrCourseNotFound", err)
	}
}

func TestOrderCreateRejectsActiveEnrollment(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	course := createTestCourse(t, db, 12, 100000, false, true)
	if err := db.Create(&models.Enrollment{
		UserID:     1,
		CourseID:   course.ID,
		Status:     constants.EnrollmentStatusActive,
		EnrolledAt: time.Now(),
	}).Error; err != nil {
		t.Fatalf("create enrollment failed: %v", err)
	}

	if _, err := svc.Create(CreateOrderInput{UserID: 1, CourseID: course.ID, Gateway: constants.GatewayVNPay}); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("err = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestOrderCreateReusesPendingOrder(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	course := createTestCourse(t, db, 13, 100000, false, true)

	first, err := svc.Create(CreateOrderInput{UserID: 1, CourseID: course.ID, Gateway: constants.GatewayVNPay})
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.Create(CreateOrderInput{UserID: 1, CourseID: course.ID, Gateway: constants.GatewayVNPay})
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if first.Order.ID != second.Order.ID {
		t.Fatalf("pending order should be reused, got %d and %d", first.Order.ID, second.Order.ID)
	}

	var orderCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	if orderCount != 1 {
		t.Fatalf("order count = %d, want 1", orderCount)
	}
}

func TestOrderCreateUnknownGateway(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	course := createTestCourse(t, db, 14, 100000, false, true)

	if _, err := svc.Create(CreateOrderInput{UserID: 1, CourseID: course.ID, Gateway: "cashapp"}); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
}

func TestOrderCancelOnlyPending(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	course := createTestCourse(t, db, 15, 100000, false, true)

	result, err := svc.Create(CreateOrderInput{UserID: 1, CourseID: course.ID, Gateway: constants.GatewayVNPay})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// 非拥有者拒绝
	if _, err := svc.Cancel(result.Order.ID, 2, false); !errors.Is(err, ErrOrderAccessDenied) {
		t.Fatalf("foreign cancel err = %v, want ErrOrderAccessDenied", err)
	}

	cancelled, err := svc.Cancel(result.Order.ID, 1, false)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.OrderStatusCancelled || cancelled.CanceledAt == nil {
		t.Fatalf("cancel state wrong: %+v", cancelled)
	}

	// 已取消订单再取消属于非法流转
	if _, err := svc.Cancel(result.Order.ID, 1, false); !errors.Is(err, ErrOrderNotCancellable) {
		t.Fatalf("double cancel err = %v, want ErrOrderNotCancellable", err)
	}

	// 已支付订单不可取消
	paid := createPendingOrder(t, db, "CP-PAID", 1, 99, 100000, nil, 0)
	db.Model(&models.Order{}).Where("id = ?", paid.ID).Update("status", constants.OrderStatusPaid)
	if _, err := svc.Cancel(paid.ID, 1, false); !errors.Is(err, ErrOrderNotCancellable) {
		t.Fatalf("paid cancel err = %v, want ErrOrderNotCancellable", err)
	}
}

func TestOrderCancelExpiredHonorsDeadline(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	course := createTestCourse(t, db, 16, 100000, false, true)

	result, err := svc.Create(CreateOrderInput{UserID: 1, CourseID: course.ID, Gateway: constants.GatewayVNPay})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// 未到期：跳过
	if err := svc.CancelExpired(result.Order.ID); err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	fresh := &models.Order{}
	db.First(fresh, result.Order.ID)
	if fresh.Status != constants.OrderStatusPending {
		t.Fatalf("fresh order should stay pending, got %s", fresh.Status)
	}

	// 回拨创建时间后到期取消
	db.Model(&models.Order{}).Where("id = ?", result.Order.ID).
		Update("created_at", time.Now().Add(-time.Hour))
	if err := svc.CancelExpired(result.Order.ID); err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	expired := &models.Order{}
	db.First(expired, result.Order.ID)
	if expired.Status != constants.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", expired.Status)
	}
}

func TestOrderSweepExpired(t *testing.T) {
	svc, db := setupOrderServiceTest(t)

	stale := createPendingOrder(t, db, "CP-STALE", 1, 50, 100000, nil, 0)
	db.Model(&models.Order{}).Where("id = ?", stale.ID).
		Update("created_at", time.Now().Add(-time.Hour))
	createPendingOrder(t, db, "CP-FRESH", 1, 51, 100000, nil, 0)

	cancelled, err := svc.SweepExpired(10)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("cancelled = %d, want 1", cancelled)
	}
}

func TestOrderGetByCodeOwnership(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order := createPendingOrder(t, db, "CP-OWN", 7, 60, 100000, nil, 0)

	if _, err := svc.GetByCode(order.OrderCode, 7, false); err != nil {
		t.Fatalf("owner fetch failed: %v", err)
	}
	if _, err := svc.GetByCode(order.OrderCode, 8, false); !errors.Is(err, ErrOrderAccessDenied) {
		t.Fatalf("foreign fetch err = %v, want ErrOrderAccessDenied", err)
	}
	if _, err := svc.GetByCode(order.OrderCode, 8, true); err != nil {
		t.Fatalf("admin fetch failed: %v", err)
	}
	if _, err := svc.GetByCode("CP-NOPE", 7, false); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("missing fetch err = %v, want ErrOrderNotFound", err)
	}
}
