package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCouponServiceTest(t *testing.T) (*CouponService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:coupon_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Coupon{}, &models.CouponUsage{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	couponRepo := repository.NewCouponRepository(db)
	usageRepo := repository.NewCouponUsageRepository(db)
	return NewCouponService(couponRepo, usageRepo), db
}

func createTestCoupon(t *testing.T, db *gorm.DB, coupon *models.Coupon) *models.Coupon {
	t.Helper()
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func TestCouponQuotePercentCappedByMaxDiscount(t *testing.T) {
	svc, db := setupCouponServiceTest(t)

	createTestCoupon(t, db, &models.Coupon{
		Code:        "SALE10",
		Type:        constants.CouponTypePercent,
		Value:       models.NewMoneyFromInt(10),
		MaxDiscount: models.NewMoneyFromInt(40000),
		IsActive:    true,
	})

	discount, coupon, err := svc.Quote("SALE10", 1, QuoteContext{
		CourseID:   7,
		OrderTotal: models.NewMoneyFromInt(500000),
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if coupon == nil || coupon.Code != "SALE10" {
		t.Fatalf("unexpected coupon: %+v", coupon)
	}
	// 10% 是 50000，上限压到 40000
	if !discount.Decimal.Equal(decimal.NewFromInt(40000)) {
		t.Fatalf("discount = %s, want 40000", discount.String())
	}
}

func TestCouponQuoteFixedCappedByOrderTotal(t *testing.T) {
	svc, db := setupCouponServiceTest(t)

	createTestCoupon(t, db, &models.Coupon{
		Code:     "BIGFIX",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromInt(900000),
		IsActive: true,
	})

	discount, _, err := svc.Quote("BIGFIX", 1, QuoteContext{
		OrderTotal: models.NewMoneyFromInt(450000),
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !discount.Decimal.Equal(decimal.NewFromInt(450000)) {
		t.Fatalf("discount = %s, want order total 450000", discount.String())
	}
}

func TestCouponQuoteValidationChain(t *testing.T) {
	svc, db := setupCouponServiceTest(t)

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)

	createTestCoupon(t, db, &models.Coupon{Code: "OFF", Type: constants.CouponTypeFixed, Value: models.NewMoneyFromInt(1000), IsActive: false})
	createTestCoupon(t, db, &models.Coupon{Code: "SOON", Type: constants.CouponTypeFixed, Value: models.NewMoneyFromInt(1000), IsActive: true, StartsAt: &future})
	createTestCoupon(t, db, &models.Coupon{Code: "GONE", Type: constants.CouponTypeFixed, Value: models.NewMoneyFromInt(1000), IsActive: true, EndsAt: &past})
	createTestCoupon(t, db, &models.Coupon{Code: "FULL", Type: constants.CouponTypeFixed, Value: models.NewMoneyFromInt(1000), IsActive: true, UsageLimit: 1, UsedCount: 1})
	createTestCoupon(t, db, &models.Coupon{Code: "MIN", Type: constants.CouponTypeFixed, Value: models.NewMoneyFromInt(1000), IsActive: true, MinOrderValue: models.NewMoneyFromInt(100000)})
	createTestCoupon(t, db, &models.Coupon{Code: "SCOPED", Type: constants.CouponTypeFixed, Value: models.NewMoneyFromInt(1000), IsActive: true, ScopeCourseIDs: models.UintArray{11}})

	cases := []struct {
		code    string
		wantErr error
	}{
		{"NOPE", ErrCouponNotFound},
		{"OFF", ErrCouponInactive},
		{"SOON", ErrCouponNotStarted},
		{"GONE", ErrCouponExpired},
		{"FULL", ErrCouponExhausted},
		{"MIN", ErrCouponMinOrder},
		{"SCOPED", ErrCouponScope},
		{"", ErrCouponInvalid},
	}
	for _, tc := range cases {
		_, _, err := svc.Quote(tc.code, 1, QuoteContext{
			CourseID:   7,
			OrderTotal: models.NewMoneyFromInt(50000),
		})
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("code %q: err = %v, want %v", tc.code, err, tc.wantErr)
		}
	}
}

func TestCouponQuoteScopeMatch(t *testing.T) {
	svc, db := setupCouponServiceTest(t)

	createTestCoupon(t, db, &models.Coupon{
		Code:             "COURSE7",
		Type:             constants.CouponTypeFixed,
		Value:            models.NewMoneyFromInt(5000),
		IsActive:         true,
		ScopeCourseIDs:   models.UintArray{7},
		ScopeCategoryIDs: models.UintArray{3},
	})

	if _, _, err := svc.Quote("COURSE7", 1, QuoteContext{CourseID: 7, OrderTotal: models.NewMoneyFromInt(50000)}); err != nil {
		t.Fatalf("course in scope should pass: %v", err)
	}
	if _, _, err := svc.Quote("COURSE7", 1, QuoteContext{CourseID: 8, CategoryID: 3, OrderTotal: models.NewMoneyFromInt(50000)}); err != nil {
		t.Fatalf("category in scope should pass: %v", err)
	}
	if _, _, err := svc.Quote("COURSE7", 1, QuoteContext{CourseID: 8, CategoryID: 4, OrderTotal: models.NewMoneyFromInt(50000)}); !errors.Is(err, ErrCouponScope) {
		t.Fatalf("out of scope err = %v, want ErrCouponScope", err)
	}
}

func TestCouponQuotePerUserLimit(t *testing.T) {
	svc, db := setupCouponServiceTest(t)

	coupon := createTestCoupon(t, db, &models.Coupon{
		Code:         "ONCE",
		Type:         constants.CouponTypeFixed,
		Value:        models.NewMoneyFromInt(1000),
		IsActive:     true,
		PerUserLimit: 1,
	})
	if err := db.Create(&models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         42,
		OrderID:        900,
		DiscountAmount: models.NewMoneyFromInt(1000),
		UsedAt:         time.Now(),
	}).Error; err != nil {
		t.Fatalf("create usage failed: %v", err)
	}

	if _, _, err := svc.Quote("ONCE", 42, QuoteContext{OrderTotal: models.NewMoneyFromInt(50000)}); !errors.Is(err, ErrCouponPerUserLimit) {
		t.Fatalf("err = %v, want ErrCouponPerUserLimit", err)
	}
	if _, _, err := svc.Quote("ONCE", 43, QuoteContext{OrderTotal: models.NewMoneyFromInt(50000)}); err != nil {
		t.Fatalf("other user should pass: %v", err)
	}
}

func TestCouponCommitGuardsUsageLimit(t *testing.T) {
	svc, db := setupCouponServiceTest(t)

	coupon := createTestCoupon(t, db, &models.Coupon{
		Code:       "LASTONE",
		Type:       constants.CouponTypeFixed,
		Value:      models.NewMoneyFromInt(1000),
		IsActive:   true,
		UsageLimit: 1,
	})

	if err := svc.Commit(db, coupon.ID, 1, 100, models.NewMoneyFromInt(1000)); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	err := svc.Commit(db, coupon.ID, 2, 101, models.NewMoneyFromInt(1000))
	if !errors.Is(err, ErrCouponExhausted) {
		t.Fatalf("second commit err = %v, want ErrCouponExhausted", err)
	}

	var usageCount int64
	db.Model(&models.CouponUsage{}).Where("coupon_id = ?", coupon.ID).Count(&usageCount)
	if usageCount != 1 {
		t.Fatalf("usage count = %d, want 1", usageCount)
	}
}

func TestCouponCommitGuardsPerUserLimitAcrossOrders(t *testing.T) {
	svc, db := setupCouponServiceTest(t)

	// 总量不限，只有每人上限兜底，两笔不同订单同一用户
	coupon := createTestCoupon(t, db, &models.Coupon{
		Code:         "PERUSER",
		Type:         constants.CouponTypeFixed,
		Value:        models.NewMoneyFromInt(1000),
		IsActive:     true,
		PerUserLimit: 1,
	})

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Commit(tx, coupon.ID, 42, 300, models.NewMoneyFromInt(1000))
	}); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	// 每人上限复核在持有券行锁之后执行，必须看到先提交事务的使用记录
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Commit(tx, coupon.ID, 42, 301, models.NewMoneyFromInt(1000))
	})
	if !errors.Is(err, ErrCouponExhausted) {
		t.Fatalf("second commit err = %v, want ErrCouponExhausted", err)
	}

	var usageCount int64
	db.Model(&models.CouponUsage{}).Where("coupon_id = ? AND user_id = ?", coupon.ID, 42).Count(&usageCount)
	if usageCount != 1 {
		t.Fatalf("usage count = %d, want 1", usageCount)
	}

	// 超限事务回滚后计数不能残留
	reloaded := &models.Coupon{}
	if err := db.First(reloaded, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if reloaded.UsedCount != 1 {
		t.Fatalf("used count = %d, want 1", reloaded.UsedCount)
	}

	// 换一个用户仍可正常使用
	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Commit(tx, coupon.ID, 43, 302, models.NewMoneyFromInt(1000))
	}); err != nil {
		t.Fatalf("other user commit failed: %v", err)
	}
}

func TestCouponReleaseRestoresUsage(t *testing.T) {
	svc, db := setupCouponServiceTest(t)

	coupon := createTestCoupon(t, db, &models.Coupon{
		Code:       "BACK",
		Type:       constants.CouponTypeFixed,
		Value:      models.NewMoneyFromInt(1000),
		IsActive:   true,
		UsageLimit: 1,
	})
	if err := svc.Commit(db, coupon.ID, 1, 200, models.NewMoneyFromInt(1000)); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if err := svc.Release(db, 200); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	reloaded := &models.Coupon{}
	if err := db.First(reloaded, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if reloaded.UsedCount != 0 {
		t.Fatalf("used count = %d, want 0", reloaded.UsedCount)
	}

	// 没有使用记录的订单释放为空操作
	if err := svc.Release(db, 999); err != nil {
		t.Fatalf("release without usage should be a no-op: %v", err)
	}
}
