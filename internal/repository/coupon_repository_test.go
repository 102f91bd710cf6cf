package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCouponRepositoryTest(t *testing.T) (*GormCouponRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:coupon_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Coupon{}, &models.CouponUsage{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewCouponRepository(db), db
}

func TestCouponIncrementUsedCountGuarded(t *testing.T) {
	repo, _ := setupCouponRepositoryTest(t)

	coupon := models.Coupon{
		Code:       "LAST-SEAT",
		Type:       constants.CouponTypeFixed,
		Value:      models.NewMoneyFromDecimal(decimal.NewFromInt(50000)),
		UsageLimit: 2,
		UsedCount:  1,
		IsActive:   true,
	}
	if err := repo.Create(&coupon); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	ok, err := repo.IncrementUsedCountGuarded(coupon.ID, 1)
	if err != nil {
		t.Fatalf("first increment failed: %v", err)
	}
	if !ok {
		t.Fatalf("increment within limit should succeed")
	}

	ok, err = repo.IncrementUsedCountGuarded(coupon.ID, 1)
	if err != nil {
		t.Fatalf("second increment failed: %v", err)
	}
	if ok {
		t.Fatalf("increment past usage limit should be rejected")
	}

	reloaded, err := repo.GetByID(coupon.ID)
	if err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if reloaded.UsedCount != 2 {
		t.Fatalf("used_count want 2 got %d", reloaded.UsedCount)
	}
}

func TestCouponIncrementUsedCountUnlimited(t *testing.T) {
	repo, _ := setupCouponRepositoryTest(t)

	coupon := models.Coupon{
		Code:       "NO-LIMIT",
		Type:       constants.CouponTypePercent,
		Value:      models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		UsageLimit: 0,
		UsedCount:  999,
		IsActive:   true,
	}
	if err := repo.Create(&coupon); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	ok, err := repo.IncrementUsedCountGuarded(coupon.ID, 1)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if !ok {
		t.Fatalf("unlimited coupon should always increment")
	}
}

func TestCouponDecrementUsedCountFloor(t *testing.T) {
	repo, _ := setupCouponRepositoryTest(t)

	coupon := models.Coupon{
		Code:      "REFUNDED",
		Type:      constants.CouponTypeFixed,
		Value:     models.NewMoneyFromDecimal(decimal.NewFromInt(10000)),
		UsedCount: 0,
		IsActive:  true,
	}
	if err := repo.Create(&coupon); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	if err := repo.DecrementUsedCount(coupon.ID, 1); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	reloaded, err := repo.GetByID(coupon.ID)
	if err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if reloaded.UsedCount != 0 {
		t.Fatalf("used_count should not go below 0, got %d", reloaded.UsedCount)
	}
}

func TestCouponListByScopeCourse(t *testing.T) {
	repo, _ := setupCouponRepositoryTest(t)

	scoped := models.Coupon{
		Code:           "COURSE-1",
		Type:           constants.CouponTypeFixed,
		Value:          models.NewMoneyFromDecimal(decimal.NewFromInt(20000)),
		ScopeCourseIDs: models.UintArray{1, 12},
		IsActive:       true,
	}
	other := models.Coupon{
		Code:           "COURSE-11",
		Type:           constants.CouponTypeFixed,
		Value:          models.NewMoneyFromDecimal(decimal.NewFromInt(20000)),
		ScopeCourseIDs: models.UintArray{11},
		IsActive:       true,
	}
	if err := repo.Create(&scoped); err != nil {
		t.Fatalf("create scoped coupon failed: %v", err)
	}
	if err := repo.Create(&other); err != nil {
		t.Fatalf("create other coupon failed: %v", err)
	}

	rows, total, err := repo.List(CouponListFilter{Page: 1, PageSize: 10, ScopeCourseID: 1})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("want exactly the course-1 coupon, got total=%d len=%d", total, len(rows))
	}
	if rows[0].Code != "COURSE-1" {
		t.Fatalf("wrong coupon matched: %s", rows[0].Code)
	}
}
