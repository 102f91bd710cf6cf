package service

import (
	"strings"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponService 优惠券服务
type CouponService struct {
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository, usageRepo repository.CouponUsageRepository) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
	}
}

// QuoteContext 报价上下文（所购课程与订单金额）
type QuoteContext struct {
	CourseID   uint
	CategoryID uint
	OrderTotal models.Money
}

// Quote 校验优惠券并计算折扣金额，只读不落库。
// 报价阶段对使用上限做软校验，最终扣减在 Commit 内原子完成。
func (s *CouponService) Quote(code string, userID uint, qctx QuoteContext) (models.Money, *models.Coupon, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return models.Money{}, nil, ErrCouponInvalid
	}

	coupon, err := s.couponRepo.GetByCode(trimmed)
	if err != nil {
		return models.Money{}, nil, err
	}
	if coupon == nil {
		return models.Money{}, nil, ErrCouponNotFound
	}
	if !coupon.IsActive {
		return models.Money{}, coupon, ErrCouponInactive
	}

	now := time.Now()
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return models.Money{}, coupon, ErrCouponNotStarted
	}
	if coupon.EndsAt != nil && now.After(*coupon.EndsAt) {
		return models.Money{}, coupon, ErrCouponExpired
	}

	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return models.Money{}, coupon, ErrCouponExhausted
	}

	if coupon.PerUserLimit > 0 && userID != 0 {
		count, err := s.usageRepo.CountByCouponAndUser(coupon.ID, userID)
		if err != nil {
			return models.Money{}, coupon, err
		}
		if int(count) >= coupon.PerUserLimit {
			return models.Money{}, coupon, ErrCouponPerUserLimit
		}
	}

	if !couponAppliesTo(coupon, qctx.CourseID, qctx.CategoryID) {
		return models.Money{}, coupon, ErrCouponScope
	}

	if qctx.OrderTotal.Decimal.Cmp(coupon.MinOrderValue.Decimal) < 0 {
		return models.Money{}, coupon, ErrCouponMinOrder
	}

	discount, err := calculateDiscount(coupon, qctx.OrderTotal)
	if err != nil {
		return models.Money{}, coupon, err
	}

	if coupon.MaxDiscount.Decimal.GreaterThan(decimal.Zero) && discount.Decimal.GreaterThan(coupon.MaxDiscount.Decimal) {
		discount = models.NewMoneyFromDecimal(coupon.MaxDiscount.Decimal)
	}
	if discount.Decimal.GreaterThan(qctx.OrderTotal.Decimal) {
		discount = models.NewMoneyFromDecimal(qctx.OrderTotal.Decimal)
	}

	return discount, coupon, nil
}

// Commit 在订单确认支付的事务内消耗一次优惠券。
// 先用条件 UPDATE 做带上限保护的自增并持有券行锁，再在锁内复核每人上限，
// 并发提交不可能合计超出 usage_limit 或 per_user_limit；超限返回
// ErrCouponExhausted，由调用方回滚整个事务。
func (s *CouponService) Commit(tx *gorm.DB, couponID, userID, orderID uint, discount models.Money) error {
	couponRepo := s.couponRepo.WithTx(tx)
	usageRepo := s.usageRepo.WithTx(tx)

	coupon, err := couponRepo.GetByID(couponID)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}

	// 条件自增必须先执行：UPDATE 拿到券行锁后，后到的事务在此排队，
	// 其后的每人上限复核才能看到先提交事务写入的使用记录。
	ok, err := couponRepo.IncrementUsedCountGuarded(couponID, 1)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCouponExhausted
	}

	if coupon.PerUserLimit > 0 {
		count, err := usageRepo.CountByCouponAndUser(couponID, userID)
		if err != nil {
			return err
		}
		if int(count) >= coupon.PerUserLimit {
			return ErrCouponExhausted
		}
	}

	usage := &models.CouponUsage{
		CouponID:       couponID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: discount,
		UsedAt:         time.Now(),
	}
	return usageRepo.Create(usage)
}

// Release 释放订单占用的优惠券次数（全额退款时回补）。
// 订单没有使用记录时为空操作。
func (s *CouponService) Release(tx *gorm.DB, orderID uint) error {
	usageRepo := s.usageRepo.WithTx(tx)
	couponRepo := s.couponRepo.WithTx(tx)

	usage, err := usageRepo.GetByOrderID(orderID)
	if err != nil {
		return err
	}
	if usage == nil {
		return nil
	}
	if err := usageRepo.DeleteByOrderID(orderID); err != nil {
		return err
	}
	return couponRepo.DecrementUsedCount(usage.CouponID, 1)
}

// couponAppliesTo 判断课程是否在优惠券适用范围内，范围为空表示全场通用
func couponAppliesTo(coupon *models.Coupon, courseID, categoryID uint) bool {
	if len(coupon.ScopeCourseIDs) == 0 && len(coupon.ScopeCategoryIDs) == 0 {
		return true
	}
	if courseID != 0 && coupon.ScopeCourseIDs.Contains(courseID) {
		return true
	}
	if categoryID != 0 && coupon.ScopeCategoryIDs.Contains(categoryID) {
		return true
	}
	return false
}

func calculateDiscount(coupon *models.Coupon, orderTotal models.Money) (models.Money, error) {
	switch strings.ToLower(strings.TrimSpace(coupon.Type)) {
	case constants.CouponTypeFixed:
		if coupon.Value.Decimal.LessThanOrEqual(decimal.Zero) {
			return models.Money{}, ErrCouponInvalid
		}
		return models.NewMoneyFromDecimal(coupon.Value.Decimal), nil
	case constants.CouponTypePercent:
		if coupon.Value.Decimal.LessThanOrEqual(decimal.Zero) || coupon.Value.Decimal.GreaterThan(decimal.NewFromInt(100)) {
			return models.Money{}, ErrCouponInvalid
		}
		percent := coupon.Value.Decimal.Div(decimal.NewFromInt(100))
		discount := orderTotal.Decimal.Mul(percent)
		return models.NewMoneyFromDecimal(discount), nil
	default:
		return models.Money{}, ErrCouponInvalid
	}
}
