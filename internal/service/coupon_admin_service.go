package service

import (
	"strings"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CouponAdminService 优惠券管理服务
type CouponAdminService struct {
	repo repository.CouponRepository
}

// NewCouponAdminService 创建优惠券管理服务
func NewCouponAdminService(repo repository.CouponRepository) *CouponAdminService {
	return &CouponAdminService{repo: repo}
}

// CouponInput 创建/更新优惠券输入
type CouponInput struct {
	Code             string
	Type             string
	Value            models.Money
	MinOrderValue    models.Money
	MaxDiscount      models.Money
	UsageLimit       int
	PerUserLimit     int
	ScopeCourseIDs   []uint
	ScopeCategoryIDs []uint
	StartsAt         *time.Time
	EndsAt           *time.Time
	IsActive         *bool
}

func validateCouponInput(input CouponInput) (string, string, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return "", "", ErrCouponInvalid
	}
	couponType := strings.ToLower(strings.TrimSpace(input.Type))
	if couponType != constants.CouponTypeFixed && couponType != constants.CouponTypePercent {
		return "", "", ErrCouponInvalid
	}
	if input.Value.Decimal.LessThanOrEqual(decimal.Zero) {
		return "", "", ErrCouponInvalid
	}
	if couponType == constants.CouponTypePercent && input.Value.Decimal.GreaterThan(decimal.NewFromInt(100)) {
		return "", "", ErrCouponInvalid
	}
	if input.UsageLimit < 0 || input.PerUserLimit < 0 {
		return "", "", ErrCouponInvalid
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return "", "", ErrCouponInvalid
	}
	return code, couponType, nil
}

// Create 创建优惠券
func (s *CouponAdminService) Create(input CouponInput) (*models.Coupon, error) {
	code, couponType, err := validateCouponInput(input)
	if err != nil {
		return nil, err
	}

	exist, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrCouponInvalid
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	coupon := &models.Coupon{
		Code:             code,
		Type:             couponType,
		Value:            input.Value,
		MinOrderValue:    input.MinOrderValue,
		MaxDiscount:      input.MaxDiscount,
		UsageLimit:       input.UsageLimit,
		UsedCount:        0,
		PerUserLimit:     input.PerUserLimit,
		ScopeCourseIDs:   models.UintArray(input.ScopeCourseIDs),
		ScopeCategoryIDs: models.UintArray(input.ScopeCategoryIDs),
		StartsAt:         input.StartsAt,
		EndsAt:           input.EndsAt,
		IsActive:         isActive,
	}

	if err := s.repo.Create(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Update 更新优惠券
func (s *CouponAdminService) Update(id uint, input CouponInput) (*models.Coupon, error) {
	if id == 0 {
		return nil, ErrCouponInvalid
	}
	code, couponType, err := validateCouponInput(input)
	if err != nil {
		return nil, err
	}

	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	if code != coupon.Code {
		exist, err := s.repo.GetByCode(code)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != id {
			return nil, ErrCouponInvalid
		}
	}

	coupon.Code = code
	coupon.Type = couponType
	coupon.Value = input.Value
	coupon.MinOrderValue = input.MinOrderValue
	coupon.MaxDiscount = input.MaxDiscount
	coupon.UsageLimit = input.UsageLimit
	coupon.PerUserLimit = input.PerUserLimit
	coupon.ScopeCourseIDs = models.UintArray(input.ScopeCourseIDs)
	coupon.ScopeCategoryIDs = models.UintArray(input.ScopeCategoryIDs)
	coupon.StartsAt = input.StartsAt
	coupon.EndsAt = input.EndsAt
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}

	if err := s.repo.Update(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Delete 删除优惠券（软删除，历史使用记录保留）
func (s *CouponAdminService) Delete(id uint) error {
	if id == 0 {
		return ErrCouponInvalid
	}
	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return s.repo.Delete(id)
}

// Get 优惠券详情
func (s *CouponAdminService) Get(id uint) (*models.Coupon, error) {
	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// List 优惠券列表
func (s *CouponAdminService) List(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.repo.List(filter)
}
