package repository

import (
	"errors"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"

	"gorm.io/gorm"
)

// RefundRequestRepository 退款申请数据访问接口
type RefundRequestRepository interface {
	Create(request *models.RefundRequest) error
	Update(request *models.RefundRequest) error
	GetByID(id uint) (*models.RefundRequest, error)
	GetPendingByOrderID(orderID uint) (*models.RefundRequest, error)
	List(filter RefundRequestListFilter) ([]models.RefundRequest, int64, error)
	IncrementRetryCount(id uint) error
	WithTx(tx *gorm.DB) *GormRefundRequestRepository
}

// GormRefundRequestRepository GORM 实现
type GormRefundRequestRepository struct {
	db *gorm.DB
}

// NewRefundRequestRepository 创建退款申请仓库
func NewRefundRequestRepository(db *gorm.DB) *GormRefundRequestRepository {
	return &GormRefundRequestRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRefundRequestRepository) WithTx(tx *gorm.DB) *GormRefundRequestRepository {
	if tx == nil {
		return r
	}
	return &GormRefundRequestRepository{db: tx}
}

// Create 创建退款申请
func (r *GormRefundRequestRepository) Create(request *models.RefundRequest) error {
	return r.db.Create(request).Error
}

// Update 更新退款申请
func (r *GormRefundRequestRepository) Update(request *models.RefundRequest) error {
	return r.db.Save(request).Error
}

// GetByID 根据 ID 获取退款申请
func (r *GormRefundRequestRepository) GetByID(id uint) (*models.RefundRequest, error) {
	var request models.RefundRequest
	if err := r.db.First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// GetPendingByOrderID 获取订单的待处理退款申请
func (r *GormRefundRequestRepository) GetPendingByOrderID(orderID uint) (*models.RefundRequest, error) {
	var request models.RefundRequest
	result := r.db.
		Where("order_id = ? AND status = ?", orderID, constants.RefundStatusPending).
		Order("id desc").Limit(1).Find(&request)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &request, nil
}

// List 获取退款申请列表
func (r *GormRefundRequestRepository) List(filter RefundRequestListFilter) ([]models.RefundRequest, int64, error) {
	query := r.db.Model(&models.RefundRequest{})

	if filter.StudentID != 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ManualReview != nil {
		query = query.Where("manual_review = ?", *filter.ManualReview)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var requests []models.RefundRequest
	if err := query.Order("id desc").Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// IncrementRetryCount 增加网关退款重试次数
func (r *GormRefundRequestRepository) IncrementRetryCount(id uint) error {
	return r.db.Model(&models.RefundRequest{}).
		Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
}
