package repository

import (
	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollmentRepository 报名数据访问接口
type EnrollmentRepository interface {
	CreateIgnoreDuplicate(enrollment *models.Enrollment) (bool, error)
	GetByUserAndCourse(userID, courseID uint) (*models.Enrollment, error)
	ListByUser(userID uint, page, pageSize int) ([]models.Enrollment, int64, error)
	UpdateProgress(userID, courseID uint, progressPercent int) error
	Revoke(userID, courseID uint) error
	Reactivate(userID, courseID uint) error
	WithTx(tx *gorm.DB) *GormEnrollmentRepository
}

// GormEnrollmentRepository GORM 实现
type GormEnrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository 创建报名仓库
func NewEnrollmentRepository(db *gorm.DB) *GormEnrollmentRepository {
	return &GormEnrollmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormEnrollmentRepository) WithTx(tx *gorm.DB) *GormEnrollmentRepository {
	if tx == nil {
		return r
	}
	return &GormEnrollmentRepository{db: tx}
}

// CreateIgnoreDuplicate 插入报名记录，(user_id, course_id) 冲突时忽略。
// 返回值表示本次是否真正插入。
func (r *GormEnrollmentRepository) CreateIgnoreDuplicate(enrollment *models.Enrollment) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(enrollment)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByUserAndCourse 获取用户在某课程的报名记录
func (r *GormEnrollmentRepository) GetByUserAndCourse(userID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	result := r.db.
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).Find(&enrollment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &enrollment, nil
}

// ListByUser 获取用户报名列表
func (r *GormEnrollmentRepository) ListByUser(userID uint, page, pageSize int) ([]models.Enrollment, int64, error) {
	query := r.db.Model(&models.Enrollment{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, page, pageSize)

	var enrollments []models.Enrollment
	if err := query.Order("id desc").Find(&enrollments).Error; err != nil {
		return nil, 0, err
	}
	return enrollments, total, nil
}

// UpdateProgress 更新学习进度
func (r *GormEnrollmentRepository) UpdateProgress(userID, courseID uint, progressPercent int) error {
	if progressPercent < 0 {
		progressPercent = 0
	}
	if progressPercent > 100 {
		progressPercent = 100
	}
	return r.db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		UpdateColumn("progress_percent", progressPercent).Error
}

// Revoke 撤销报名，退款完成后调用
func (r *GormEnrollmentRepository) Revoke(userID, courseID uint) error {
	return r.db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		UpdateColumn("status", constants.EnrollmentStatusRevoked).Error
}

// Reactivate 恢复被撤销的报名
func (r *GormEnrollmentRepository) Reactivate(userID, courseID uint) error {
	return r.db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		UpdateColumn("status", constants.EnrollmentStatusActive).Error
}
