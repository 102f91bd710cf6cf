package service

import (
	"context"
	"time"

	"github.com/coursepay-next/internal/cache"
	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/logger"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EnrollmentService 课程报名服务
type EnrollmentService struct {
	enrollmentRepo repository.EnrollmentRepository
	courseRepo     repository.CourseRepository
}

// NewEnrollmentService 创建报名服务
func NewEnrollmentService(enrollmentRepo repository.EnrollmentRepository, courseRepo repository.CourseRepository) *EnrollmentService {
	return &EnrollmentService{
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
	}
}

// Provision 开通课程，(user_id, course_id) 唯一约束下插入即忽略冲突。
// 付费课程在对账确认支付的事务内调用，免费课程走 EnrollFree。
func (s *EnrollmentService) Provision(tx *gorm.DB, userID, courseID uint) (bool, error) {
	repo := s.enrollmentRepo.WithTx(tx)
	now := time.Now()
	created, err := repo.CreateIgnoreDuplicate(&models.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     constants.EnrollmentStatusActive,
		EnrolledAt: now,
		UpdatedAt:  now,
	})
	if err != nil {
		return false, err
	}
	if !created {
		// 已有记录可能是被撤销后的重购，恢复为 active
		if err := repo.Reactivate(userID, courseID); err != nil {
			return false, err
		}
	}
	return created, nil
}

// EnrollFree 免费课程直接报名，不经过订单与网关
func (s *EnrollmentService) EnrollFree(userID, courseID uint) (*models.Enrollment, error) {
	if userID == 0 || courseID == 0 {
		return nil, ErrCourseNotFound
	}
	course, err := s.getCourse(courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	if !course.Published {
		return nil, ErrCourseUnavailable
	}
	if !course.IsFree && course.Price.Decimal.GreaterThan(decimal.Zero) {
		return nil, ErrCourseNotFree
	}

	existing, err := s.enrollmentRepo.GetByUserAndCourse(userID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == constants.EnrollmentStatusActive {
		return nil, ErrAlreadyEnrolled
	}

	if _, err := s.Provision(nil, userID, courseID); err != nil {
		return nil, err
	}
	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(userID, courseID)
	if err != nil {
		return nil, err
	}
	logger.SW("user_id", userID, "course_id", courseID).Infow("enrollment_free_created")
	return enrollment, nil
}

// getCourse 带缓存读取课程，缓存故障时直接回源
func (s *EnrollmentService) getCourse(courseID uint) (*models.Course, error) {
	ctx := context.Background()
	if cached, hit, err := cache.GetCourse(ctx, courseID); err == nil && hit {
		return cached, nil
	}
	course, err := s.courseRepo.GetByID(courseID)
	if err != nil {
		return nil, err
	}
	if course != nil {
		if err := cache.SetCourse(ctx, course); err != nil {
			logger.SW("course_id", courseID, "error", err).Warnw("course_cache_set_failed")
		}
	}
	return course, nil
}

// UpdateProgress 学习进度上报，进度影响退款资格判断
func (s *EnrollmentService) UpdateProgress(userID, courseID uint, progressPercent int) (*models.Enrollment, error) {
	if progressPercent < 0 || progressPercent > 100 {
		return nil, ErrProgressInvalid
	}
	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil || enrollment.Status != constants.EnrollmentStatusActive {
		return nil, ErrEnrollmentNotFound
	}
	if err := s.enrollmentRepo.UpdateProgress(userID, courseID, progressPercent); err != nil {
		return nil, err
	}
	enrollment.ProgressPercent = progressPercent
	return enrollment, nil
}

// ListByUser 用户报名列表
func (s *EnrollmentService) ListByUser(userID uint, page, pageSize int) ([]models.Enrollment, int64, error) {
	return s.enrollmentRepo.ListByUser(userID, page, pageSize)
}

// GetByUserAndCourse 查询单条报名记录
func (s *EnrollmentService) GetByUserAndCourse(userID, courseID uint) (*models.Enrollment, error) {
	return s.enrollmentRepo.GetByUserAndCourse(userID, courseID)
}

// Revoke 撤销课程开通，全额退款时由退款流程调用
func (s *EnrollmentService) Revoke(tx *gorm.DB, userID, courseID uint) error {
	return s.enrollmentRepo.WithTx(tx).Revoke(userID, courseID)
}
