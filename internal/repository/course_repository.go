package repository

import (
	"errors"
	"strings"

	"github.com/coursepay-next/internal/models"

	"gorm.io/gorm"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	GetByID(id uint) (*models.Course, error)
	GetBySlug(slug string) (*models.Course, error)
	List(filter CourseListFilter) ([]models.Course, int64, error)
	Create(course *models.Course) error
	Update(course *models.Course) error
	Delete(id uint) error
	WithTx(tx *gorm.DB) *GormCourseRepository
}

// GormCourseRepository GORM 实现
type GormCourseRepository struct {
	db *gorm.DB
}

// NewCourseRepository 创建课程仓库
func NewCourseRepository(db *gorm.DB) *GormCourseRepository {
	return &GormCourseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCourseRepository) WithTx(tx *gorm.DB) *GormCourseRepository {
	if tx == nil {
		return r
	}
	return &GormCourseRepository{db: tx}
}

// GetByID 根据 ID 获取课程
func (r *GormCourseRepository) GetByID(id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

// GetBySlug 根据 slug 获取课程
func (r *GormCourseRepository) GetBySlug(slug string) (*models.Course, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	var course models.Course
	if err := r.db.Where("slug = ?", slug).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

// List 获取课程列表
func (r *GormCourseRepository) List(filter CourseListFilter) ([]models.Course, int64, error) {
	query := r.db.Model(&models.Course{})

	if filter.CategoryID > 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.InstructorID > 0 {
		query = query.Where("instructor_id = ?", filter.InstructorID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		operator := likeOperator(r.db)
		query = query.Where("(title "+operator+" ? OR slug "+operator+" ?)", like, like)
	}
	if filter.OnlyPublished {
		query = query.Where("published = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var courses []models.Course
	if err := query.Order("id desc").Find(&courses).Error; err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// Create 创建课程
func (r *GormCourseRepository) Create(course *models.Course) error {
	return r.db.Create(course).Error
}

// Update 更新课程
func (r *GormCourseRepository) Update(course *models.Course) error {
	return r.db.Save(course).Error
}

// Delete 删除课程
func (r *GormCourseRepository) Delete(id uint) error {
	return r.db.Delete(&models.Course{}, id).Error
}
