package service

import (
	"context"
	"strings"

	"github.com/coursepay-next/internal/cache"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/repository"
)

// CourseService 课程读模型服务。
// 课程内容由外部系统管理，这里只维护下单与开通所需的字段。
type CourseService struct {
	repo repository.CourseRepository
}

// NewCourseService 创建课程服务
func NewCourseService(repo repository.CourseRepository) *CourseService {
	return &CourseService{repo: repo}
}

// List 课程列表
func (s *CourseService) List(filter repository.CourseListFilter) ([]models.Course, int64, error) {
	return s.repo.List(filter)
}

// Get 课程详情
func (s *CourseService) Get(id uint) (*models.Course, error) {
	course, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// GetBySlug 按唯一标识查询课程
func (s *CourseService) GetBySlug(slug string) (*models.Course, error) {
	course, err := s.repo.GetBySlug(strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// Upsert 管理端创建/更新课程读模型，更新后失效缓存
func (s *CourseService) Upsert(course *models.Course) error {
	if course == nil || strings.TrimSpace(course.Slug) == "" {
		return ErrCourseNotFound
	}
	var err error
	if course.ID == 0 {
		err = s.repo.Create(course)
	} else {
		err = s.repo.Update(course)
	}
	if err != nil {
		return err
	}
	return cache.DelCourse(context.Background(), course.ID)
}
