package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/repository"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CourseRequest 创建/更新课程读模型请求
type CourseRequest struct {
	Slug         string  `json:"slug" binding:"required"`
	Title        string  `json:"title" binding:"required"`
	CategoryID   uint    `json:"category_id"`
	InstructorID uint    `json:"instructor_id" binding:"required"`
	Price        float64 `json:"price"`
	IsFree       bool    `json:"is_free"`
	Published    *bool   `json:"published"`
}

func (r CourseRequest) toModel(id uint) *models.Course {
	published := true
	if r.Published != nil {
		published = *r.Published
	}
	return &models.Course{
		ID:           id,
		Slug:         strings.TrimSpace(r.Slug),
		Title:        strings.TrimSpace(r.Title),
		CategoryID:   r.CategoryID,
		InstructorID: r.InstructorID,
		Price:        models.NewMoneyFromDecimal(decimal.NewFromFloat(r.Price)),
		IsFree:       r.IsFree,
		Published:    published,
	}
}

// CreateCourse 创建课程读模型
func (h *Handler) CreateCourse(c *gin.Context) {
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	course := req.toModel(0)
	if err := h.CourseService.Upsert(course); err != nil {
		respondError(c, response.CodeInternal, "error.course_save_failed", err)
		return
	}

	requestLog(c).Infow("admin_course_created", "course_id", course.ID, "slug", course.Slug)
	response.Success(c, course)
}

// UpdateCourse 更新课程读模型
func (h *Handler) UpdateCourse(c *gin.Context) {
	courseID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || courseID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if _, err := h.CourseService.Get(uint(courseID)); err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			respondError(c, response.CodeNotFound, "error.course_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.course_fetch_failed", err)
		return
	}

	course := req.toModel(uint(courseID))
	if err := h.CourseService.Upsert(course); err != nil {
		respondError(c, response.CodeInternal, "error.course_save_failed", err)
		return
	}

	requestLog(c).Infow("admin_course_updated", "course_id", course.ID, "slug", course.Slug)
	response.Success(c, course)
}

// ListAdminCourses 课程列表（管理端，含未上架）
func (h *Handler) ListAdminCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.CourseListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if categoryID, err := strconv.ParseUint(c.Query("category_id"), 10, 64); err == nil {
		filter.CategoryID = uint(categoryID)
	}
	if instructorID, err := strconv.ParseUint(c.Query("instructor_id"), 10, 64); err == nil {
		filter.InstructorID = uint(instructorID)
	}

	courses, total, err := h.CourseService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.course_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, courses, response.BuildPagination(page, pageSize, total))
}

// GetAdminCourse 课程详情（管理端）
func (h *Handler) GetAdminCourse(c *gin.Context) {
	courseID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || courseID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	course, err := h.CourseService.Get(uint(courseID))
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			respondError(c, response.CodeNotFound, "error.course_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.course_fetch_failed", err)
		return
	}

	response.Success(c, course)
}
