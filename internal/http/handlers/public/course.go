package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/repository"
	"github.com/coursepay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCourses 获取课程列表
func (h *Handler) GetCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	categoryID, _ := strconv.ParseUint(c.Query("category_id"), 10, 64)
	search := strings.TrimSpace(c.Query("search"))

	courses, total, err := h.CourseService.List(repository.CourseListFilter{
		Page:          page,
		PageSize:      pageSize,
		CategoryID:    uint(categoryID),
		Search:        search,
		OnlyPublished: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.course_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, courses, response.BuildPagination(page, pageSize, total))
}

// GetCourseBySlug 根据 slug 获取课程详情
func (h *Handler) GetCourseBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))

	course, err := h.CourseService.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			respondError(c, response.CodeNotFound, "error.course_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.course_fetch_failed", err)
		return
	}
	if !course.Published {
		respondError(c, response.CodeNotFound, "error.course_not_found", nil)
		return
	}

	response.Success(c, course)
}
