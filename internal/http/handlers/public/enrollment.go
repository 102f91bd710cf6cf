package public

import (
	"strconv"

	"github.com/coursepay-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// EnrollFreeRequest 免费课程报名请求
type EnrollFreeRequest struct {
	CourseID uint `json:"course_id" binding:"required"`
}

// EnrollFree 免费课程直接报名，不经过订单与网关
func (h *Handler) EnrollFree(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req EnrollFreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	enrollment, err := h.EnrollmentService.EnrollFree(uid, req.CourseID)
	if err != nil {
		respondEnrollFreeError(c, err)
		return
	}

	response.Success(c, enrollment)
}

// ListEnrollments 获取当前用户报名列表
func (h *Handler) ListEnrollments(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	enrollments, total, err := h.EnrollmentService.ListByUser(uid, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.enrollment_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, enrollments, response.BuildPagination(page, pageSize, total))
}

// UpdateProgressRequest 学习进度上报请求
type UpdateProgressRequest struct {
	ProgressPercent *int `json:"progress_percent" binding:"required"`
}

// UpdateProgress 学习进度上报，进度影响退款资格判断
func (h *Handler) UpdateProgress(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	courseID, err := strconv.ParseUint(c.Param("course_id"), 10, 64)
	if err != nil || courseID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProgressPercent == nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	enrollment, err := h.EnrollmentService.UpdateProgress(uid, uint(courseID), *req.ProgressPercent)
	if err != nil {
		respondProgressError(c, err)
		return
	}

	response.Success(c, enrollment)
}
