package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/coursepay-next/internal/models"
)

const courseCacheTTL = 5 * time.Minute

func courseKey(courseID uint) string {
	return fmt.Sprintf("course:%d", courseID)
}

// GetCourse 获取课程缓存
func GetCourse(ctx context.Context, courseID uint) (*models.Course, bool, error) {
	if courseID == 0 {
		return nil, false, nil
	}
	var course models.Course
	hit, err := GetJSON(ctx, courseKey(courseID), &course)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &course, true, nil
}

// SetCourse 写入课程缓存
func SetCourse(ctx context.Context, course *models.Course) error {
	if course == nil || course.ID == 0 {
		return nil
	}
	return SetJSON(ctx, courseKey(course.ID), course, courseCacheTTL)
}

// DelCourse 删除课程缓存，课程更新后调用
func DelCourse(ctx context.Context, courseID uint) error {
	if courseID == 0 {
		return nil
	}
	return Del(ctx, courseKey(courseID))
}
