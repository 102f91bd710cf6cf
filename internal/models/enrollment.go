package models

import (
	"time"
)

// Enrollment 课程报名记录
// (user_id, course_id) 唯一，由该约束保证重复开通无副作用。
type Enrollment struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                  // 主键
	UserID          uint      `gorm:"uniqueIndex:idx_user_course;not null" json:"user_id"`   // 用户ID
	CourseID        uint      `gorm:"uniqueIndex:idx_user_course;not null" json:"course_id"` // 课程ID
	Status          string    `gorm:"index;not null" json:"status"`                          // 报名状态（active/revoked）
	ProgressPercent int       `gorm:"not null;default:0" json:"progress_percent"`            // 学习进度百分比
	EnrolledAt      time.Time `gorm:"index" json:"enrolled_at"`                              // 报名时间
	UpdatedAt       time.Time `gorm:"index" json:"updated_at"`                               // 更新时间
}

// TableName 指定表名
func (Enrollment) TableName() string {
	return "enrollments"
}
