package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                // 主键
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`   // 邮箱
	PasswordHash string         `gorm:"type:varchar(200);not null" json:"-"` // 密码哈希
	Role         string         `gorm:"index;not null" json:"role"`          // 角色（student/instructor/admin）
	Status       string         `gorm:"index;not null" json:"status"`        // 账号状态
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`             // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`             // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                      // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
