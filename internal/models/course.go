package models

import (
	"time"

	"gorm.io/gorm"
)

// Course 课程读模型
// 课程内容管理由外部系统负责，这里只保留下单与开通所需的字段。
type Course struct {
	ID           uint           `gorm:"primarykey" json:"id"`                               // 主键
	Slug         string         `gorm:"uniqueIndex;not null" json:"slug"`                   // 唯一标识
	Title        string         `gorm:"not null" json:"title"`                              // 课程标题
	CategoryID   uint           `gorm:"index" json:"category_id"`                           // 分类ID
	InstructorID uint           `gorm:"index;not null" json:"instructor_id"`                // 讲师用户ID
	Price        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 售价
	IsFree       bool           `gorm:"not null;default:false" json:"is_free"`              // 是否免费课程
	Published    bool           `gorm:"index;not null;default:true" json:"published"`       // 是否上架
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Course) TableName() string {
	return "courses"
}
