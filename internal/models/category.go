package models

import (
	"time"
)

// Category 分类（原 /s/:slug 版块）
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;not null;unique" json:"name"`
	Slug        string    `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 非数据库字段，列表页统计用
	PostCount int `gorm:"-" json:"post_count"`
}
