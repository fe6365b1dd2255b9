package models

import (
	"time"
)

type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:300;not null" json:"title"`
	URL        string    `gorm:"size:2000" json:"url"` // Optional
	Content    string    `gorm:"type:text" json:"content"`
	CategoryID *uint     `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	// 冗余计数，由 votes 表全量重算得出，不做增减
	Upvotes   int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int       `gorm:"not null;default:0" json:"downvotes"`
	Score     float64   `gorm:"not null;default:0;index" json:"score"` // 热度，排名 worker 异步更新
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
}

// Net 净票数
func (p Post) Net() int {
	return p.Upvotes - p.Downvotes
}
