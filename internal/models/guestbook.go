package models

import (
	"time"
)

type GuestbookEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Message   string    `gorm:"size:1000;not null" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (GuestbookEntry) TableName() string {
	return "guestbook"
}
