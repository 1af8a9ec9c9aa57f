package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Link is a shortened link together with its click metrics.
type Link struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Code          string     `gorm:"uniqueIndex;size:8;not null" json:"code"`
	URL           string     `gorm:"not null" json:"url"`
	Clicks        int64      `gorm:"not null" json:"clicks"`
	LastClickedAt *time.Time `json:"last_clicked_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

// BeforeCreate assigns the opaque identifier.
func (l *Link) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
