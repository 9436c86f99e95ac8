package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Question struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID    string    `gorm:"not null;index" json:"idRoom"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    *string   `gorm:"type:text" json:"answer"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
