package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingDimensions is the size of the embeddings vector column
const EmbeddingDimensions = 768

type AudioChunk struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID        string          `gorm:"not null;index" json:"idRoom"`
	Transcription string          `gorm:"type:text;not null" json:"transcription"`
	Embeddings    pgvector.Vector `gorm:"type:vector(768);not null" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

func (c *AudioChunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SimilarChunk is one row of a similarity search
type SimilarChunk struct {
	ID            uuid.UUID `json:"id"`
	Transcription string    `json:"transcription"`
	Similarity    float64   `json:"similarity"`
}
