package repository

import (
	"context"

	"github.com/pablobfonseca/go-room-qa/models"
)

// Repository is the persistence boundary of the room handlers. Rows are only
// ever appended; nothing is updated or deleted.
type Repository interface {
	// InsertAudioChunk stores one transcribed chunk and returns the stored row
	InsertAudioChunk(ctx context.Context, roomID, transcription string, embeddings []float32) (*models.AudioChunk, error)

	// InsertQuestion stores one question with its answer, which may be nil
	InsertQuestion(ctx context.Context, roomID, question string, answer *string) (*models.Question, error)

	// SearchSimilarChunks returns at most limit chunks of the room whose cosine
	// similarity to embedding is strictly greater than threshold, most similar first
	SearchSimilarChunks(ctx context.Context, roomID string, embedding []float32, threshold float64, limit int) ([]models.SimilarChunk, error)

	// ListQuestions returns the questions of the room, newest first
	ListQuestions(ctx context.Context, roomID string) ([]models.Question, error)
}
