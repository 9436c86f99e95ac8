package repository

import (
	"context"

	"github.com/pablobfonseca/go-room-qa/errs"
	"github.com/pablobfonseca/go-room-qa/models"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const searchSimilarChunksSQL = `
	SELECT id, transcription, 1 - (embeddings <=> @query) AS similarity
	FROM audio_chunks
	WHERE room_id = @room
		AND (embeddings <=> @query) <> 'NaN'
		AND 1 - (embeddings <=> @query) > @threshold
	ORDER BY embeddings <=> @query
	LIMIT @limit`

type GormRepository struct {
	DB *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

func (r *GormRepository) InsertAudioChunk(ctx context.Context, roomID, transcription string, embeddings []float32) (*models.AudioChunk, error) {
	if len(embeddings) != models.EmbeddingDimensions {
		return nil, errs.ErrEmbeddingDimension
	}

	chunk := models.AudioChunk{
		RoomID:        roomID,
		Transcription: transcription,
		Embeddings:    pgvector.NewVector(embeddings),
	}

	result := r.DB.WithContext(ctx).Clauses(clause.Returning{}).Create(&chunk)
	if result.Error != nil {
		return nil, errs.Persistence("insert audio chunk", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errs.ErrNoRowReturned
	}

	return &chunk, nil
}

func (r *GormRepository) InsertQuestion(ctx context.Context, roomID, question string, answer *string) (*models.Question, error) {
	row := models.Question{
		RoomID:   roomID,
		Question: question,
		Answer:   answer,
	}

	result := r.DB.WithContext(ctx).Clauses(clause.Returning{}).Create(&row)
	if result.Error != nil {
		return nil, errs.Persistence("insert question", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errs.ErrNoRowReturned
	}

	return &row, nil
}

func (r *GormRepository) SearchSimilarChunks(ctx context.Context, roomID string, embedding []float32, threshold float64, limit int) ([]models.SimilarChunk, error) {
	if limit <= 0 {
		return []models.SimilarChunk{}, nil
	}

	var results []models.SimilarChunk
	err := searchSimilarChunks(r.DB.WithContext(ctx), roomID, embedding, threshold, limit).Scan(&results).Error
	if err != nil {
		return nil, errs.Persistence("search similar chunks", err)
	}

	return results, nil
}

// searchSimilarChunks binds the similarity query. A zero vector has a NaN
// cosine distance in pgvector and is never returned.
func searchSimilarChunks(tx *gorm.DB, roomID string, embedding []float32, threshold float64, limit int) *gorm.DB {
	return tx.Raw(searchSimilarChunksSQL, map[string]any{
		"query":     pgvector.NewVector(embedding),
		"room":      roomID,
		"threshold": threshold,
		"limit":     limit,
	})
}

func (r *GormRepository) ListQuestions(ctx context.Context, roomID string) ([]models.Question, error) {
	var rows []models.Question
	err := r.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errs.Persistence("list questions", err)
	}

	return rows, nil
}
