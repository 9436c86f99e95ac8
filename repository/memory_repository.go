package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pablobfonseca/go-room-qa/errs"
	"github.com/pablobfonseca/go-room-qa/models"
	"github.com/pgvector/pgvector-go"
)

// MemoryRepository keeps rows in process memory. It implements the same
// search contract as the postgres query, for tests and small fixtures.
type MemoryRepository struct {
	mu         sync.RWMutex
	dimensions int
	chunks     []models.AudioChunk
	questions  []models.Question
	now        func() time.Time
}

// NewMemoryRepository returns an empty repository accepting embeddings of the
// given size. A size <= 0 means models.EmbeddingDimensions.
func NewMemoryRepository(dimensions int) *MemoryRepository {
	if dimensions <= 0 {
		dimensions = models.EmbeddingDimensions
	}
	return &MemoryRepository{dimensions: dimensions, now: time.Now}
}

func (r *MemoryRepository) InsertAudioChunk(ctx context.Context, roomID, transcription string, embeddings []float32) (*models.AudioChunk, error) {
	if len(embeddings) != r.dimensions {
		return nil, errs.ErrEmbeddingDimension
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Persistence("insert audio chunk", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	chunk := models.AudioChunk{
		ID:            uuid.New(),
		RoomID:        roomID,
		Transcription: transcription,
		Embeddings:    pgvector.NewVector(append([]float32(nil), embeddings...)),
		CreatedAt:     r.now(),
	}
	r.chunks = append(r.chunks, chunk)

	return &chunk, nil
}

func (r *MemoryRepository) InsertQuestion(ctx context.Context, roomID, question string, answer *string) (*models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Persistence("insert question", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row := models.Question{
		ID:        uuid.New(),
		RoomID:    roomID,
		Question:  question,
		Answer:    answer,
		CreatedAt: r.now(),
	}
	r.questions = append(r.questions, row)

	return &row, nil
}

func (r *MemoryRepository) SearchSimilarChunks(ctx context.Context, roomID string, embedding []float32, threshold float64, limit int) ([]models.SimilarChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Persistence("search similar chunks", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]models.SimilarChunk, 0)
	if limit <= 0 {
		return results, nil
	}

	for _, chunk := range r.chunks {
		if chunk.RoomID != roomID {
			continue
		}
		similarity := 1 - CosineDistance(chunk.Embeddings.Slice(), embedding)
		if similarity > threshold {
			results = append(results, models.SimilarChunk{
				ID:            chunk.ID,
				Transcription: chunk.Transcription,
				Similarity:    similarity,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (r *MemoryRepository) ListQuestions(ctx context.Context, roomID string) ([]models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Persistence("list questions", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]models.Question, 0)
	for i := len(r.questions) - 1; i >= 0; i-- {
		if r.questions[i].RoomID == roomID {
			rows = append(rows, r.questions[i])
		}
	}

	return rows, nil
}

// AudioChunkCount returns the number of stored chunks
func (r *MemoryRepository) AudioChunkCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chunks)
}

// QuestionCount returns the number of stored questions
func (r *MemoryRepository) QuestionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.questions)
}

// CosineDistance matches pgvector's <=> operator: 1 - cos(a, b). Vectors of
// different length or with a zero norm are at distance NaN, which never passes
// a similarity threshold.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.NaN()
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return math.NaN()
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
