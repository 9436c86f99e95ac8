package rooms

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pablobfonseca/go-room-qa/config"
	"github.com/pablobfonseca/go-room-qa/errs"
	"github.com/pablobfonseca/go-room-qa/metrics"
	"github.com/pablobfonseca/go-room-qa/models"
	"github.com/pablobfonseca/go-room-qa/repository"
	"github.com/pablobfonseca/go-room-qa/services"
)

// Policy holds the retrieval and input limits
type Policy struct {
	SimilarityThreshold float64
	SimilarityLimit     int
	MaxAudioBytes       int64
	MaxQuestionLength   int
	EmbeddingDimensions int
}

func DefaultPolicy() Policy {
	return Policy{
		SimilarityThreshold: 0.7,
		SimilarityLimit:     3,
		MaxAudioBytes:       25 << 20,
		MaxQuestionLength:   2000,
		EmbeddingDimensions: models.EmbeddingDimensions,
	}
}

func PolicyFromConfig(cfg config.PolicyConfig) Policy {
	return Policy{
		SimilarityThreshold: cfg.SimilarityThreshold,
		SimilarityLimit:     cfg.SimilarityLimit,
		MaxAudioBytes:       cfg.MaxAudioBytes,
		MaxQuestionLength:   cfg.MaxQuestionLength,
		EmbeddingDimensions: models.EmbeddingDimensions,
	}
}

// Service runs the upload and question pipelines. Every step is sequential and
// any failure aborts the whole operation; at most one row is written per call.
type Service struct {
	provider services.Provider
	repo     repository.Repository
	policy   Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewService(provider services.Provider, repo repository.Repository, policy Policy, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		repo:     repo,
		policy:   policy,
		logger:   logger,
		metrics:  m,
	}
}

func (s *Service) Policy() Policy {
	return s.policy
}

// UploadAudio transcribes the audio, embeds the transcription and stores both
// as a new chunk of the room.
func (s *Service) UploadAudio(ctx context.Context, in UploadAudioInput) (UploadAudioResult, error) {
	if err := in.Validate(s.policy); err != nil {
		return UploadAudioResult{}, err
	}

	mimeType := services.ResolveMimeType(in.MimeType, in.Filename, in.Audio)

	transcription, err := s.provider.Transcribe(ctx, in.Audio, mimeType)
	if err != nil {
		return UploadAudioResult{}, s.fail("upload audio", in.RoomID, errs.Upstream(services.OperationTranscribe, err), err)
	}

	embeddings, err := s.provider.Embed(ctx, transcription)
	if err == nil {
		err = s.checkEmbedding(embeddings)
	}
	if err != nil {
		return UploadAudioResult{}, s.fail("upload audio", in.RoomID, errs.Upstream(services.OperationEmbed, err), err)
	}

	chunk, err := s.repo.InsertAudioChunk(ctx, in.RoomID, transcription, embeddings)
	if err != nil {
		return UploadAudioResult{}, s.fail("upload audio", in.RoomID, errs.Persistence("insert audio chunk", err), err)
	}
	if chunk == nil {
		return UploadAudioResult{}, s.fail("upload audio", in.RoomID, errs.ErrNoRowReturned, nil)
	}

	s.metrics.RecordAudioChunk()
	s.logger.Info("audio chunk created",
		slog.String("room_id", in.RoomID),
		slog.String("chunk_id", chunk.ID.String()),
		slog.String("mime_type", mimeType),
		slog.Int("audio_bytes", len(in.Audio)),
	)

	return UploadAudioResult{ChunkID: chunk.ID, Transcription: chunk.Transcription}, nil
}

// CreateQuestion embeds the question, retrieves the most similar chunks of the
// room and, only when at least one is found, asks for a grounded answer.
func (s *Service) CreateQuestion(ctx context.Context, in CreateQuestionInput) (CreateQuestionResult, error) {
	if err := in.Validate(s.policy); err != nil {
		return CreateQuestionResult{}, err
	}

	embeddings, err := s.provider.Embed(ctx, in.Question)
	if err == nil {
		err = s.checkEmbedding(embeddings)
	}
	if err != nil {
		return CreateQuestionResult{}, s.fail("create question", in.RoomID, errs.Upstream(services.OperationEmbed, err), err)
	}

	chunks, err := s.repo.SearchSimilarChunks(ctx, in.RoomID, embeddings, s.policy.SimilarityThreshold, s.policy.SimilarityLimit)
	if err != nil {
		return CreateQuestionResult{}, s.fail("create question", in.RoomID, errs.Persistence("search similar chunks", err), err)
	}
	s.metrics.RecordSimilarChunks(len(chunks))

	var answer *string
	if len(chunks) > 0 {
		contexts := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			contexts = append(contexts, chunk.Transcription)
		}

		text, err := s.provider.Answer(ctx, in.Question, contexts)
		if err != nil {
			return CreateQuestionResult{}, s.fail("create question", in.RoomID, errs.Upstream(services.OperationAnswer, err), err)
		}
		answer = &text
	}

	question, err := s.repo.InsertQuestion(ctx, in.RoomID, in.Question, answer)
	if err != nil {
		return CreateQuestionResult{}, s.fail("create question", in.RoomID, errs.Persistence("insert question", err), err)
	}
	if question == nil {
		return CreateQuestionResult{}, s.fail("create question", in.RoomID, errs.ErrNoRowReturned, nil)
	}

	s.metrics.RecordQuestion(answer != nil)
	s.logger.Info("question created",
		slog.String("room_id", in.RoomID),
		slog.String("question_id", question.ID.String()),
		slog.Int("similar_chunks", len(chunks)),
		slog.Bool("answered", answer != nil),
	)

	return CreateQuestionResult{QuestionID: question.ID, Answer: question.Answer}, nil
}

func (s *Service) ListQuestions(ctx context.Context, roomID string) ([]models.Question, error) {
	if roomID == "" {
		return nil, errs.ErrRoomIdEmpty
	}

	questions, err := s.repo.ListQuestions(ctx, roomID)
	if err != nil {
		return nil, s.fail("list questions", roomID, errs.Persistence("list questions", err), err)
	}

	return questions, nil
}

// checkEmbedding rejects vectors the datastore cannot compare: a wrong length
// fails the pgvector cast and a zero vector has no cosine distance.
func (s *Service) checkEmbedding(vec []float32) error {
	if s.policy.EmbeddingDimensions > 0 && len(vec) != s.policy.EmbeddingDimensions {
		return errs.ErrEmbeddingDimension
	}
	for _, v := range vec {
		if v != 0 {
			return nil
		}
	}
	return errs.ErrEmbeddingZero
}

// fail keeps an *errs.Error produced by a lower layer and otherwise returns
// fallback, then logs the result
func (s *Service) fail(operation, roomID string, fallback *errs.Error, cause error) error {
	result := fallback
	var e *errs.Error
	if errors.As(cause, &e) {
		result = e
	}

	s.logger.Error(operation+" failed",
		slog.String("room_id", roomID),
		slog.String("category", string(result.Category)),
		slog.Any("error", result),
	)

	return result
}
