package errs

import "net/http"

// Error values for room audio and question operations
var (
	ErrRoomIdEmpty          = Validation("room id is required")
	ErrAudioRequired        = Validation("audio is required")
	ErrAudioEmpty           = Validation("audio file is empty")
	ErrAudioTooLarge        = New(CategoryValidation, http.StatusRequestEntityTooLarge, "audio file exceeds the maximum size")
	ErrQuestionEmpty        = Validation("question must not be empty")
	ErrQuestionTooLong      = Validation("question exceeds the maximum length")
	ErrInvalidRequestBody   = Validation("request body is invalid")
	ErrEmbeddingDimension   = New(CategoryUpstream, http.StatusBadGateway, "embedding has an unexpected dimension")
	ErrEmbeddingZero        = New(CategoryUpstream, http.StatusBadGateway, "embedding is a zero vector")
	ErrNoRowReturned        = New(CategoryPersistence, http.StatusInternalServerError, "insert returned no row")
	ErrJobNotFound          = New(CategoryNotFound, http.StatusNotFound, "job not found")
	ErrAsyncUploadsDisabled = New(CategoryNotFound, http.StatusNotFound, "async uploads are not enabled")
)
