package rooms

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pablobfonseca/go-room-qa/errs"
)

type UploadAudioInput struct {
	RoomID   string
	Audio    []byte
	MimeType string
	Filename string
}

type UploadAudioResult struct {
	ChunkID       uuid.UUID
	Transcription string
}

type CreateQuestionInput struct {
	RoomID   string
	Question string
}

type CreateQuestionResult struct {
	QuestionID uuid.UUID
	Answer     *string
}

// Validate checks the upload before anything is sent to the AI services.
// A nil Audio means the request carried no file at all.
func (in UploadAudioInput) Validate(policy Policy) *errs.Error {
	if strings.TrimSpace(in.RoomID) == "" {
		return errs.ErrRoomIdEmpty
	}
	if in.Audio == nil {
		return errs.ErrAudioRequired
	}
	if len(in.Audio) == 0 {
		return errs.ErrAudioEmpty
	}
	if policy.MaxAudioBytes > 0 && int64(len(in.Audio)) > policy.MaxAudioBytes {
		return errs.ErrAudioTooLarge
	}
	return nil
}

func (in CreateQuestionInput) Validate(policy Policy) *errs.Error {
	if strings.TrimSpace(in.RoomID) == "" {
		return errs.ErrRoomIdEmpty
	}
	if len(in.Question) < 1 {
		return errs.ErrQuestionEmpty
	}
	if policy.MaxQuestionLength > 0 && utf8.RuneCountInString(in.Question) > policy.MaxQuestionLength {
		return errs.ErrQuestionTooLong
	}
	return nil
}
