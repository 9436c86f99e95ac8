package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pablobfonseca/go-room-qa/errs"
	"github.com/pablobfonseca/go-room-qa/models"
	"github.com/pablobfonseca/go-room-qa/queue"
	"github.com/pablobfonseca/go-room-qa/rooms"
)

// multipart headers and boundaries on top of the audio itself
const multipartOverhead = 1 << 20

type createQuestionRequest struct {
	Question *string `json:"question"`
}

type createQuestionResponse struct {
	IDQuestion uuid.UUID `json:"idQuestion"`
	Answer     *string   `json:"answer"`
}

type uploadAudioResponse struct {
	IDChunck uuid.UUID `json:"idChunck"`
}

type enqueueAudioResponse struct {
	IDJob string `json:"idJob"`
}

type listQuestionsResponse struct {
	Questions []models.Question `json:"questions"`
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == nil {
		writeError(w, errs.ErrInvalidRequestBody)
		return
	}

	result, err := h.rooms.CreateQuestion(r.Context(), rooms.CreateQuestionInput{
		RoomID:   mux.Vars(r)["idRoom"],
		Question: *req.Question,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createQuestionResponse{
		IDQuestion: result.QuestionID,
		Answer:     result.Answer,
	})
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.rooms.ListQuestions(r.Context(), mux.Vars(r)["idRoom"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listQuestionsResponse{Questions: questions})
}

func (h *Handler) uploadAudio(w http.ResponseWriter, r *http.Request) {
	in, err := h.readAudio(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.rooms.UploadAudio(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadAudioResponse{IDChunck: result.ChunkID})
}

func (h *Handler) enqueueAudio(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, errs.ErrAsyncUploadsDisabled)
		return
	}

	in, err := h.readAudio(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	if verr := in.Validate(h.rooms.Policy()); verr != nil {
		writeError(w, verr)
		return
	}

	id, err := h.jobs.Enqueue(r.Context(), queue.Task{
		TaskType: queue.TaskTypeUploadAudio,
		RoomID:   in.RoomID,
		Audio:    in.Audio,
		MimeType: in.MimeType,
		Filename: in.Filename,
	})
	if err != nil {
		h.logger.Error("enqueue audio failed", slog.Any("error", err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, enqueueAudioResponse{IDJob: id})
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, errs.ErrAsyncUploadsDisabled)
		return
	}

	job, err := h.jobs.Job(r.Context(), mux.Vars(r)["idJob"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// readAudio streams the multipart body and keeps the first file part. A request
// that is not multipart or has no file part yields an input with nil Audio.
func (h *Handler) readAudio(w http.ResponseWriter, r *http.Request) (rooms.UploadAudioInput, error) {
	in := rooms.UploadAudioInput{RoomID: mux.Vars(r)["idRoom"]}
	maxBytes := h.rooms.Policy().MaxAudioBytes

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	reader, err := r.MultipartReader()
	if err != nil {
		return in, nil
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return in, nil
		}
		if err != nil {
			return in, bodyError(err)
		}

		if part.FileName() == "" {
			part.Close()
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
		part.Close()
		if err != nil {
			return in, bodyError(err)
		}
		if int64(len(data)) > maxBytes {
			return in, errs.ErrAudioTooLarge
		}

		in.Audio = data
		in.MimeType = part.Header.Get("Content-Type")
		in.Filename = part.FileName()
		return in, nil
	}
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errs.ErrAudioTooLarge
	}
	return errs.ErrInvalidRequestBody
}
