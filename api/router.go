package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pablobfonseca/go-room-qa/metrics"
	"github.com/pablobfonseca/go-room-qa/queue"
	"github.com/pablobfonseca/go-room-qa/rooms"
	"github.com/rs/cors"
)

// JobQueue backs the async upload endpoints
type JobQueue interface {
	Enqueue(ctx context.Context, task queue.Task) (string, error)
	Job(ctx context.Context, taskID string) (*queue.Job, error)
}

type Handler struct {
	rooms   *rooms.Service
	jobs    JobQueue
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler wires the handlers. jobs may be nil, which disables async uploads.
func NewHandler(service *rooms.Service, jobs JobQueue, logger *slog.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		rooms:   service,
		jobs:    jobs,
		logger:  logger,
		metrics: m,
	}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.observe)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	r.HandleFunc("/rooms/{idRoom}/questions", h.createQuestion).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{idRoom}/questions", h.listQuestions).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{idRoom}/audio", h.uploadAudio).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{idRoom}/audio/jobs", h.enqueueAudio).Methods(http.MethodPost)
	r.HandleFunc("/jobs/{idJob}", h.getJob).Methods(http.MethodGet)

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}

// HTTPHandler returns the router behind the CORS middleware
func (h *Handler) HTTPHandler(allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return c.Handler(h.Router())
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
