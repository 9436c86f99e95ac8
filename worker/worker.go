package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pablobfonseca/go-room-qa/errs"
	"github.com/pablobfonseca/go-room-qa/metrics"
	"github.com/pablobfonseca/go-room-qa/queue"
	"github.com/pablobfonseca/go-room-qa/rooms"
)

// TaskQueue is the part of queue.Queue the workers need
type TaskQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Task, error)
	SetStatus(ctx context.Context, taskID, status string) error
	StoreResult(ctx context.Context, taskID string, result map[string]any) error
}

// AudioUploader runs the synchronous upload pipeline
type AudioUploader interface {
	UploadAudio(ctx context.Context, in rooms.UploadAudioInput) (rooms.UploadAudioResult, error)
}

// Worker represents a pool of goroutines processing upload tasks from a queue
type Worker struct {
	queue       TaskQueue
	uploader    AudioUploader
	numWorkers  int
	pollTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(q TaskQueue, uploader AudioUploader, numWorkers int, logger *slog.Logger, m *metrics.Metrics) *Worker {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:       q,
		uploader:    uploader,
		numWorkers:  numWorkers,
		pollTimeout: 5 * time.Second,
		logger:      logger,
		metrics:     m,
	}
}

// Start launches the workers. They run until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Info("starting workers", slog.Int("count", w.numWorkers))

	for i := range w.numWorkers {
		w.wg.Add(1)
		go w.processItems(ctx, i)
	}
}

// Stop signals the workers and waits for the task in flight of each to finish
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("all workers stopped")
}

func (w *Worker) processItems(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.logger.With(slog.Int("worker", workerID))
	log.Debug("worker started")

	for {
		if ctx.Err() != nil {
			return
		}

		task, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("error dequeueing task", slog.Any("error", err))
			sleep(ctx, time.Second)
			continue
		}

		if task == nil {
			continue
		}

		// a task taken off the queue is finished even during shutdown
		w.process(context.WithoutCancel(ctx), log, task)
	}
}

func (w *Worker) process(ctx context.Context, log *slog.Logger, task *queue.Task) {
	log = log.With(slog.String("task_id", task.TaskID), slog.String("task_type", task.TaskType))
	log.Info("processing task")

	if err := w.queue.SetStatus(ctx, task.TaskID, queue.StatusProcessing); err != nil {
		log.Error("error updating task status", slog.Any("error", err))
	}

	var result map[string]any
	var processErr error

	switch task.TaskType {
	case queue.TaskTypeUploadAudio:
		result, processErr = w.processUploadAudio(ctx, task)
	default:
		processErr = errs.Validation("unknown task type " + task.TaskType)
	}

	status := queue.StatusCompleted
	if processErr != nil {
		status = queue.StatusFailed
		result = failureResult(processErr)
		log.Error("error processing task", slog.Any("error", processErr))
	}

	if err := w.queue.SetStatus(ctx, task.TaskID, status); err != nil {
		log.Error("error updating task status", slog.Any("error", err))
	}
	if err := w.queue.StoreResult(ctx, task.TaskID, result); err != nil {
		log.Error("error storing task result", slog.Any("error", err))
	}

	w.metrics.RecordJob(status)
}

func (w *Worker) processUploadAudio(ctx context.Context, task *queue.Task) (map[string]any, error) {
	res, err := w.uploader.UploadAudio(ctx, rooms.UploadAudioInput{
		RoomID:   task.RoomID,
		Audio:    task.Audio,
		MimeType: task.MimeType,
		Filename: task.Filename,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"idChunck":      res.ChunkID.String(),
		"transcription": res.Transcription,
	}, nil
}

func failureResult(err error) map[string]any {
	category := "internal"
	message := "internal error"

	var e *errs.Error
	if errors.As(err, &e) {
		category = string(e.Category)
		message = e.Message
	}

	return map[string]any{
		"error":   category,
		"message": message,
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
