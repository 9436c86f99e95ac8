package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pablobfonseca/go-room-qa/config"
	"github.com/pablobfonseca/go-room-qa/errs"
	"github.com/redis/go-redis/v9"
)

const (
	AudioProcessingQueue = "audio_processing"

	TaskTypeUploadAudio = "upload_audio"
)

// Job statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Task struct {
	TaskID   string    `json:"task_id"`
	TaskType string    `json:"task_type"`
	RoomID   string    `json:"room_id"`
	Audio    []byte    `json:"audio"`
	MimeType string    `json:"mime_type"`
	Filename string    `json:"filename"`
	Created  time.Time `json:"created"`
}

// Job is the externally visible state of a task
type Job struct {
	ID     string         `json:"idJob"`
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
}

// Queue is a redis list of tasks plus per task status and result keys
type Queue struct {
	client *redis.Client
	name   string
	ttl    time.Duration
}

// Connect creates the redis client and checks that the server answers
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}

func New(client *redis.Client, name string, ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Queue{client: client, name: name, ttl: ttl}
}

func statusKey(taskID string) string {
	return fmt.Sprintf("job:%s:status", taskID)
}

func resultKey(taskID string) string {
	return fmt.Sprintf("job:%s:result", taskID)
}

// Enqueue appends the task and marks it pending. The generated id is returned.
func (q *Queue) Enqueue(ctx context.Context, task Task) (string, error) {
	task.TaskID = uuid.NewString()
	if task.TaskType == "" {
		task.TaskType = TaskTypeUploadAudio
	}
	task.Created = time.Now()

	taskJSON, err := json.Marshal(task)
	if err != nil {
		return "", err
	}

	// status and task land together, so a fast worker never finds a task
	// without a status. MULTI does not roll back, so a failed push drops the
	// status again instead of leaving a job pending forever.
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, statusKey(task.TaskID), StatusPending, q.ttl)
		pipe.RPush(ctx, q.name, taskJSON)
		return nil
	})
	if err != nil {
		q.client.Del(context.WithoutCancel(ctx), statusKey(task.TaskID))
		return "", err
	}

	return task.TaskID, nil
}

// Dequeue blocks up to timeout for a task. It returns nil, nil when none arrived.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	// Result contains queue name at index 0 and payload at index 1
	if len(result) < 2 {
		return nil, fmt.Errorf("invalid result format from redis")
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (q *Queue) SetStatus(ctx context.Context, taskID, status string) error {
	return q.client.Set(ctx, statusKey(taskID), status, q.ttl).Err()
}

// Status returns errs.ErrJobNotFound for unknown or expired tasks
func (q *Queue) Status(ctx context.Context, taskID string) (string, error) {
	status, err := q.client.Get(ctx, statusKey(taskID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errs.ErrJobNotFound
		}
		return "", err
	}

	return status, nil
}

func (q *Queue) StoreResult(ctx context.Context, taskID string, result map[string]any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return q.client.Set(ctx, resultKey(taskID), resultJSON, q.ttl).Err()
}

// Result returns nil, nil while the task has no stored result
func (q *Queue) Result(ctx context.Context, taskID string) (map[string]any, error) {
	resultJSON, err := q.client.Get(ctx, resultKey(taskID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (q *Queue) Job(ctx context.Context, taskID string) (*Job, error) {
	status, err := q.Status(ctx, taskID)
	if err != nil {
		return nil, err
	}

	result, err := q.Result(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return &Job{ID: taskID, Status: status, Result: result}, nil
}
