package models

import "time"

// QueueTaskStatus background task status
type QueueTaskStatus string

const (
	QueueTaskStatusPending    QueueTaskStatus = "pending"
	QueueTaskStatusProcessing QueueTaskStatus = "processing"
	QueueTaskStatusCompleted  QueueTaskStatus = "completed"
	QueueTaskStatusAbandoned  QueueTaskStatus = "abandoned" // executor retry budget exhausted
)

// QueueTask is one row of the database-backed delayed task queue.
// Execution is at-least-once: handlers must tolerate re-delivery.
type QueueTask struct {
	ID       string          `json:"id" gorm:"primaryKey"` // UUID
	TaskType string          `json:"task_type" gorm:"size:64;not null;index"`
	TaskKey  string          `json:"task_key" gorm:"size:128;not null;index"` // order_no for order tasks
	Payload  string          `json:"payload" gorm:"type:jsonb;not null"`
	Status   QueueTaskStatus `json:"status" gorm:"size:16;not null;default:pending;index:idx_task_claim,priority:1"`

	RunAt time.Time `json:"run_at" gorm:"not null;index:idx_task_claim,priority:2"`

	// retries here cover executor infrastructure failures only; domain
	// retry policy (callback budgets) lives with the scheduling service
	RetryCount int    `json:"retry_count" gorm:"default:0"`
	MaxRetries int    `json:"max_retries" gorm:"default:10"`
	LastError  string `json:"last_error" gorm:"type:text"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (QueueTask) TableName() string {
	return "queue_tasks"
}

// NextRetryDelay doubles from a 10 second base and clamps at 7 days.
func (t *QueueTask) NextRetryDelay() time.Duration {
	baseDelay := 10 * time.Second

	delay := baseDelay * time.Duration(1<<uint(t.RetryCount))
	maxDelay := 7 * 24 * time.Hour

	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return delay
}

// Exhausted reports whether the executor retry budget is spent.
func (t *QueueTask) Exhausted() bool {
	return t.RetryCount >= t.MaxRetries
}
