package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"akx-gateway/internal/config"
	"akx-gateway/internal/metrics"
	"akx-gateway/internal/models"
)

// Handler executes one claimed task. Execution is at-least-once, so
// handlers must check current state before acting. A returned error
// requeues the task with exponential backoff until the executor budget
// is spent.
type Handler func(ctx context.Context, task *models.QueueTask) error

// Queue is the database-backed delayed task queue. Rows move
// pending → processing → completed; handler errors push them back to
// pending with a later run_at, infrastructure restarts are absorbed by
// stuck-row recovery.
type Queue struct {
	db  *gorm.DB
	cfg config.TasksConfig

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	taskChan chan models.QueueTask
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewQueue creates the task queue. Handlers are registered before Start.
func NewQueue(db *gorm.DB, cfg config.TasksConfig) *Queue {
	return &Queue{
		db:       db,
		cfg:      cfg,
		handlers: make(map[string]Handler),
		taskChan: make(chan models.QueueTask, cfg.ClaimBatch),
		stopChan: make(chan struct{}),
	}
}

// Register binds a handler to a task type.
func (q *Queue) Register(taskType string, handler Handler) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[taskType] = handler
}

// Schedule persists a task to run after delay. The payload is stored as
// JSON; taskKey carries the order identifier for log correlation.
func (q *Queue) Schedule(ctx context.Context, taskType, taskKey string, payload interface{}, delay time.Duration) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := &models.QueueTask{
		ID:         uuid.New().String(),
		TaskType:   taskType,
		TaskKey:    taskKey,
		Payload:    string(data),
		Status:     models.QueueTaskStatusPending,
		RunAt:      time.Now().Add(delay),
		MaxRetries: 10,
	}

	if err := q.db.WithContext(ctx).Create(task).Error; err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	metrics.TasksScheduled.WithLabelValues(taskType).Inc()
	log.Printf("✅ [Queue] Task enqueued: ID=%s, Type=%s, Key=%s, RunAt=%s",
		task.ID, taskType, taskKey, task.RunAt.Format(time.RFC3339))
	return task.ID, nil
}

// Start recovers interrupted tasks and launches the claim loop plus the
// worker pool.
func (q *Queue) Start() {
	log.Printf("🚀 [Queue] Starting task queue: workers=%d, poll=%ds", q.cfg.Workers, q.cfg.PollSeconds)

	if err := q.recoverStuckTasks(); err != nil {
		log.Printf("❌ [Queue] Failed to recover stuck tasks: %v", err)
	}

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.wg.Add(1)
	go q.claimLoop()
}

// Stop drains the workers and waits for in-flight tasks.
func (q *Queue) Stop() {
	log.Printf("🛑 [Queue] Stopping task queue...")
	close(q.stopChan)
	q.wg.Wait()
	log.Printf("✅ [Queue] Task queue stopped")
}

func (q *Queue) claimLoop() {
	defer q.wg.Done()
	defer close(q.taskChan)

	ticker := time.NewTicker(time.Duration(q.cfg.PollSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopChan:
			return
		case <-ticker.C:
			claimed, err := q.claimBatch()
			if err != nil {
				log.Printf("❌ [Queue] Claim failed: %v", err)
				continue
			}
			for _, task := range claimed {
				select {
				case q.taskChan <- task:
				case <-q.stopChan:
					return
				}
			}
			if err := q.recoverStuckTasks(); err != nil {
				log.Printf("⚠️ [Queue] Stuck-task recovery failed: %v", err)
			}
			q.reportDepth()
		}
	}
}

// claimBatch moves due pending rows to processing under SKIP LOCKED so
// multiple gateway instances can share one queue table.
func (q *Queue) claimBatch() ([]models.QueueTask, error) {
	var claimed []models.QueueTask

	err := q.db.Transaction(func(tx *gorm.DB) error {
		var due []models.QueueTask
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND run_at <= ?", models.QueueTaskStatusPending, time.Now()).
			Order("run_at ASC").
			Limit(q.cfg.ClaimBatch).
			Find(&due).Error
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		ids := make([]string, 0, len(due))
		for _, t := range due {
			ids = append(ids, t.ID)
		}
		now := time.Now()
		if err := tx.Model(&models.QueueTask{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     models.QueueTaskStatusProcessing,
				"started_at": now,
			}).Error; err != nil {
			return err
		}
		claimed = due
		return nil
	})
	return claimed, err
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	log.Printf("👷 [Queue] Worker %d started", id)
	for task := range q.taskChan {
		q.execute(task)
	}
}

func (q *Queue) execute(task models.QueueTask) {
	q.handlersMu.RLock()
	handler, ok := q.handlers[task.TaskType]
	q.handlersMu.RUnlock()

	if !ok {
		log.Printf("❌ [Queue] No handler for task type %s (ID=%s), abandoning", task.TaskType, task.ID)
		q.abandon(&task, "no handler registered")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	err := handler(ctx, &task)
	metrics.TaskDuration.WithLabelValues(task.TaskType).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Printf("❌ [Queue] Task %s (%s, key=%s) failed: %v", task.ID, task.TaskType, task.TaskKey, err)
		q.requeue(&task, err.Error())
		return
	}

	now := time.Now()
	if dbErr := q.db.Model(&models.QueueTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":       models.QueueTaskStatusCompleted,
			"completed_at": now,
		}).Error; dbErr != nil {
		log.Printf("⚠️ [Queue] Failed to mark task %s completed: %v", task.ID, dbErr)
	}
	metrics.TaskExecutions.WithLabelValues(task.TaskType, "completed").Inc()
}

// requeue applies the executor backoff. This path covers infrastructure
// failures only; domain retry policy lives with the scheduling service.
func (q *Queue) requeue(task *models.QueueTask, errorMsg string) {
	task.RetryCount++
	if task.Exhausted() {
		q.abandon(task, errorMsg)
		return
	}

	nextRun := time.Now().Add(task.NextRetryDelay())
	if err := q.db.Model(&models.QueueTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":      models.QueueTaskStatusPending,
			"retry_count": task.RetryCount,
			"last_error":  errorMsg,
			"run_at":      nextRun,
		}).Error; err != nil {
		log.Printf("⚠️ [Queue] Failed to requeue task %s: %v", task.ID, err)
		return
	}
	metrics.TaskExecutions.WithLabelValues(task.TaskType, "requeued").Inc()
	log.Printf("🔄 [Queue] Task %s requeued (attempt %d/%d), next run at %s",
		task.ID, task.RetryCount, task.MaxRetries, nextRun.Format(time.RFC3339))
}

func (q *Queue) abandon(task *models.QueueTask, errorMsg string) {
	now := time.Now()
	if err := q.db.Model(&models.QueueTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":       models.QueueTaskStatusAbandoned,
			"retry_count":  task.RetryCount,
			"last_error":   errorMsg,
			"completed_at": now,
		}).Error; err != nil {
		log.Printf("⚠️ [Queue] Failed to abandon task %s: %v", task.ID, err)
		return
	}
	metrics.TaskExecutions.WithLabelValues(task.TaskType, "abandoned").Inc()
	log.Printf("🛑 [Queue] Task %s (%s) abandoned after %d attempts: %s",
		task.ID, task.TaskType, task.RetryCount, errorMsg)
}

func (q *Queue) reportDepth() {
	var pending int64
	if err := q.db.Model(&models.QueueTask{}).
		Where("status = ?", models.QueueTaskStatusPending).
		Count(&pending).Error; err != nil {
		return
	}
	metrics.TaskQueueDepth.Set(float64(pending))
}

// recoverStuckTasks resets processing rows whose worker died. Works on
// wall-clock age of started_at, so a restart picks them back up.
func (q *Queue) recoverStuckTasks() error {
	cutoff := time.Now().Add(-time.Duration(q.cfg.StuckMinutes) * time.Minute)

	result := q.db.Model(&models.QueueTask{}).
		Where("status = ? AND started_at < ?", models.QueueTaskStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status": models.QueueTaskStatusPending,
			"run_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reset stuck tasks: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("🔄 [Queue] Recovered %d stuck tasks", result.RowsAffected)
	}
	return nil
}
