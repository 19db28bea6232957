package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"akx-gateway/internal/models"
)

// ExpirationWatchdog expires unpaid deposit orders. The primary path is
// the order.expire task armed at creation time; a periodic sweep backs
// it up for orders whose task was lost (scheduling failure, queue row
// deleted by an operator).
type ExpirationWatchdog struct {
	db     *gorm.DB
	orders *OrderService

	stopChan chan struct{}
	wg       sync.WaitGroup
	log      *logrus.Entry
}

// NewExpirationWatchdog creates the watchdog.
func NewExpirationWatchdog(db *gorm.DB, orders *OrderService) *ExpirationWatchdog {
	return &ExpirationWatchdog{
		db:       db,
		orders:   orders,
		stopChan: make(chan struct{}),
		log:      logrus.WithField("component", "expiry"),
	}
}

// HandleTask is the order.expire task handler. Orders that already left
// pending make this a successful no-op, so re-delivery is safe.
func (w *ExpirationWatchdog) HandleTask(ctx context.Context, task *models.QueueTask) error {
	var payload OrderTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		return fmt.Errorf("bad expiration task payload: %w", err)
	}
	return w.orders.ExpireOrder(ctx, payload.OrderNo)
}

// Start launches the backup sweep loop.
func (w *ExpirationWatchdog) Start() {
	w.wg.Add(1)
	go w.sweepLoop()
	w.log.Info("expiration watchdog started")
}

// Stop halts the sweep loop.
func (w *ExpirationWatchdog) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	w.log.Info("expiration watchdog stopped")
}

func (w *ExpirationWatchdog) sweepLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			if err := w.sweep(); err != nil {
				w.log.Errorf("expiration sweep failed: %v", err)
			}
		}
	}
}

// sweep expires pending deposits whose deadline passed more than a grace
// period ago. The grace keeps the sweep from racing freshly due tasks.
func (w *ExpirationWatchdog) sweep() error {
	grace := 2 * time.Minute
	cutoff := time.Now().Add(-grace)

	var stale []models.Order
	err := w.db.
		Where("order_type = ? AND status = ? AND expire_time IS NOT NULL AND expire_time < ?",
			models.OrderTypeDeposit, models.OrderStatusPending, cutoff).
		Limit(100).
		Find(&stale).Error
	if err != nil {
		return err
	}

	for _, order := range stale {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := w.orders.ExpireOrder(ctx, order.OrderNo); err != nil {
			w.log.WithField("order_no", order.OrderNo).Errorf("sweep expiration failed: %v", err)
		}
		cancel()
	}
	if len(stale) > 0 {
		w.log.WithField("count", len(stale)).Warn("backup sweep expired overdue deposits")
	}
	return nil
}
