package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"akx-gateway/internal/events"
	"akx-gateway/internal/metrics"
	"akx-gateway/internal/models"
	"akx-gateway/internal/repository"
)

// retryIntervals is the delivery backoff table in seconds: 1m, 5m, 15m,
// 1h, 6h, 12h, 1d, 2d, 3d, 7d. Indexed by the failed-attempt count,
// clamped to the last entry.
var retryIntervals = []int64{60, 300, 900, 3600, 21600, 43200, 86400, 172800, 259200, 604800}

// hardRetryCap forces callback_status=failed once this many attempts
// failed, regardless of the per-merchant budget.
const hardRetryCap = 5

// CallbackPayload is the signed JSON document pushed to the merchant's
// callback URL. Monetary fields travel as decimal strings.
type CallbackPayload struct {
	MerchantNo    string  `json:"merchant_no"`
	OrderNo       string  `json:"order_no"`
	OutTradeNo    string  `json:"out_trade_no"`
	OrderType     string  `json:"order_type"`
	Token         string  `json:"token"`
	Chain         string  `json:"chain"`
	Amount        string  `json:"amount"`
	Fee           string  `json:"fee"`
	NetAmount     string  `json:"net_amount"`
	Status        string  `json:"status"`
	WalletAddress string  `json:"wallet_address"`
	ToAddress     string  `json:"to_address"`
	TxHash        string  `json:"tx_hash"`
	Confirmations int     `json:"confirmations"`
	CompletedAt   *string `json:"completed_at"`
	ExtraData     string  `json:"extra_data"`
	Timestamp     int64   `json:"timestamp"`
	Sign          string  `json:"sign"`
}

// CallbackDispatcher builds signed payloads and drives webhook delivery.
// It is the single retry authority: every delivery failure class,
// transport errors included, goes through its interval table and budget
// accounting. The task substrate's own backoff only covers failures of
// the executor itself (database unavailable).
type CallbackDispatcher struct {
	orders            repository.OrderRepository
	merchants         repository.MerchantRepository
	scheduler         TaskScheduler
	publisher         events.Publisher
	client            *http.Client
	defaultMaxRetries int
	log               *logrus.Entry
}

// NewCallbackDispatcher creates the dispatcher. httpTimeout bounds each
// delivery attempt; defaultMaxRetries backs merchants without their own
// budget.
func NewCallbackDispatcher(
	orders repository.OrderRepository,
	merchants repository.MerchantRepository,
	scheduler TaskScheduler,
	publisher events.Publisher,
	httpTimeout time.Duration,
	defaultMaxRetries int,
) *CallbackDispatcher {
	return &CallbackDispatcher{
		orders:            orders,
		merchants:         merchants,
		scheduler:         scheduler,
		publisher:         publisher,
		client:            &http.Client{Timeout: httpTimeout},
		defaultMaxRetries: defaultMaxRetries,
		log:               logrus.WithField("component", "callbacks"),
	}
}

// HandleTask is the callback.send task handler. Delivery failures are
// absorbed here (the dispatcher schedules its own retry); only errors
// that prevented the attempt from being accounted for propagate to the
// substrate.
func (d *CallbackDispatcher) HandleTask(ctx context.Context, task *models.QueueTask) error {
	var payload OrderTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		return fmt.Errorf("bad callback task payload: %w", err)
	}
	return d.Deliver(ctx, payload.OrderNo)
}

// Deliver performs one delivery attempt for the order's callback.
func (d *CallbackDispatcher) Deliver(ctx context.Context, orderNo string) error {
	order, err := d.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderNo, err)
	}
	if order.CallbackStatus != models.CallbackStatusPending {
		// success already acknowledged, or budget exhausted earlier
		return nil
	}

	merchant, err := d.merchants.GetByID(ctx, order.MerchantID)
	if err != nil {
		return fmt.Errorf("failed to load merchant %d: %w", order.MerchantID, err)
	}

	payload := d.BuildPayload(order, merchant)
	ok, attemptErr := d.attempt(ctx, order.CallbackURL, payload)
	if ok {
		if err := d.orders.MarkCallbackSuccess(ctx, orderNo); err != nil {
			return fmt.Errorf("failed to record callback success: %w", err)
		}
		metrics.CallbackAttempts.WithLabelValues("success").Inc()
		d.log.WithFields(logrus.Fields{
			"order_no": orderNo,
			"attempt":  order.CallbackRetryCount + 1,
		}).Info("callback acknowledged")
		return nil
	}

	metrics.CallbackAttempts.WithLabelValues("failure").Inc()
	return d.recordFailure(ctx, order, merchant, attemptErr)
}

// recordFailure increments the counter and either schedules the next
// attempt or marks the callback permanently failed.
func (d *CallbackDispatcher) recordFailure(ctx context.Context, order *models.Order, merchant *models.Merchant, cause error) error {
	count := order.CallbackRetryCount + 1
	maxRetries := d.effectiveMaxRetries(merchant)

	terminal := count >= hardRetryCap || count > maxRetries || count >= len(retryIntervals)

	if err := d.orders.MarkCallbackFailure(ctx, order.OrderNo, count, terminal); err != nil {
		return fmt.Errorf("failed to record callback failure: %w", err)
	}

	logEntry := d.log.WithFields(logrus.Fields{
		"order_no": order.OrderNo,
		"attempt":  count,
		"cause":    fmt.Sprint(cause),
	})

	if terminal {
		metrics.CallbacksExhausted.Inc()
		logEntry.Warn("callback retry budget exhausted, giving up")
		order.CallbackStatus = models.CallbackStatusFailed
		order.CallbackRetryCount = count
		d.publisher.PublishCallbackExhausted(order)
		return nil
	}

	idx := count
	if idx >= len(retryIntervals) {
		idx = len(retryIntervals) - 1
	}
	delay := time.Duration(retryIntervals[idx]) * time.Second

	if _, err := d.scheduler.Schedule(ctx, TaskTypeCallbackSend, order.OrderNo,
		OrderTaskPayload{OrderNo: order.OrderNo}, delay); err != nil {
		return fmt.Errorf("failed to schedule callback retry: %w", err)
	}
	logEntry.WithField("next_in", delay.String()).Info("callback attempt failed, retry scheduled")
	return nil
}

// attempt POSTs the payload and applies the acknowledgement rule:
// HTTP 200 and a body containing "ok" or "success", case-insensitively.
func (d *CallbackDispatcher) attempt(ctx context.Context, url string, payload CallbackPayload) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.CallbackDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return false, err
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	ack := strings.ToLower(strings.TrimSpace(string(respBody)))
	if strings.Contains(ack, "ok") || strings.Contains(ack, "success") {
		return true, nil
	}
	return false, fmt.Errorf("unacknowledged response body %q", ack)
}

// BuildPayload assembles and signs the callback document. The signature
// covers merchant_no+order_no+status+amount with the order-type key.
func (d *CallbackDispatcher) BuildPayload(order *models.Order, merchant *models.Merchant) CallbackPayload {
	var completedAt *string
	if order.CompletedAt != nil {
		v := order.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &v
	}

	payload := CallbackPayload{
		MerchantNo:    merchant.MerchantNo(),
		OrderNo:       order.OrderNo,
		OutTradeNo:    order.OutTradeNo,
		OrderType:     string(order.OrderType),
		Token:         order.Token,
		Chain:         order.Chain,
		Amount:        order.Amount.String(),
		Fee:           order.Fee.String(),
		NetAmount:     order.NetAmount.String(),
		Status:        string(order.Status),
		WalletAddress: order.WalletAddress,
		ToAddress:     order.ToAddress,
		TxHash:        order.TxHash,
		Confirmations: order.Confirmations,
		CompletedAt:   completedAt,
		ExtraData:     order.ExtraData,
		Timestamp:     time.Now().UnixMilli(),
	}

	message := payload.MerchantNo + payload.OrderNo + payload.Status + payload.Amount
	payload.Sign = SignMessage(merchant.SigningKey(order.OrderType), message)
	return payload
}

// Requeue re-arms automatic delivery for a permanently failed callback
// and schedules an immediate attempt. Operator path only.
func (d *CallbackDispatcher) Requeue(ctx context.Context, orderNo string) error {
	if err := d.orders.ResetCallback(ctx, orderNo); err != nil {
		return err
	}
	if _, err := d.scheduler.Schedule(ctx, TaskTypeCallbackSend, orderNo,
		OrderTaskPayload{OrderNo: orderNo}, 0); err != nil {
		return fmt.Errorf("failed to schedule requeued callback: %w", err)
	}
	d.log.WithField("order_no", orderNo).Info("callback requeued by operator")
	return nil
}

func (d *CallbackDispatcher) effectiveMaxRetries(merchant *models.Merchant) int {
	if merchant.CallbackMaxRetries > 0 {
		return merchant.CallbackMaxRetries
	}
	return d.defaultMaxRetries
}
