package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"akx-gateway/internal/config"
	"akx-gateway/internal/metrics"
	"akx-gateway/internal/models"
)

// Subjects for order lifecycle events. Consumers are downstream systems
// (settlement, reconciliation dashboards); delivery is best-effort and
// never participates in the order state machine.
const (
	SubjectOrderCompleted    = "orders.completed"
	SubjectOrderExpired      = "orders.expired"
	SubjectCallbackExhausted = "callbacks.exhausted"
)

// Publisher emits lifecycle events after the corresponding database
// transition has committed.
type Publisher interface {
	PublishOrderCompleted(order *models.Order)
	PublishOrderExpired(order *models.Order)
	PublishCallbackExhausted(order *models.Order)
	Close()
}

type orderEvent struct {
	OrderNo    string `json:"order_no"`
	OutTradeNo string `json:"out_trade_no"`
	MerchantID uint   `json:"merchant_id"`
	OrderType  string `json:"order_type"`
	Token      string `json:"token"`
	Chain      string `json:"chain"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
	Timestamp  int64  `json:"timestamp"`
}

// natsPublisher publishes over a core NATS connection.
type natsPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to NATS and returns a publisher. When no URL
// is configured the caller should fall back to NewNoopPublisher.
func NewNATSPublisher(cfg config.NATSConfig) (Publisher, error) {
	opts := []nats.Option{
		nats.Name("akx-gateway"),
		nats.Timeout(time.Duration(cfg.Timeout) * time.Second),
		nats.ReconnectWait(time.Duration(cfg.ReconnectWait) * time.Second),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			metrics.NATSConnectionStatus.Set(0)
			log.Printf("⚠️ [NATS] Disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			metrics.NATSConnectionStatus.Set(1)
			log.Printf("✅ [NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	metrics.NATSConnectionStatus.Set(1)
	log.Printf("✅ [NATS] Connected to %s", cfg.URL)
	return &natsPublisher{conn: conn}, nil
}

func (p *natsPublisher) PublishOrderCompleted(order *models.Order) {
	p.publish(SubjectOrderCompleted, order)
}

func (p *natsPublisher) PublishOrderExpired(order *models.Order) {
	p.publish(SubjectOrderExpired, order)
}

func (p *natsPublisher) PublishCallbackExhausted(order *models.Order) {
	p.publish(SubjectCallbackExhausted, order)
}

func (p *natsPublisher) publish(subject string, order *models.Order) {
	event := orderEvent{
		OrderNo:    order.OrderNo,
		OutTradeNo: order.OutTradeNo,
		MerchantID: order.MerchantID,
		OrderType:  string(order.OrderType),
		Token:      order.Token,
		Chain:      order.Chain,
		Amount:     order.Amount.String(),
		Status:     string(order.Status),
		Timestamp:  time.Now().UnixMilli(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ [NATS] Failed to marshal event for order %s: %v", order.OrderNo, err)
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		metrics.EventsPublishFailed.WithLabelValues(subject).Inc()
		log.Printf("⚠️ [NATS] Failed to publish %s for order %s: %v", subject, order.OrderNo, err)
		return
	}
	metrics.EventsPublished.WithLabelValues(subject).Inc()
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

// noopPublisher is used when NATS is not configured.
type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishOrderCompleted(*models.Order)    {}
func (noopPublisher) PublishOrderExpired(*models.Order)      {}
func (noopPublisher) PublishCallbackExhausted(*models.Order) {}
func (noopPublisher) Close()                                 {}
