package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"akx-gateway/internal/chains"
	"akx-gateway/internal/config"
	"akx-gateway/internal/events"
	"akx-gateway/internal/metrics"
	"akx-gateway/internal/models"
	"akx-gateway/internal/repository"
	"akx-gateway/internal/utils"
)

// Task types executed by the background queue.
const (
	TaskTypeCallbackSend = "callback.send"
	TaskTypeOrderExpire  = "order.expire"
)

// OrderTaskPayload is the payload of both order task types.
type OrderTaskPayload struct {
	OrderNo string `json:"order_no"`
}

// TaskScheduler is the slice of the task queue the services need.
type TaskScheduler interface {
	Schedule(ctx context.Context, taskType, taskKey string, payload interface{}, delay time.Duration) (string, error)
}

// DepositRequest carries the validated input of a deposit creation.
type DepositRequest struct {
	OutTradeNo  string
	Token       string
	Chain       string
	Amount      decimal.Decimal
	CallbackURL string
	ExtraData   string
}

// WithdrawRequest carries the validated input of a withdrawal creation.
type WithdrawRequest struct {
	OutTradeNo  string
	Token       string
	Chain       string
	Amount      decimal.Decimal
	ToAddress   string
	CallbackURL string
	ExtraData   string
}

// OrderService orchestrates order creation, duplicate rejection, balance
// reservation and status transitions. It is the only component that
// mutates orders and merchant balances.
type OrderService struct {
	orders      repository.OrderRepository
	wallets     repository.WalletRepository
	tokenChains repository.TokenChainRepository
	fees        *FeeEvaluator
	registry    *chains.Registry
	scheduler   TaskScheduler
	publisher   events.Publisher
	cfg         config.OrdersConfig
	log         *logrus.Entry
}

// NewOrderService creates the order service.
func NewOrderService(
	orders repository.OrderRepository,
	wallets repository.WalletRepository,
	tokenChains repository.TokenChainRepository,
	fees *FeeEvaluator,
	registry *chains.Registry,
	scheduler TaskScheduler,
	publisher events.Publisher,
	cfg config.OrdersConfig,
) *OrderService {
	return &OrderService{
		orders:      orders,
		wallets:     wallets,
		tokenChains: tokenChains,
		fees:        fees,
		registry:    registry,
		scheduler:   scheduler,
		publisher:   publisher,
		cfg:         cfg,
		log:         logrus.WithField("component", "orders"),
	}
}

// CreateDeposit creates a pending deposit order, allocates a receive
// wallet and arms the expiration task.
func (s *OrderService) CreateDeposit(ctx context.Context, merchant *models.Merchant, req DepositRequest) (*models.Order, error) {
	if err := s.rejectDuplicateRef(ctx, merchant.ID, req.OutTradeNo, models.OrderTypeDeposit); err != nil {
		return nil, err
	}

	pair, err := s.requireEnabledPair(ctx, req.Token, req.Chain, models.OrderTypeDeposit)
	if err != nil {
		return nil, err
	}

	wallet, err := s.wallets.AllocateDeposit(ctx, req.Chain, req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrNoAvailableWallet) {
			metrics.OrderCreationRejected.WithLabelValues(string(models.OrderTypeDeposit), CodeNoAvailableAddress).Inc()
			return nil, NewAPIError(CodeNoAvailableAddress, "no deposit address available")
		}
		return nil, fmt.Errorf("wallet allocation failed: %w", err)
	}

	if pair.MinDeposit.IsPositive() && req.Amount.LessThan(pair.MinDeposit) {
		metrics.OrderCreationRejected.WithLabelValues(string(models.OrderTypeDeposit), CodeAmountTooSmall).Inc()
		return nil, NewAPIError(CodeAmountTooSmall,
			fmt.Sprintf("amount below minimum deposit of %s", pair.MinDeposit.String()))
	}

	expiry := s.depositExpiry(merchant)
	expireTime := time.Now().Add(expiry)

	order := &models.Order{
		OrderNo:       utils.GenerateOrderNo(),
		OutTradeNo:    req.OutTradeNo,
		OrderType:     models.OrderTypeDeposit,
		MerchantID:    merchant.ID,
		Token:         req.Token,
		Chain:         req.Chain,
		Amount:        req.Amount,
		Fee:           decimal.Zero,
		NetAmount:     req.Amount,
		Status:        models.OrderStatusPending,
		WalletAddress: wallet.Address,
		CallbackURL:   req.CallbackURL,
		ExtraData:     req.ExtraData,
		ExpireTime:    &expireTime,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateReference) {
			metrics.OrderCreationRejected.WithLabelValues(string(models.OrderTypeDeposit), CodeDuplicateRef).Inc()
			return nil, NewAPIError(CodeDuplicateRef, "out_trade_no already used")
		}
		return nil, fmt.Errorf("failed to persist deposit order: %w", err)
	}

	if _, err := s.scheduler.Schedule(ctx, TaskTypeOrderExpire, order.OrderNo,
		OrderTaskPayload{OrderNo: order.OrderNo}, expiry); err != nil {
		// the order stands; stuck-pending orders surface via reconciliation
		s.log.WithField("order_no", order.OrderNo).Errorf("failed to schedule expiration: %v", err)
	}

	metrics.OrdersCreated.WithLabelValues(string(models.OrderTypeDeposit), req.Chain, req.Token).Inc()
	s.log.WithFields(logrus.Fields{
		"order_no":    order.OrderNo,
		"merchant_id": merchant.ID,
		"amount":      req.Amount.String(),
		"wallet":      wallet.Address,
		"expire_time": expireTime.Format(time.RFC3339),
	}).Info("deposit order created")
	return order, nil
}

// CreateWithdraw creates a pending withdrawal order, debiting
// amount+fee from the merchant inside one transaction.
func (s *OrderService) CreateWithdraw(ctx context.Context, merchant *models.Merchant, req WithdrawRequest) (*models.Order, error) {
	if err := s.rejectDuplicateRef(ctx, merchant.ID, req.OutTradeNo, models.OrderTypeWithdraw); err != nil {
		return nil, err
	}

	pair, err := s.requireEnabledPair(ctx, req.Token, req.Chain, models.OrderTypeWithdraw)
	if err != nil {
		return nil, err
	}

	if !s.validAddress(req.Chain, req.ToAddress) {
		metrics.OrderCreationRejected.WithLabelValues(string(models.OrderTypeWithdraw), CodeInvalidAddress).Inc()
		return nil, NewAPIError(CodeInvalidAddress, "destination address is not valid for this chain")
	}

	if pair.MinWithdrawal.IsPositive() && req.Amount.LessThan(pair.MinWithdrawal) {
		metrics.OrderCreationRejected.WithLabelValues(string(models.OrderTypeWithdraw), CodeAmountTooSmall).Inc()
		return nil, NewAPIError(CodeAmountTooSmall,
			fmt.Sprintf("amount below minimum withdrawal of %s", pair.MinWithdrawal.String()))
	}

	fee, err := s.fees.WithdrawFee(ctx, merchant, pair, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("fee resolution failed: %w", err)
	}

	order := &models.Order{
		OrderNo:     utils.GenerateOrderNo(),
		OutTradeNo:  req.OutTradeNo,
		OrderType:   models.OrderTypeWithdraw,
		MerchantID:  merchant.ID,
		Token:       req.Token,
		Chain:       req.Chain,
		Amount:      req.Amount,
		Fee:         fee,
		NetAmount:   req.Amount.Sub(fee),
		Status:      models.OrderStatusPending,
		ToAddress:   req.ToAddress,
		CallbackURL: req.CallbackURL,
		ExtraData:   req.ExtraData,
	}

	if err := s.orders.CreateWithdrawal(ctx, order); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			metrics.OrderCreationRejected.WithLabelValues(string(models.OrderTypeWithdraw), CodeInsufficientBalance).Inc()
			return nil, NewAPIError(CodeInsufficientBalance, "balance and credit limit cannot cover amount plus fee")
		case errors.Is(err, repository.ErrDuplicateReference):
			metrics.OrderCreationRejected.WithLabelValues(string(models.OrderTypeWithdraw), CodeDuplicateRef).Inc()
			return nil, NewAPIError(CodeDuplicateRef, "out_trade_no already used")
		}
		return nil, fmt.Errorf("failed to persist withdrawal order: %w", err)
	}

	metrics.OrdersCreated.WithLabelValues(string(models.OrderTypeWithdraw), req.Chain, req.Token).Inc()
	s.log.WithFields(logrus.Fields{
		"order_no":    order.OrderNo,
		"merchant_id": merchant.ID,
		"amount":      req.Amount.String(),
		"fee":         fee.String(),
		"to_address":  req.ToAddress,
	}).Info("withdrawal order created")
	return order, nil
}

// UpdateOrderStatus applies a status transition reported by the chain
// monitor. Terminal statuses stamp completed_at, schedule the merchant
// callback and publish the lifecycle event -- all only when this call
// actually performed the transition.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderNo string, newStatus models.OrderStatus, txHash string, confirmations *int) error {
	transitioned, err := s.orders.TransitionStatus(ctx, orderNo, newStatus, txHash, confirmations)
	if err != nil {
		return err
	}
	if !transitioned {
		s.log.WithFields(logrus.Fields{
			"order_no": orderNo,
			"status":   newStatus,
		}).Info("transition skipped, order already terminal")
		return nil
	}

	metrics.OrderTransitions.WithLabelValues(string(newStatus)).Inc()

	if newStatus.IsTerminal() {
		s.notifyTerminal(ctx, orderNo, newStatus)
	}
	return nil
}

// ExpireOrder is the watchdog entry point. Orders no longer pending make
// it a successful no-op, which keeps duplicate firings harmless.
func (s *OrderService) ExpireOrder(ctx context.Context, orderNo string) error {
	order, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithField("order_no", orderNo).Warn("expiration fired for unknown order")
			return nil
		}
		return err
	}
	if order.Status != models.OrderStatusPending {
		return nil
	}

	transitioned, err := s.orders.TransitionStatus(ctx, orderNo, models.OrderStatusExpired, "", nil)
	if err != nil {
		return err
	}
	if !transitioned {
		// lost the race against a confirmation update
		return nil
	}

	metrics.OrdersExpired.Inc()
	metrics.OrderTransitions.WithLabelValues(string(models.OrderStatusExpired)).Inc()
	s.log.WithField("order_no", orderNo).Info("deposit order expired")

	s.notifyTerminal(ctx, orderNo, models.OrderStatusExpired)
	return nil
}

// GetOrder fetches an order by order_no for the owning merchant.
func (s *OrderService) GetOrder(ctx context.Context, merchant *models.Merchant, orderNo string) (*models.Order, error) {
	order, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewAPIError(CodeOrderNotFound, "order not found")
		}
		return nil, err
	}
	if order.MerchantID != merchant.ID {
		return nil, NewAPIError(CodeOrderNotFound, "order not found")
	}
	return order, nil
}

// GetOrderByRef fetches an order by the merchant's own reference.
func (s *OrderService) GetOrderByRef(ctx context.Context, merchant *models.Merchant, outTradeNo string, orderType models.OrderType) (*models.Order, error) {
	order, err := s.orders.GetByOutTradeNo(ctx, merchant.ID, outTradeNo, orderType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewAPIError(CodeOrderNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

// notifyTerminal runs after the transition committed: the callback task
// and the side-channel event never precede the durable state change.
func (s *OrderService) notifyTerminal(ctx context.Context, orderNo string, status models.OrderStatus) {
	if _, err := s.scheduler.Schedule(ctx, TaskTypeCallbackSend, orderNo,
		OrderTaskPayload{OrderNo: orderNo}, 0); err != nil {
		s.log.WithField("order_no", orderNo).Errorf("failed to schedule callback: %v", err)
	}

	order, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		s.log.WithField("order_no", orderNo).Errorf("failed to load order for event publish: %v", err)
		return
	}
	switch status {
	case models.OrderStatusExpired:
		s.publisher.PublishOrderExpired(order)
	default:
		s.publisher.PublishOrderCompleted(order)
	}
}

func (s *OrderService) rejectDuplicateRef(ctx context.Context, merchantID uint, outTradeNo string, orderType models.OrderType) error {
	exists, err := s.orders.ReferenceExists(ctx, merchantID, outTradeNo)
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if exists {
		metrics.OrderCreationRejected.WithLabelValues(string(orderType), CodeDuplicateRef).Inc()
		return NewAPIError(CodeDuplicateRef, "out_trade_no already used")
	}
	return nil
}

func (s *OrderService) requireEnabledPair(ctx context.Context, token, chain string, orderType models.OrderType) (*models.TokenChainSupport, error) {
	pair, err := s.tokenChains.GetEnabledPair(ctx, token, chain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.OrderCreationRejected.WithLabelValues(string(orderType), CodeInvalidTokenChain).Inc()
			return nil, NewAPIError(CodeInvalidTokenChain, "token/chain pair not supported")
		}
		return nil, fmt.Errorf("pair lookup failed: %w", err)
	}
	return pair, nil
}

// validAddress delegates to the chain implementation when the chain is
// in the closed set; unknown chains validate permissively.
func (s *OrderService) validAddress(chain, addr string) bool {
	if addr == "" {
		return false
	}
	impl, err := s.registry.ForCode(chain)
	if err != nil {
		return true
	}
	return impl.ValidateAddress(addr)
}

func (s *OrderService) depositExpiry(merchant *models.Merchant) time.Duration {
	if merchant.DepositExpirySeconds > 0 {
		return time.Duration(merchant.DepositExpirySeconds) * time.Second
	}
	return time.Duration(s.cfg.DepositExpirySeconds) * time.Second
}
