package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"akx-gateway/internal/models"
	"akx-gateway/internal/repository"
)

// In-memory repository fakes shared by the service tests. They mirror
// the contract of the real implementations, including the sticky
// terminal-status guard and the balance debit inside order creation.

type fakeMerchantRepo struct {
	mu        sync.Mutex
	merchants map[uint]*models.Merchant
}

func newFakeMerchantRepo(merchants ...*models.Merchant) *fakeMerchantRepo {
	r := &fakeMerchantRepo{merchants: make(map[uint]*models.Merchant)}
	for _, m := range merchants {
		r.merchants[m.ID] = m
	}
	return r
}

func (r *fakeMerchantRepo) GetByID(ctx context.Context, id uint) (*models.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMerchantRepo) GetActiveByID(ctx context.Context, id uint) (*models.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok || !m.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMerchantRepo) balance(id uint) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.merchants[id].Balance
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	merchants *fakeMerchantRepo
}

func newFakeOrderRepo(merchants *fakeMerchantRepo) *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:    make(map[string]*models.Order),
		merchants: merchants,
	}
}

func (r *fakeOrderRepo) put(order *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.OrderNo] = &cp
}

func (r *fakeOrderRepo) get(orderNo string) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[orderNo]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (r *fakeOrderRepo) duplicateLocked(order *models.Order) bool {
	for _, o := range r.orders {
		if o.MerchantID == order.MerchantID && o.OutTradeNo == order.OutTradeNo && o.OrderType == order.OrderType {
			return true
		}
	}
	return false
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.duplicateLocked(order) {
		return repository.ErrDuplicateReference
	}
	cp := *order
	r.orders[order.OrderNo] = &cp
	return nil
}

func (r *fakeOrderRepo) CreateWithdrawal(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.merchants.mu.Lock()
	defer r.merchants.mu.Unlock()

	merchant, ok := r.merchants.merchants[order.MerchantID]
	if !ok {
		return gorm.ErrRecordNotFound
	}

	total := order.Amount.Add(order.Fee)
	if merchant.Balance.Add(merchant.CreditLimit).LessThan(total) {
		return repository.ErrInsufficientBalance
	}
	if r.duplicateLocked(order) {
		return repository.ErrDuplicateReference
	}

	merchant.Balance = merchant.Balance.Sub(total)
	cp := *order
	r.orders[order.OrderNo] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	o := r.get(orderNo)
	if o == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) GetByOutTradeNo(ctx context.Context, merchantID uint, outTradeNo string, orderType models.OrderType) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.MerchantID == merchantID && o.OutTradeNo == outTradeNo && o.OrderType == orderType {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) ReferenceExists(ctx context.Context, merchantID uint, outTradeNo string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.MerchantID == merchantID && o.OutTradeNo == outTradeNo {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) TransitionStatus(ctx context.Context, orderNo string, newStatus models.OrderStatus, txHash string, confirmations *int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok || o.Status.IsTerminal() {
		return false, nil
	}
	o.Status = newStatus
	if txHash != "" {
		o.TxHash = txHash
	}
	if confirmations != nil {
		o.Confirmations = *confirmations
	}
	if newStatus.IsTerminal() {
		now := time.Now()
		o.CompletedAt = &now
	}
	return true, nil
}

func (r *fakeOrderRepo) MarkCallbackSuccess(ctx context.Context, orderNo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	o.CallbackStatus = models.CallbackStatusSuccess
	o.LastCallbackAt = &now
	return nil
}

func (r *fakeOrderRepo) MarkCallbackFailure(ctx context.Context, orderNo string, retryCount int, terminal bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	o.CallbackRetryCount = retryCount
	o.LastCallbackAt = &now
	if terminal {
		o.CallbackStatus = models.CallbackStatusFailed
	}
	return nil
}

func (r *fakeOrderRepo) ResetCallback(ctx context.Context, orderNo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok || o.CallbackStatus != models.CallbackStatusFailed {
		return gorm.ErrRecordNotFound
	}
	o.CallbackStatus = models.CallbackStatusPending
	o.CallbackRetryCount = 0
	return nil
}

type fakeWalletRepo struct {
	mu      sync.Mutex
	wallets []*models.Wallet
	next    int
}

func newFakeWalletRepo(wallets ...*models.Wallet) *fakeWalletRepo {
	return &fakeWalletRepo{wallets: wallets}
}

func (r *fakeWalletRepo) AllocateDeposit(ctx context.Context, chain, token string) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for range r.wallets {
		w := r.wallets[r.next%len(r.wallets)]
		r.next++
		if w.Chain == chain && w.Token == token && w.IsActive {
			now := time.Now()
			w.LastUsedAt = &now
			cp := *w
			return &cp, nil
		}
	}
	return nil, repository.ErrNoAvailableWallet
}

type fakeTokenChainRepo struct {
	pairs map[string]*models.TokenChainSupport
}

func newFakeTokenChainRepo(pairs ...*models.TokenChainSupport) *fakeTokenChainRepo {
	r := &fakeTokenChainRepo{pairs: make(map[string]*models.TokenChainSupport)}
	for _, p := range pairs {
		r.pairs[p.Token+"/"+p.Chain] = p
	}
	return r
}

func (r *fakeTokenChainRepo) GetEnabledPair(ctx context.Context, token, chain string) (*models.TokenChainSupport, error) {
	p, ok := r.pairs[token+"/"+chain]
	if !ok || !p.Enabled {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeFeeConfigRepo struct {
	byID       map[uint]*models.FeeConfig
	defaultCfg *models.FeeConfig
}

func newFakeFeeConfigRepo(defaultCfg *models.FeeConfig, others ...*models.FeeConfig) *fakeFeeConfigRepo {
	r := &fakeFeeConfigRepo{byID: make(map[uint]*models.FeeConfig), defaultCfg: defaultCfg}
	if defaultCfg != nil {
		r.byID[defaultCfg.ID] = defaultCfg
	}
	for _, c := range others {
		r.byID[c.ID] = c
	}
	return r
}

func (r *fakeFeeConfigRepo) GetByID(ctx context.Context, id uint) (*models.FeeConfig, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeFeeConfigRepo) GetDefault(ctx context.Context) (*models.FeeConfig, error) {
	if r.defaultCfg == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r.defaultCfg
	return &cp, nil
}

type scheduledTask struct {
	TaskType string
	TaskKey  string
	Delay    time.Duration
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []scheduledTask
	err   error
}

func (s *fakeScheduler) Schedule(ctx context.Context, taskType, taskKey string, payload interface{}, delay time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.tasks = append(s.tasks, scheduledTask{TaskType: taskType, TaskKey: taskKey, Delay: delay})
	return "task-id", nil
}

func (s *fakeScheduler) scheduled() []scheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scheduledTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

type fakePublisher struct {
	mu        sync.Mutex
	completed []string
	expired   []string
	exhausted []string
}

func (p *fakePublisher) PublishOrderCompleted(order *models.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, order.OrderNo)
}

func (p *fakePublisher) PublishOrderExpired(order *models.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, order.OrderNo)
}

func (p *fakePublisher) PublishCallbackExhausted(order *models.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exhausted = append(p.exhausted, order.OrderNo)
}

func (p *fakePublisher) Close() {}
