package app

import (
	"fmt"
	"log"

	"akx-gateway/internal/chains"
	"akx-gateway/internal/config"
	"akx-gateway/internal/db"
	"akx-gateway/internal/events"
	"akx-gateway/internal/handlers"
	"akx-gateway/internal/repository"
	"akx-gateway/internal/services"
	"akx-gateway/internal/tasks"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer holds every wired component of the gateway.
type ServiceContainer struct {
	Config config.Config
	Logger *logrus.Logger

	// Database
	DB *gorm.DB

	// Repositories
	OrderRepo      repository.OrderRepository
	MerchantRepo   repository.MerchantRepository
	WalletRepo     repository.WalletRepository
	TokenChainRepo repository.TokenChainRepository
	FeeConfigRepo  repository.FeeConfigRepository

	// Infrastructure
	Publisher     events.Publisher
	ChainRegistry *chains.Registry
	TaskQueue     *tasks.Queue

	// Core Services
	Auth       *services.SignatureAuthenticator
	Fees       *services.FeeEvaluator
	Orders     *services.OrderService
	Dispatcher *services.CallbackDispatcher
	Watchdog   *services.ExpirationWatchdog

	// Handlers
	PaymentHandler *handlers.PaymentHandler
	OpsHandler     *handlers.OpsHandler
}

// NewServiceContainer builds the full dependency graph from configuration.
func NewServiceContainer(cfg config.Config, logger *logrus.Logger) (*ServiceContainer, error) {
	log.Println("🚀 Initializing Service Container...")

	c := &ServiceContainer{
		Config: cfg,
		Logger: logger,
	}

	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	c.DB = database

	c.initRepositories()

	if err := c.initEventPublisher(); err != nil {
		return nil, err
	}

	c.initCoreServices()
	c.initHandlers()

	log.Println("✅ Service Container initialized successfully")
	return c, nil
}

func (c *ServiceContainer) initRepositories() {
	log.Println("📦 Initializing Repositories...")

	c.OrderRepo = repository.NewOrderRepository(c.DB)
	c.MerchantRepo = repository.NewMerchantRepository(c.DB)
	c.WalletRepo = repository.NewWalletRepository(c.DB)
	c.TokenChainRepo = repository.NewTokenChainRepository(c.DB)
	c.FeeConfigRepo = repository.NewFeeConfigRepository(c.DB)

	log.Println("✅ Repositories initialized")
}

func (c *ServiceContainer) initEventPublisher() error {
	if c.Config.NATS.URL == "" {
		log.Println("⚠️ NATS not configured, events will not be published")
		c.Publisher = events.NewNoopPublisher()
		return nil
	}

	log.Println("🔌 Connecting to NATS...")
	pub, err := events.NewNATSPublisher(c.Config.NATS)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", c.Config.NATS.URL, err)
	}
	c.Publisher = pub
	log.Printf("✅ NATS publisher connected: %s", c.Config.NATS.URL)
	return nil
}

func (c *ServiceContainer) initCoreServices() {
	log.Println("🔧 Initializing Core Services...")

	c.ChainRegistry = chains.NewRegistry(c.Config.Chains)
	c.TaskQueue = tasks.NewQueue(c.DB, c.Config.Tasks)

	c.Auth = services.NewSignatureAuthenticator(c.MerchantRepo, c.Config.AuthWindow())
	c.Fees = services.NewFeeEvaluator(c.FeeConfigRepo)

	c.Orders = services.NewOrderService(
		c.OrderRepo,
		c.WalletRepo,
		c.TokenChainRepo,
		c.Fees,
		c.ChainRegistry,
		c.TaskQueue,
		c.Publisher,
		c.Config.Orders,
	)

	c.Dispatcher = services.NewCallbackDispatcher(
		c.OrderRepo,
		c.MerchantRepo,
		c.TaskQueue,
		c.Publisher,
		c.Config.CallbackHTTPTimeout(),
		c.Config.Callback.DefaultMaxRetries,
	)

	c.Watchdog = services.NewExpirationWatchdog(c.DB, c.Orders)

	c.TaskQueue.Register(services.TaskTypeCallbackSend, c.Dispatcher.HandleTask)
	c.TaskQueue.Register(services.TaskTypeOrderExpire, c.Watchdog.HandleTask)

	log.Println("✅ Core Services initialized")
}

func (c *ServiceContainer) initHandlers() {
	c.PaymentHandler = handlers.NewPaymentHandler(c.Auth, c.Orders, c.Logger)
	c.OpsHandler = handlers.NewOpsHandler(c.Config.Ops, c.Dispatcher, c.Logger)
}

// Start launches the background workers.
func (c *ServiceContainer) Start() {
	c.TaskQueue.Start()
	c.Watchdog.Start()
}

// Cleanup stops background workers and closes external connections.
func (c *ServiceContainer) Cleanup() {
	log.Println("🧹 Cleaning up Service Container...")

	if c.Watchdog != nil {
		c.Watchdog.Stop()
	}
	if c.TaskQueue != nil {
		c.TaskQueue.Stop()
	}
	if c.Publisher != nil {
		c.Publisher.Close()
	}

	log.Println("✅ Service Container cleaned up")
}
