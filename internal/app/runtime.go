package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/notify"
	"storefront/pkg/payment"
	"storefront/pkg/rabbitmq"
)

// Runtime holds every constructed dependency of the storefront.
type Runtime struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *gorm.DB
	Redis *redis.Client
	MQ    *rabbitmq.Client

	Processor payment.Processor
	Breaker   *payment.BreakerProcessor
	Verifier  payment.EventVerifier
	// Sandbox is set when no processor credentials are configured.
	Sandbox *payment.SandboxProcessor

	// Delivery sends notifications directly; Notifier may enqueue them instead.
	Delivery notify.Notifier
	Notifier notify.Notifier

	Tokens   *services.TokenIssuer
	Catalog  *services.CatalogService
	Carts    *services.CartService
	Orders   *services.OrderService
	Leads    *services.LeadService
	Checkout *services.CheckoutService
}

// Build connects to the configured stores and wires the services.
func Build(cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	r := &Runtime{Config: cfg, Logger: logger}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	r.DB = db
	if err := database.Migrate(db, cfg.DatabaseDriver); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	var (
		cartRepo repositories.CartRepository = repositories.NewMemoryCartRepository()
		keyStore repositories.IntentKeyStore = repositories.NewMemoryIntentKeyStore()
	)
	if cfg.RedisAddr != "" {
		r.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := r.Redis.Ping(context.Background()).Err(); err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cartRepo = repositories.NewRedisCartRepository(r.Redis, cfg.CartTTL)
		keyStore = repositories.NewRedisIntentKeyStore(r.Redis)
	}

	r.buildProcessor()
	if err := r.buildNotifiers(); err != nil {
		r.Close()
		return nil, err
	}

	secret := cfg.CheckoutTokenSecret
	if secret == "" {
		secret = uuid.New().String()
		logger.Warn("CHECKOUT_TOKEN_SECRET not set, checkout tokens will not survive a restart")
	}
	r.Tokens = services.NewTokenIssuer(secret, cfg.CheckoutTokenTTL)

	r.Catalog = services.NewCatalogService(repositories.NewStaticCatalogRepository(models.DefaultCatalog()))
	r.Carts = services.NewCartService(cartRepo, r.Catalog)

	notifications := services.NewNotificationService(r.Notifier,
		services.Contact{Email: cfg.BusinessEmail, Phone: cfg.BusinessPhone}, cfg.NotifyTimeout)
	r.Orders = services.NewOrderService(repositories.NewGORMOrderRepository(db), notifications, logger)
	r.Leads = services.NewLeadService(repositories.NewGORMLeadRepository(db), notifications, logger)

	pricing := services.NewPricingService(r.Processor, services.PricingConfig{
		Floor:    cfg.Floor(),
		Currency: cfg.Currency(),
		Timeout:  cfg.PaymentTimeout,
	}, logger)
	r.Checkout = services.NewCheckoutService(
		r.Catalog,
		pricing,
		r.Carts,
		r.Orders,
		r.Tokens,
		r.Processor,
		repositories.NewGORMCheckoutAttemptRepository(db),
		keyStore,
		services.CheckoutConfig{
			IdempotencyWindow: cfg.IdempotencyWindow,
			ProcessorTimeout:  cfg.PaymentTimeout,
		},
		logger,
	)

	return r, nil
}

func (r *Runtime) buildProcessor() {
	var next payment.Processor
	if r.Config.StripeSecretKey != "" {
		stripe := payment.NewStripeProcessor(payment.StripeConfig{
			SecretKey:     r.Config.StripeSecretKey,
			WebhookSecret: r.Config.StripeWebhookSecret,
		})
		next, r.Verifier = stripe, stripe
	} else {
		r.Sandbox = payment.NewSandboxProcessor()
		next, r.Verifier = r.Sandbox, r.Sandbox
		r.Logger.Warn("STRIPE_SECRET_KEY not set, using the sandbox payment processor")
	}

	r.Breaker = payment.NewBreakerProcessor(next, payment.BreakerConfig{
		ConsecutiveFailures: r.Config.BreakerFailures,
		OpenTimeout:         r.Config.BreakerOpenTimeout,
	})
	r.Processor = r.Breaker
}

func (r *Runtime) buildNotifiers() error {
	var delivery notify.MultiNotifier
	if r.Config.MailEnabled() {
		delivery = append(delivery, notify.NewMailNotifier(notify.MailConfig{
			Host:     r.Config.SMTPHost,
			Port:     r.Config.SMTPPort,
			Username: r.Config.SMTPUser,
			Password: r.Config.SMTPPassword,
			From:     r.Config.MailFrom,
		}))
	}
	if r.Config.SMSEnabled() {
		delivery = append(delivery, notify.NewSMSNotifier(notify.SMSConfig{
			AccountSID: r.Config.TwilioAccountSID,
			AuthToken:  r.Config.TwilioAuthToken,
			From:       r.Config.TwilioFromNumber,
		}))
	}
	if len(delivery) == 0 {
		delivery = append(delivery, notify.LogNotifier{Logger: r.Logger})
	}
	r.Delivery = delivery
	r.Notifier = delivery

	if r.Config.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: r.Config.RabbitMQURL}, r.Logger)
		if err != nil {
			return err
		}
		r.MQ = mq
		r.Notifier = notify.NewQueueNotifier(mq, rabbitmq.NotificationQueue)
	}
	return nil
}

// RunWorker delivers queued notifications until ctx is done.
func (r *Runtime) RunWorker(ctx context.Context) error {
	if r.MQ == nil {
		return errors.New("RABBITMQ_URL is not configured")
	}
	worker := notify.NewWorker(r.Delivery, r.Config.NotifyTimeout, r.Logger)
	return r.MQ.Consume(ctx, rabbitmq.NotificationQueue, worker.Handle)
}

// Close releases every connection the runtime opened.
func (r *Runtime) Close() error {
	var errs []error
	if r.MQ != nil {
		errs = append(errs, r.MQ.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
