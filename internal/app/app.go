package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/metinatakli/payment-gateway/internal/events"
	"github.com/metinatakli/payment-gateway/internal/gateway"
	"github.com/metinatakli/payment-gateway/internal/mailer"
	"github.com/metinatakli/payment-gateway/internal/repository"
	appvalidator "github.com/metinatakli/payment-gateway/internal/validator"
	"github.com/metinatakli/payment-gateway/internal/vcs"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	version = vcs.Version()
)

const serviceName = "payment-gateway"

type Application struct {
	config    Config
	logger    *slog.Logger
	validator *validator.Validate
	mailer    mailer.Mailer

	paymentRepo domain.PaymentRepository
	locker      domain.PaymentLocker
	publisher   domain.EventPublisher

	gateways map[domain.Provider]*gateway.Gateway

	wg sync.WaitGroup
}

type Config struct {
	Port             int
	Env              string
	DB               DBConfig
	Redis            RedisConfig
	Kafka            KafkaConfig
	SMTP             SMTPConfig
	Stripe           StripeConfig
	PayPal           PayPalConfig
	Redirect         RedirectConfig
	OtelCollectorUrl string
	APIKeyHash       string
	MigrationsPath   string
	LockTTL          time.Duration
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type KafkaConfig struct {
	Brokers string
	Topic   string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey          string
	WebhookSecret      string
	PaymentMethodTypes string
	APIBase            string
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	WebhookID    string
	Intent       string
	Sandbox      bool
	APIBase      string
}

type RedirectConfig struct {
	SuccessURL string
	CancelURL  string
}

func NewApp(
	cfg Config,
	logger *slog.Logger,
	validator *validator.Validate,
	mailer mailer.Mailer,
	paymentRepo domain.PaymentRepository,
	locker domain.PaymentLocker,
	publisher domain.EventPublisher,
	gateways map[domain.Provider]*gateway.Gateway) *Application {

	return &Application{
		config:      cfg,
		logger:      logger,
		validator:   validator,
		mailer:      mailer,
		paymentRepo: paymentRepo,
		locker:      locker,
		publisher:   publisher,
		gateways:    gateways,
	}
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")
	flag.StringVar(&cfg.MigrationsPath, "migrations", "", "Apply migrations from this source before starting, e.g. file://migrations")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")
	flag.DurationVar(&cfg.LockTTL, "lock-ttl", repository.DefaultLockTTL, "How long a payment lock is held at most")

	flag.StringVar(&cfg.Kafka.Brokers, "kafka-brokers", "", "Comma separated Kafka brokers, events are not published when empty")
	flag.StringVar(&cfg.Kafka.Topic, "kafka-topic", events.DefaultTopic, "Kafka topic for payment status changes")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", "Payments <no-reply@payments.metinatakli.net>", "SMTP sender")

	flag.StringVar(&cfg.Stripe.SecretKey, "stripe-key", "", "Stripe secret key, the provider is disabled when empty")
	flag.StringVar(&cfg.Stripe.WebhookSecret, "stripe-webhook-secret", "", "Stripe webhook secret")
	flag.StringVar(&cfg.Stripe.PaymentMethodTypes, "stripe-payment-method-types", "", "Comma separated Stripe payment method types")
	flag.StringVar(&cfg.Stripe.APIBase, "stripe-api-base", "", "Override the Stripe API base URL")

	flag.StringVar(&cfg.PayPal.ClientID, "paypal-client-id", "", "PayPal client id, the provider is disabled when empty")
	flag.StringVar(&cfg.PayPal.ClientSecret, "paypal-client-secret", "", "PayPal client secret")
	flag.StringVar(&cfg.PayPal.WebhookID, "paypal-webhook-id", "", "PayPal webhook id used to verify deliveries")
	flag.StringVar(&cfg.PayPal.Intent, "paypal-intent", "AUTHORIZE", "PayPal order intent (AUTHORIZE|CAPTURE)")
	flag.BoolVar(&cfg.PayPal.Sandbox, "paypal-sandbox", true, "Use the PayPal sandbox")
	flag.StringVar(&cfg.PayPal.APIBase, "paypal-api-base", "", "Override the PayPal API base URL")

	flag.StringVar(&cfg.Redirect.SuccessURL, "success-url", "https://example.com/success.html", "Payment success page")
	flag.StringVar(&cfg.Redirect.CancelURL, "cancel-url", "https://example.com/cancel.html", "Payment cancel page")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector gRPC endpoint")
	flag.StringVar(&cfg.APIKeyHash, "api-key-hash", "", "bcrypt hash of the API key, authentication is disabled when empty")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	textHandler := slog.NewTextHandler(os.Stdout, nil)
	logger := slog.New(textHandler)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		logger = slog.New(NewMultiHandler(textHandler, otelslog.NewHandler(serviceName)))
		app.logger = logger
	}

	if cfg.MigrationsPath != "" {
		err = repository.Migrate(cfg.DB.DSN, cfg.MigrationsPath)
		if err != nil {
			return err
		}
	}

	db, err := NewDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	publisher, closePublisher := newEventPublisher(cfg, logger)
	defer closePublisher()

	gateways, err := NewGateways(cfg, logger)
	if err != nil {
		return err
	}

	app.validator = appvalidator.NewValidator()
	app.mailer = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
	app.paymentRepo = repository.NewPostgresPaymentRepository(db)
	app.locker = repository.NewRedisPaymentLocker(redisClient, cfg.LockTTL)
	app.publisher = publisher
	app.gateways = gateways

	return app.serve()
}

// NewGateways builds one gateway per configured provider. Offline is always
// available, the networked providers only when their credentials are set.
func NewGateways(cfg Config, logger *slog.Logger) (map[domain.Provider]*gateway.Gateway, error) {
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	type providerConfig struct {
		credentials domain.Credentials
		options     domain.Options
		sandbox     bool
	}

	providers := map[domain.Provider]providerConfig{
		domain.ProviderOffline: {},
	}

	if cfg.Stripe.SecretKey != "" {
		options := domain.Options{}
		if cfg.Stripe.PaymentMethodTypes != "" {
			options["payment_method_types"] = strings.Split(cfg.Stripe.PaymentMethodTypes, ",")
		}

		if cfg.Stripe.APIBase != "" {
			options["api_base"] = cfg.Stripe.APIBase
		}

		providers[domain.ProviderStripe] = providerConfig{
			credentials: domain.Credentials{
				"secret_key":     cfg.Stripe.SecretKey,
				"webhook_secret": cfg.Stripe.WebhookSecret,
			},
			options: options,
		}
	}

	if cfg.PayPal.ClientID != "" {
		options := domain.Options{"intent": cfg.PayPal.Intent}
		if cfg.PayPal.APIBase != "" {
			options["api_base"] = cfg.PayPal.APIBase
		}

		providers[domain.ProviderPayPal] = providerConfig{
			credentials: domain.Credentials{
				"client_id":     cfg.PayPal.ClientID,
				"client_secret": cfg.PayPal.ClientSecret,
				"webhook_id":    cfg.PayPal.WebhookID,
			},
			options: options,
			sandbox: cfg.PayPal.Sandbox,
		}
	}

	gateways := make(map[domain.Provider]*gateway.Gateway, len(providers))

	for provider, pc := range providers {
		gw, err := gateway.New(
			provider.String(),
			pc.credentials,
			pc.options,
			gateway.WithLogger(logger),
			gateway.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, err
		}

		gw.SetSuccessURL(cfg.Redirect.SuccessURL)
		gw.SetCancelURL(cfg.Redirect.CancelURL)
		gw.SetSandbox(pc.sandbox)

		gateways[provider] = gw
	}

	return gateways, nil
}

func newEventPublisher(cfg Config, logger *slog.Logger) (domain.EventPublisher, func()) {
	if cfg.Kafka.Brokers == "" {
		logger.Info("kafka brokers not set, status change events will not be published")
		return events.NoopPublisher{}, func() {}
	}

	publisher := events.NewKafkaPublisher(strings.Split(cfg.Kafka.Brokers, ","), cfg.Kafka.Topic, logger)

	return publisher, func() {
		err := publisher.Close()
		if err != nil {
			logger.Error("failed to close kafka publisher", "error", err)
		}
	}
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	err := errors.Join(redisotel.InstrumentTracing(rdb), redisotel.InstrumentMetrics(rdb))
	if err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 45 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "providers", app.providerNames())

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("completing background tasks", "addr", srv.Addr)
	app.wg.Wait()

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
