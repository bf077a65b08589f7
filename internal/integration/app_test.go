package integration_test

import (
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/payment-gateway/internal/app"
	"github.com/metinatakli/payment-gateway/internal/mailer"
	"github.com/metinatakli/payment-gateway/internal/mocks"
	"github.com/metinatakli/payment-gateway/internal/repository"
	appvalidator "github.com/metinatakli/payment-gateway/internal/validator"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App         *app.Application
	DB          *pgxpool.Pool
	RedisClient *redis.Client
	Repo        *repository.PostgresPaymentRepository
	Mailer      *mailer.MockMailer
	Publisher   *mocks.MockEventPublisher
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	validator := appvalidator.NewValidator()
	mailer := mailer.NewMockMailer()
	publisher := &mocks.MockEventPublisher{}

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	gateways, err := app.NewGateways(cfg, logger)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	paymentRepo := repository.NewPostgresPaymentRepository(db)
	locker := repository.NewRedisPaymentLocker(redisClient, cfg.LockTTL)

	application := app.NewApp(
		cfg,
		logger,
		validator,
		mailer,
		paymentRepo,
		locker,
		publisher,
		gateways,
	)

	return &TestApp{
		App:         application,
		DB:          db,
		RedisClient: redisClient,
		Repo:        paymentRepo,
		Mailer:      mailer,
		Publisher:   publisher,
	}, nil
}
