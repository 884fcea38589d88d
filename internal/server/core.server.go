package server

import (
	"context"
	"fmt"
	"net/http"

	"ledger-service/internal/config"
	hrest "ledger-service/internal/handler/rest"
	"ledger-service/internal/pub"
	"ledger-service/internal/repository"
	"ledger-service/internal/usecase"

	"github.com/redis/go-redis/v9"
)

// NewLedgerServer wires the whole service: pool, migrations, repositories,
// usecases, REST handler. Every component is constructed here and injected
// down; nothing holds hidden global state.
func NewLedgerServer(ctx context.Context, cfg config.AppConfig) (*http.Server, error) {
	// --- DB connection ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := repository.RunMigrations(ctx, dbpool, cfg.MigrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// --- Redis client ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	// --- Repositories ---
	seqRepo := repository.NewSequenceRepo(dbpool)
	accountRepo := repository.NewAccountRepo(dbpool, seqRepo)
	movementRepo := repository.NewMovementRepo(dbpool, seqRepo)

	// --- Event publisher ---
	events := pub.NewMovementEventPublisher(rdb)

	// --- Usecases ---
	accountUC := usecase.NewAccountUsecase(accountRepo, rdb)
	ledgerUC := usecase.NewLedgerUsecase(accountRepo, movementRepo, rdb, events)

	// --- REST handler ---
	handler := hrest.NewLedgerRestHandler(accountUC, ledgerUC)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}, nil
}
