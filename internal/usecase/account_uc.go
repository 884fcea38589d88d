package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"

	"github.com/redis/go-redis/v9"
)

const accountCacheTTL = 30 * time.Second

func accountCacheKey(id int64) string {
	return fmt.Sprintf("account:id:%d", id)
}

type AccountUsecase struct {
	accountRepo repository.AccountRepository
	redisClient *redis.Client
}

// NewAccountUsecase initializes a new AccountUsecase
func NewAccountUsecase(accountRepo repository.AccountRepository, redisClient *redis.Client) *AccountUsecase {
	return &AccountUsecase{
		accountRepo: accountRepo,
		redisClient: redisClient,
	}
}

// Open creates a new active account with the given starting balance in its
// own unit of work. The balance sign is not validated.
func (uc *AccountUsecase) Open(ctx context.Context, initialBalance int64) (*domain.Account, error) {
	tx, err := uc.accountRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account := &domain.Account{Balance: initialBalance}
	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return nil, fmt.Errorf("failed to open account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit account open: %w", err)
	}

	return account, nil
}

// Get fetches an account whatever its active status, cache first.
func (uc *AccountUsecase) Get(ctx context.Context, id int64) (*domain.Account, error) {
	cacheKey := accountCacheKey(id)

	if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
		var account domain.Account
		if jsonErr := json.Unmarshal([]byte(val), &account); jsonErr == nil {
			return &account, nil
		}
	}

	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(account); err == nil {
		_ = uc.redisClient.Set(ctx, cacheKey, data, accountCacheTTL).Err()
	}

	return account, nil
}

// Close flips an active account to closed and returns it with its balance
// untouched. The read-then-flip runs atomically inside one unit of work, so
// a racing close cannot slip past the already-closed check; the loser gets
// ErrAccountNotFound just as if the account never existed.
func (uc *AccountUsecase) Close(ctx context.Context, id int64) (*domain.Account, error) {
	tx, err := uc.accountRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := uc.accountRepo.Close(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit account close: %w", err)
	}

	_ = uc.redisClient.Del(ctx, accountCacheKey(id)).Err()

	return account, nil
}
