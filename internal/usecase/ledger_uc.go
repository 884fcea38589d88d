package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/pub"
	"ledger-service/internal/repository"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const movementCacheTTL = 5 * time.Minute

// LedgerUsecase is the transactional money-movement engine. It is the sole
// creator of movement records and the sole mutator of account balances, and
// every operation it runs is one all-or-nothing unit of work: the balance
// change and the movement row that explains it commit together or not at
// all.
type LedgerUsecase struct {
	accountRepo  repository.AccountRepository
	movementRepo repository.MovementRepository
	redisClient  *redis.Client
	events       *pub.MovementEventPublisher
}

func NewLedgerUsecase(
	accountRepo repository.AccountRepository,
	movementRepo repository.MovementRepository,
	redisClient *redis.Client,
	events *pub.MovementEventPublisher,
) *LedgerUsecase {
	return &LedgerUsecase{
		accountRepo:  accountRepo,
		movementRepo: movementRepo,
		redisClient:  redisClient,
		events:       events,
	}
}

// Deposit credits amount to an active account and records the deposit. A
// missing or closed account aborts the unit of work with ErrAccountNotFound
// and leaves no row behind. The amount is taken as-is, sign included.
func (uc *LedgerUsecase) Deposit(ctx context.Context, accountID, amount int64) (*domain.Deposit, error) {
	tx, err := uc.accountRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := uc.accountRepo.AdjustBalance(ctx, tx, accountID, amount); err != nil {
		return nil, err
	}

	deposit := &domain.Deposit{Amount: amount, Account: accountID}
	if err := uc.movementRepo.CreateDeposit(ctx, tx, deposit); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit deposit: %w", err)
	}

	uc.invalidateAccounts(ctx, accountID)
	uc.publish(ctx, &pub.MovementEvent{
		EventType:  pub.EventTypeDeposit,
		MovementID: deposit.ID,
		Amount:     amount,
		Account:    accountID,
	})

	return deposit, nil
}

// Withdraw debits amount from an active account and records the withdrawal.
// No balance-sufficiency check is performed; the balance may go negative.
func (uc *LedgerUsecase) Withdraw(ctx context.Context, accountID, amount int64) (*domain.Withdrawal, error) {
	tx, err := uc.accountRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := uc.accountRepo.AdjustBalance(ctx, tx, accountID, -amount); err != nil {
		return nil, err
	}

	withdrawal := &domain.Withdrawal{Amount: amount, Account: accountID}
	if err := uc.movementRepo.CreateWithdrawal(ctx, tx, withdrawal); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal: %w", err)
	}

	uc.invalidateAccounts(ctx, accountID)
	uc.publish(ctx, &pub.MovementEvent{
		EventType:  pub.EventTypeWithdrawal,
		MovementID: withdrawal.ID,
		Amount:     amount,
		Account:    accountID,
	})

	return withdrawal, nil
}

// Transfer moves amount between two active accounts in one unit of work:
// the withdrawal leg against fromID, the deposit leg against toID, and the
// transfer row itself all commit together. The from side is always touched
// first; if it is missing the to side is never read or written. Keeping
// that acquisition order fixed is what lets two opposing transfers between
// the same pair of accounts avoid deadlocking each other.
func (uc *LedgerUsecase) Transfer(ctx context.Context, fromID, toID, amount int64) (*domain.Transfer, error) {
	tx, err := uc.accountRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := uc.accountRepo.AdjustBalance(ctx, tx, fromID, -amount); err != nil {
		return nil, err
	}

	withdrawal := &domain.Withdrawal{Amount: amount, Account: fromID}
	if err := uc.movementRepo.CreateWithdrawal(ctx, tx, withdrawal); err != nil {
		return nil, err
	}

	if _, err := uc.accountRepo.AdjustBalance(ctx, tx, toID, amount); err != nil {
		return nil, err
	}

	deposit := &domain.Deposit{Amount: amount, Account: toID}
	if err := uc.movementRepo.CreateDeposit(ctx, tx, deposit); err != nil {
		return nil, err
	}

	transfer := &domain.Transfer{Amount: amount, FromAccount: fromID, ToAccount: toID}
	if err := uc.movementRepo.CreateTransfer(ctx, tx, transfer); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	uc.invalidateAccounts(ctx, fromID, toID)
	uc.publish(ctx, &pub.MovementEvent{
		EventType:   pub.EventTypeTransfer,
		MovementID:  transfer.ID,
		Amount:      amount,
		FromAccount: fromID,
		ToAccount:   toID,
	})

	return transfer, nil
}

// GetDeposit retrieves a deposit by id. Movement records never change, so
// they cache well.
func (uc *LedgerUsecase) GetDeposit(ctx context.Context, id int64) (*domain.Deposit, error) {
	cacheKey := fmt.Sprintf("deposit:id:%d", id)

	if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
		var d domain.Deposit
		if jsonErr := json.Unmarshal([]byte(val), &d); jsonErr == nil {
			return &d, nil
		}
	}

	deposit, err := uc.movementRepo.GetDeposit(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(deposit); err == nil {
		_ = uc.redisClient.Set(ctx, cacheKey, data, movementCacheTTL).Err()
	}

	return deposit, nil
}

// GetWithdrawal retrieves a withdrawal by id.
func (uc *LedgerUsecase) GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	cacheKey := fmt.Sprintf("withdrawal:id:%d", id)

	if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
		var w domain.Withdrawal
		if jsonErr := json.Unmarshal([]byte(val), &w); jsonErr == nil {
			return &w, nil
		}
	}

	withdrawal, err := uc.movementRepo.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(withdrawal); err == nil {
		_ = uc.redisClient.Set(ctx, cacheKey, data, movementCacheTTL).Err()
	}

	return withdrawal, nil
}

// GetTransfer retrieves a transfer by id.
func (uc *LedgerUsecase) GetTransfer(ctx context.Context, id int64) (*domain.Transfer, error) {
	cacheKey := fmt.Sprintf("transfer:id:%d", id)

	if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
		var t domain.Transfer
		if jsonErr := json.Unmarshal([]byte(val), &t); jsonErr == nil {
			return &t, nil
		}
	}

	transfer, err := uc.movementRepo.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(transfer); err == nil {
		_ = uc.redisClient.Set(ctx, cacheKey, data, movementCacheTTL).Err()
	}

	return transfer, nil
}

// History returns every movement that ever touched the account. The account
// must exist; closed accounts keep their history readable.
func (uc *LedgerUsecase) History(ctx context.Context, accountID int64) (*domain.AccountHistory, error) {
	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return uc.movementRepo.ListByAccount(ctx, accountID)
}

func (uc *LedgerUsecase) invalidateAccounts(ctx context.Context, ids ...int64) {
	for _, id := range ids {
		_ = uc.redisClient.Del(ctx, accountCacheKey(id)).Err()
	}
}

func (uc *LedgerUsecase) publish(ctx context.Context, event *pub.MovementEvent) {
	if err := uc.events.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("event_type", event.EventType).
			Warn("movement event publish failed")
	}
}
