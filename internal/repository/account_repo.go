package repository

import (
	"context"
	"errors"
	"fmt"

	"ledger-service/internal/domain"
	"ledger-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository owns every read and write of account rows. No other
// component touches an account's balance or active flag.
type AccountRepository interface {
	// Create inserts a new active account with a freshly allocated id.
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error

	// GetByID returns the account whatever its active status.
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error)

	// AdjustBalance adds delta (negative for withdrawals) to an active
	// account's balance and returns the updated account. A missing and a
	// closed account both come back as ErrAccountNotFound. The resulting
	// balance is never validated; it may go negative.
	AdjustBalance(ctx context.Context, tx pgx.Tx, id int64, delta int64) (*domain.Account, error)

	// Close flips active to false on an active account and returns the
	// account with its balance untouched. Closing a closed or missing
	// account is ErrAccountNotFound.
	Close(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error)

	// Transaction helper
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type accountRepo struct {
	db  *pgxpool.Pool
	seq SequenceRepository
}

// NewAccountRepo creates a new account repository
func NewAccountRepo(db *pgxpool.Pool, seq SequenceRepository) AccountRepository {
	return &accountRepo{db: db, seq: seq}
}

func (r *accountRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

const baseSelectAccount = `SELECT id, balance, active FROM accounts`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Balance, &a.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

func (r *accountRepo) Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	id, err := r.seq.Next(ctx, tx, domain.KindAccount)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (id, balance, active)
		VALUES ($1, $2, true)
	`, id, account.Balance)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	account.ID = id
	account.Active = true
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, baseSelectAccount+` WHERE id=$1`, id)
	return scanAccount(row)
}

// GetByIDTx same as GetByID but within a transaction
func (r *accountRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error) {
	row := tx.QueryRow(ctx, baseSelectAccount+` WHERE id=$1`, id)
	return scanAccount(row)
}

// AdjustBalance is a single read-modify-write statement, so the row lock it
// takes serializes concurrent adjustments on the same account and no update
// is ever lost.
func (r *accountRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id int64, delta int64) (*domain.Account, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}

	row := tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2
		WHERE id = $1 AND active
		RETURNING id, balance, active
	`, id, delta)

	return scanAccount(row)
}

// Close performs read-then-flip as one statement; a concurrent close blocks
// on the row lock and then matches zero rows.
func (r *accountRepo) Close(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}

	row := tx.QueryRow(ctx, `
		UPDATE accounts
		SET active = false
		WHERE id = $1 AND active
		RETURNING id, balance, active
	`, id)

	return scanAccount(row)
}
