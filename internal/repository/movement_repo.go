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

// MovementRepository appends and reads the immutable movement history. The
// Create methods assume the caller has already validated the referenced
// account(s) inside the same transaction; the foreign keys on the movement
// tables re-enforce that as defense in depth.
type MovementRepository interface {
	CreateDeposit(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error
	CreateWithdrawal(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error
	CreateTransfer(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error

	GetDeposit(ctx context.Context, id int64) (*domain.Deposit, error)
	GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error)
	GetTransfer(ctx context.Context, id int64) (*domain.Transfer, error)

	// ListByAccount collects the full movement history touching one account.
	ListByAccount(ctx context.Context, accountID int64) (*domain.AccountHistory, error)
}

type movementRepo struct {
	db  *pgxpool.Pool
	seq SequenceRepository
}

func NewMovementRepo(db *pgxpool.Pool, seq SequenceRepository) MovementRepository {
	return &movementRepo{db: db, seq: seq}
}

func (r *movementRepo) CreateDeposit(ctx context.Context, tx pgx.Tx, d *domain.Deposit) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	id, err := r.seq.Next(ctx, tx, domain.KindDeposit)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO deposits (id, amount, account)
		VALUES ($1, $2, $3)
	`, id, d.Amount, d.Account); err != nil {
		if xerrors.IsForeignKeyViolation(err) {
			return fmt.Errorf("deposit references missing account %d: %w", d.Account, err)
		}
		return fmt.Errorf("failed to insert deposit: %w", err)
	}

	d.ID = id
	return nil
}

func (r *movementRepo) CreateWithdrawal(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	id, err := r.seq.Next(ctx, tx, domain.KindWithdrawal)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO withdrawals (id, amount, account)
		VALUES ($1, $2, $3)
	`, id, w.Amount, w.Account); err != nil {
		if xerrors.IsForeignKeyViolation(err) {
			return fmt.Errorf("withdrawal references missing account %d: %w", w.Account, err)
		}
		return fmt.Errorf("failed to insert withdrawal: %w", err)
	}

	w.ID = id
	return nil
}

func (r *movementRepo) CreateTransfer(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	id, err := r.seq.Next(ctx, tx, domain.KindTransfer)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transfers (id, amount, from_account, to_account)
		VALUES ($1, $2, $3, $4)
	`, id, t.Amount, t.FromAccount, t.ToAccount); err != nil {
		if xerrors.IsForeignKeyViolation(err) {
			return fmt.Errorf("transfer references missing account: %w", err)
		}
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	t.ID = id
	return nil
}

func (r *movementRepo) GetDeposit(ctx context.Context, id int64) (*domain.Deposit, error) {
	var d domain.Deposit
	err := r.db.QueryRow(ctx, `
		SELECT id, amount, account FROM deposits WHERE id=$1
	`, id).Scan(&d.ID, &d.Amount, &d.Account)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return &d, nil
}

func (r *movementRepo) GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := r.db.QueryRow(ctx, `
		SELECT id, amount, account FROM withdrawals WHERE id=$1
	`, id).Scan(&w.ID, &w.Amount, &w.Account)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return &w, nil
}

func (r *movementRepo) GetTransfer(ctx context.Context, id int64) (*domain.Transfer, error) {
	var t domain.Transfer
	err := r.db.QueryRow(ctx, `
		SELECT id, amount, from_account, to_account FROM transfers WHERE id=$1
	`, id).Scan(&t.ID, &t.Amount, &t.FromAccount, &t.ToAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return &t, nil
}

func (r *movementRepo) ListByAccount(ctx context.Context, accountID int64) (*domain.AccountHistory, error) {
	history := &domain.AccountHistory{
		Account:     accountID,
		Deposits:    []*domain.Deposit{},
		Withdrawals: []*domain.Withdrawal{},
		Transfers:   []*domain.Transfer{},
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, amount, account FROM deposits WHERE account=$1 ORDER BY id ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	for rows.Next() {
		var d domain.Deposit
		if err := rows.Scan(&d.ID, &d.Amount, &d.Account); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan deposit row: %w", err)
		}
		history.Deposits = append(history.Deposits, &d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT id, amount, account FROM withdrawals WHERE account=$1 ORDER BY id ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	for rows.Next() {
		var w domain.Withdrawal
		if err := rows.Scan(&w.ID, &w.Amount, &w.Account); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan withdrawal row: %w", err)
		}
		history.Withdrawals = append(history.Withdrawals, &w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawals: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT id, amount, from_account, to_account
		FROM transfers
		WHERE from_account=$1 OR to_account=$1
		ORDER BY id ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(&t.ID, &t.Amount, &t.FromAccount, &t.ToAccount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan transfer row: %w", err)
		}
		history.Transfers = append(history.Transfers, &t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}

	return history, nil
}
