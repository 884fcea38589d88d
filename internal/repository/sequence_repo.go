package repository

import (
	"context"
	"fmt"

	"ledger-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceRepository issues entity identifiers. Every kind draws from its
// own database sequence, so ids are unique and strictly increasing per kind
// across any interleaving of concurrent transactions. An id allocated inside
// a transaction that later aborts is burned, never reused.
type SequenceRepository interface {
	Next(ctx context.Context, tx pgx.Tx, kind domain.Kind) (int64, error)
}

type sequenceRepo struct {
	db *pgxpool.Pool
}

func NewSequenceRepo(db *pgxpool.Pool) SequenceRepository {
	return &sequenceRepo{db: db}
}

var kindSequences = map[domain.Kind]string{
	domain.KindAccount:    "account_id_seq",
	domain.KindDeposit:    "deposit_id_seq",
	domain.KindWithdrawal: "withdrawal_id_seq",
	domain.KindTransfer:   "transfer_id_seq",
}

// Next allocates the next id for kind. When tx is non-nil the allocation
// rides the caller's transaction connection.
func (r *sequenceRepo) Next(ctx context.Context, tx pgx.Tx, kind domain.Kind) (int64, error) {
	seq, ok := kindSequences[kind]
	if !ok {
		return 0, fmt.Errorf("unknown id kind %q", kind)
	}

	var row pgx.Row
	if tx != nil {
		row = tx.QueryRow(ctx, `SELECT nextval($1)`, seq)
	} else {
		row = r.db.QueryRow(ctx, `SELECT nextval($1)`, seq)
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to draw next %s id: %w", kind, err)
	}

	return id, nil
}
