package usecase

import (
	"context"
	"sync"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/pub"
	"ledger-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// fakeStore is the committed state behind the fake repositories. Mutations
// stage inside a fakeTx and only land here on Commit, so aborted units of
// work leave no trace, like the real pool.
type fakeStore struct {
	mu          sync.Mutex
	accounts    map[int64]domain.Account
	deposits    map[int64]domain.Deposit
	withdrawals map[int64]domain.Withdrawal
	transfers   map[int64]domain.Transfer
	nextID      map[domain.Kind]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:    map[int64]domain.Account{},
		deposits:    map[int64]domain.Deposit{},
		withdrawals: map[int64]domain.Withdrawal{},
		transfers:   map[int64]domain.Transfer{},
		nextID:      map[domain.Kind]int64{},
	}
}

// next mimics a database sequence: strictly increasing per kind, ids burned
// by aborted transactions are never reissued.
func (s *fakeStore) next(kind domain.Kind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID[kind]++
	return s.nextID[kind]
}

// seed inserts an account directly, outside any transaction.
func (s *fakeStore) seed(balance int64, active bool) int64 {
	id := s.next(domain.KindAccount)
	s.mu.Lock()
	s.accounts[id] = domain.Account{ID: id, Balance: balance, Active: active}
	s.mu.Unlock()
	return id
}

func (s *fakeStore) balance(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

func (s *fakeStore) movementCounts() (deposits, withdrawals, transfers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deposits), len(s.withdrawals), len(s.transfers)
}

// fakeTx stages mutations until Commit. It embeds pgx.Tx for the methods
// the engine never calls.
type fakeTx struct {
	pgx.Tx
	store       *fakeStore
	accounts    map[int64]domain.Account
	deposits    []domain.Deposit
	withdrawals []domain.Withdrawal
	transfers   []domain.Transfer
	committed   bool
	rolledBack  bool
}

func (s *fakeStore) begin() *fakeTx {
	return &fakeTx{store: s, accounts: map[int64]domain.Account{}}
}

// account reads staged state first, then committed state.
func (t *fakeTx) account(id int64) (domain.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	a, ok := t.store.accounts[id]
	return a, ok
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, a := range t.accounts {
		t.store.accounts[id] = a
	}
	for _, d := range t.deposits {
		t.store.deposits[d.ID] = d
	}
	for _, w := range t.withdrawals {
		t.store.withdrawals[w.ID] = w
	}
	for _, tr := range t.transfers {
		t.store.transfers[tr.ID] = tr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func asFakeTx(tx pgx.Tx) *fakeTx {
	return tx.(*fakeTx)
}

type fakeAccountRepo struct {
	store       *fakeStore
	mu          sync.Mutex
	lastTx      *fakeTx
	adjustCalls []int64
}

func newFakeAccountRepo(store *fakeStore) *fakeAccountRepo {
	return &fakeAccountRepo{store: store}
}

func (r *fakeAccountRepo) BeginTx(_ context.Context) (pgx.Tx, error) {
	tx := r.store.begin()
	r.mu.Lock()
	r.lastTx = tx
	r.mu.Unlock()
	return tx, nil
}

func (r *fakeAccountRepo) Create(_ context.Context, tx pgx.Tx, account *domain.Account) error {
	t := asFakeTx(tx)
	account.ID = r.store.next(domain.KindAccount)
	account.Active = true
	t.accounts[account.ID] = *account
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, xerrors.ErrAccountNotFound
	}
	return &a, nil
}

func (r *fakeAccountRepo) GetByIDTx(_ context.Context, tx pgx.Tx, id int64) (*domain.Account, error) {
	a, ok := asFakeTx(tx).account(id)
	if !ok {
		return nil, xerrors.ErrAccountNotFound
	}
	return &a, nil
}

func (r *fakeAccountRepo) AdjustBalance(_ context.Context, tx pgx.Tx, id int64, delta int64) (*domain.Account, error) {
	r.mu.Lock()
	r.adjustCalls = append(r.adjustCalls, id)
	r.mu.Unlock()
	t := asFakeTx(tx)
	a, ok := t.account(id)
	if !ok || !a.Active {
		return nil, xerrors.ErrAccountNotFound
	}
	a.Balance += delta
	t.accounts[id] = a
	return &a, nil
}

func (r *fakeAccountRepo) Close(_ context.Context, tx pgx.Tx, id int64) (*domain.Account, error) {
	t := asFakeTx(tx)
	a, ok := t.account(id)
	if !ok || !a.Active {
		return nil, xerrors.ErrAccountNotFound
	}
	a.Active = false
	t.accounts[id] = a
	return &a, nil
}

type fakeMovementRepo struct {
	store         *fakeStore
	depositErr    error
	withdrawalErr error
	transferErr   error
}

func newFakeMovementRepo(store *fakeStore) *fakeMovementRepo {
	return &fakeMovementRepo{store: store}
}

func (r *fakeMovementRepo) CreateDeposit(_ context.Context, tx pgx.Tx, d *domain.Deposit) error {
	if r.depositErr != nil {
		return r.depositErr
	}
	d.ID = r.store.next(domain.KindDeposit)
	t := asFakeTx(tx)
	t.deposits = append(t.deposits, *d)
	return nil
}

func (r *fakeMovementRepo) CreateWithdrawal(_ context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	if r.withdrawalErr != nil {
		return r.withdrawalErr
	}
	w.ID = r.store.next(domain.KindWithdrawal)
	t := asFakeTx(tx)
	t.withdrawals = append(t.withdrawals, *w)
	return nil
}

func (r *fakeMovementRepo) CreateTransfer(_ context.Context, tx pgx.Tx, tr *domain.Transfer) error {
	if r.transferErr != nil {
		return r.transferErr
	}
	tr.ID = r.store.next(domain.KindTransfer)
	t := asFakeTx(tx)
	t.transfers = append(t.transfers, *tr)
	return nil
}

func (r *fakeMovementRepo) GetDeposit(_ context.Context, id int64) (*domain.Deposit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.deposits[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &d, nil
}

func (r *fakeMovementRepo) GetWithdrawal(_ context.Context, id int64) (*domain.Withdrawal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.withdrawals[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &w, nil
}

func (r *fakeMovementRepo) GetTransfer(_ context.Context, id int64) (*domain.Transfer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.transfers[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &t, nil
}

func (r *fakeMovementRepo) ListByAccount(_ context.Context, accountID int64) (*domain.AccountHistory, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	history := &domain.AccountHistory{
		Account:     accountID,
		Deposits:    []*domain.Deposit{},
		Withdrawals: []*domain.Withdrawal{},
		Transfers:   []*domain.Transfer{},
	}
	for _, d := range r.store.deposits {
		if d.Account == accountID {
			d := d
			history.Deposits = append(history.Deposits, &d)
		}
	}
	for _, w := range r.store.withdrawals {
		if w.Account == accountID {
			w := w
			history.Withdrawals = append(history.Withdrawals, &w)
		}
	}
	for _, t := range r.store.transfers {
		if t.FromAccount == accountID || t.ToAccount == accountID {
			t := t
			history.Transfers = append(history.Transfers, &t)
		}
	}
	return history, nil
}

// testRedis returns a client pointing at nothing. Every cache call fails
// fast and the usecases fall through to the repositories, which is exactly
// the degraded path they are built for.
func testRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func newTestEngine(store *fakeStore) (*LedgerUsecase, *fakeAccountRepo, *fakeMovementRepo) {
	accountRepo := newFakeAccountRepo(store)
	movementRepo := newFakeMovementRepo(store)
	rdb := testRedis()
	uc := NewLedgerUsecase(accountRepo, movementRepo, rdb, pub.NewMovementEventPublisher(rdb))
	return uc, accountRepo, movementRepo
}
