package hrest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/pkg/response"
	"ledger-service/pkg/xerrors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// AccountService is the account-lifecycle slice of the engine the REST
// layer needs.
type AccountService interface {
	Open(ctx context.Context, initialBalance int64) (*domain.Account, error)
	Get(ctx context.Context, id int64) (*domain.Account, error)
	Close(ctx context.Context, id int64) (*domain.Account, error)
}

// LedgerService is the money-movement slice.
type LedgerService interface {
	Deposit(ctx context.Context, accountID, amount int64) (*domain.Deposit, error)
	Withdraw(ctx context.Context, accountID, amount int64) (*domain.Withdrawal, error)
	Transfer(ctx context.Context, fromID, toID, amount int64) (*domain.Transfer, error)
	GetDeposit(ctx context.Context, id int64) (*domain.Deposit, error)
	GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error)
	GetTransfer(ctx context.Context, id int64) (*domain.Transfer, error)
	History(ctx context.Context, accountID int64) (*domain.AccountHistory, error)
}

type LedgerRestHandler struct {
	accountUC AccountService
	ledgerUC  LedgerService
}

func NewLedgerRestHandler(accountUC AccountService, ledgerUC LedgerService) *LedgerRestHandler {
	return &LedgerRestHandler{
		accountUC: accountUC,
		ledgerUC:  ledgerUC,
	}
}

type openAccountJSON struct {
	Balance int64 `json:"balance"`
}

type movementJSON struct {
	Amount  int64 `json:"amount"`
	Account int64 `json:"account"`
}

type transferJSON struct {
	Amount      int64 `json:"amount"`
	FromAccount int64 `json:"fromAccount"`
	ToAccount   int64 `json:"toAccount"`
}

func (h *LedgerRestHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var in openAccountJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accountUC.Open(r.Context(), in.Balance)
	if err != nil {
		h.writeError(w, err, "account not found")
		return
	}
	response.JSON(w, http.StatusOK, account)
}

func (h *LedgerRestHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	account, err := h.accountUC.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "account not found")
		return
	}
	response.JSON(w, http.StatusOK, account)
}

func (h *LedgerRestHandler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	account, err := h.accountUC.Close(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "open account not found")
		return
	}
	response.JSON(w, http.StatusOK, account)
}

func (h *LedgerRestHandler) GetAccountHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	history, err := h.ledgerUC.History(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "account not found")
		return
	}
	response.JSON(w, http.StatusOK, history)
}

func (h *LedgerRestHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var in movementJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deposit, err := h.ledgerUC.Deposit(r.Context(), in.Account, in.Amount)
	if err != nil {
		h.writeError(w, err, "open account not found")
		return
	}
	response.JSON(w, http.StatusOK, deposit)
}

func (h *LedgerRestHandler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	deposit, err := h.ledgerUC.GetDeposit(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "deposit not found")
		return
	}
	response.JSON(w, http.StatusOK, deposit)
}

func (h *LedgerRestHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var in movementJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	withdrawal, err := h.ledgerUC.Withdraw(r.Context(), in.Account, in.Amount)
	if err != nil {
		h.writeError(w, err, "open account not found")
		return
	}
	response.JSON(w, http.StatusOK, withdrawal)
}

func (h *LedgerRestHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	withdrawal, err := h.ledgerUC.GetWithdrawal(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "withdrawal not found")
		return
	}
	response.JSON(w, http.StatusOK, withdrawal)
}

func (h *LedgerRestHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var in transferJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transfer, err := h.ledgerUC.Transfer(r.Context(), in.FromAccount, in.ToAccount, in.Amount)
	if err != nil {
		h.writeError(w, err, "open accounts not found")
		return
	}
	response.JSON(w, http.StatusOK, transfer)
}

func (h *LedgerRestHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	transfer, err := h.ledgerUC.GetTransfer(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "transfer not found")
		return
	}
	response.JSON(w, http.StatusOK, transfer)
}

func (h *LedgerRestHandler) registerRoutes(r chi.Router) {
	r.Route("/moneytransfer", func(r chi.Router) {
		r.Post("/accounts", h.OpenAccount)
		r.Get("/accounts/{id}", h.GetAccount)
		r.Delete("/accounts/{id}", h.CloseAccount)
		r.Get("/accounts/{id}/movements", h.GetAccountHistory)

		r.Post("/deposits", h.CreateDeposit)
		r.Get("/deposits/{id}", h.GetDeposit)

		r.Post("/withdrawals", h.CreateWithdrawal)
		r.Get("/withdrawals/{id}", h.GetWithdrawal)

		r.Post("/transfers", h.CreateTransfer)
		r.Get("/transfers/{id}", h.GetTransfer)
	})
}

// Router builds the REST surface with the standard middleware stack.
func (h *LedgerRestHandler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h.registerRoutes(r)

	return r
}

// writeError maps engine failures onto the wire: missing entities are 404,
// everything else is an opaque storage failure.
func (h *LedgerRestHandler) writeError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, xerrors.ErrAccountNotFound), errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, notFoundMsg)
	default:
		log.WithError(err).Error("ledger operation failed")
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
