package domain

// Kind identifies an entity collection. Each kind draws its identifiers
// from its own monotonic sequence.
type Kind string

const (
	KindAccount    Kind = "account"
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindTransfer   Kind = "transfer"
)

// Account is a ledger account. Balance is a signed integer in minor units;
// this service performs no sign or overdraft validation on it. Active flips
// to false exactly once, on close, and never back.
type Account struct {
	ID      int64 `json:"id"`
	Balance int64 `json:"balance"`
	Active  bool  `json:"active"`
}
