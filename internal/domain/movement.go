package domain

// Movement records are append-only history. None of them are ever updated
// after creation; the balance they produced lives on the account row.

// Deposit credits an account by Amount.
type Deposit struct {
	ID      int64 `json:"id"`
	Amount  int64 `json:"amount"`
	Account int64 `json:"account"`
}

// Withdrawal debits an account by Amount.
type Withdrawal struct {
	ID      int64 `json:"id"`
	Amount  int64 `json:"amount"`
	Account int64 `json:"account"`
}

// Transfer moves Amount from one account to another. At the storage level it
// is composed of exactly one Withdrawal against FromAccount and one Deposit
// against ToAccount, created in the same unit of work as the Transfer row.
type Transfer struct {
	ID          int64 `json:"id"`
	Amount      int64 `json:"amount"`
	FromAccount int64 `json:"fromAccount"`
	ToAccount   int64 `json:"toAccount"`
}

// AccountHistory is everything that ever moved money on one account.
type AccountHistory struct {
	Account     int64         `json:"account"`
	Deposits    []*Deposit    `json:"deposits"`
	Withdrawals []*Withdrawal `json:"withdrawals"`
	Transfers   []*Transfer   `json:"transfers"`
}
