package transactions

import "time"

// Kind is the closed set of savings transaction types.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
)

// Transaction is one movement on a member's savings balance. Amounts are in
// cents; BalanceAfter is the savings balance immediately after posting.
type Transaction struct {
	ID           int64     `json:"id"`
	MemberID     int64     `json:"member_id"`
	Kind         Kind      `json:"kind"`
	Amount       int64     `json:"amount"`
	Reference    string    `json:"reference"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}
