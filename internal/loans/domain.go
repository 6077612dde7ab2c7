package loans

import "time"

// Status is the closed set of loan lifecycle states.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusClosed   Status = "closed"
)

// Loan represents a credit application by a member. Amounts are in cents.
type Loan struct {
	ID           int64     `json:"id"`
	MemberID     int64     `json:"member_id"`
	Amount       int64     `json:"amount"`
	TermMonths   int       `json:"term_months"`
	Purpose      string    `json:"purpose"`
	Status       Status    `json:"status"`
	AmountRepaid int64     `json:"amount_repaid"`
	ApprovedBy   *int64    `json:"approved_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Repayment records a single payment against a loan.
type Repayment struct {
	ID        int64     `json:"id"`
	LoanID    int64     `json:"loan_id"`
	Amount    int64     `json:"amount"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}
