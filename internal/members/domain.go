package members

import (
	"time"

	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// Member represents a cooperative member account. It doubles as the
// authenticated principal: the password hash is never serialized and is
// only populated on lookups that need it.
type Member struct {
	ID             int64       `json:"id"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Email          string      `json:"email"`
	PhoneNumber    string      `json:"phone_number"`
	Role           shared.Role `json:"role"`
	SavingsBalance int64       `json:"savings_balance"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	PasswordHash string `json:"-"`
}

// Ref returns the minimal principal reference for this member.
func (m *Member) Ref() shared.PrincipalRef {
	return shared.PrincipalRef{ID: m.ID, Role: m.Role}
}
