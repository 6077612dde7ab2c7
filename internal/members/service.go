package members

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

var nameCaser = cases.Title(language.English)

// Service handles member account business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns members matching the filters plus pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Member, shared.Pagination, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = 20
	}
	list, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get fetches a single member by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Member, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile applies profile field changes. Names are stored in title case.
func (s *Service) UpdateProfile(ctx context.Context, id int64, m Member) error {
	m.FirstName = NormalizeName(m.FirstName)
	m.LastName = NormalizeName(m.LastName)
	if err := validateProfile(m); err != nil {
		return err
	}
	return s.repo.UpdateProfile(ctx, id, m)
}

// Deactivate disables an account. Existing tokens keep verifying until
// expiry, but strict guards and login both reject inactive accounts.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}

// ContactEmail resolves the email address for a member, for notification
// fan-out.
func (s *Service) ContactEmail(ctx context.Context, memberID int64) (string, error) {
	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		return "", err
	}
	return member.Email, nil
}

// NormalizeName trims and title-cases a person name.
func NormalizeName(name string) string {
	return nameCaser.String(strings.TrimSpace(name))
}
