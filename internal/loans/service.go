package loans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

var (
	// ErrInvalidTransition indicates a status change not allowed by the
	// loan lifecycle.
	ErrInvalidTransition = errors.New("loans: invalid status transition")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("loans: amount must be positive")
)

// Notifier enqueues outbound notifications for loan decisions.
type Notifier interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// MemberDirectory resolves member contact details for notifications.
type MemberDirectory interface {
	ContactEmail(ctx context.Context, memberID int64) (string, error)
}

// Service handles loan lifecycle business logic.
type Service struct {
	logger    *slog.Logger
	repo      Repository
	notifier  Notifier
	directory MemberDirectory
	audit     *shared.AuditLogger
}

// NewService builds a Service instance. notifier, directory and audit may
// be nil.
func NewService(logger *slog.Logger, repo Repository, notifier Notifier, directory MemberDirectory, audit *shared.AuditLogger) *Service {
	return &Service{logger: logger, repo: repo, notifier: notifier, directory: directory, audit: audit}
}

// Apply files a new loan application for the member.
func (s *Service) Apply(ctx context.Context, memberID, amount int64, termMonths int, purpose string) (*Loan, error) {
	if amount <= 0 {
		return nil, errors.New("loan amount must be positive")
	}
	if termMonths < 1 || termMonths > 120 {
		return nil, errors.New("loan term must be between 1 and 120 months")
	}
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return nil, errors.New("loan purpose is required")
	}

	created, err := s.repo.Create(ctx, Loan{
		MemberID:   memberID,
		Amount:     amount,
		TermMonths: termMonths,
		Purpose:    purpose,
		Status:     StatusPending,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, memberID, "loan.apply", created.ID)
	return created, nil
}

// List returns loans matching the filters plus pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Loan, shared.Pagination, error) {
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

// Get fetches a loan by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Loan, error) {
	return s.repo.Get(ctx, id)
}

// Decide approves or rejects a pending loan. Only pending loans can be
// decided.
func (s *Service) Decide(ctx context.Context, id, adminID int64, approve bool) (*Loan, error) {
	loan, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusPending {
		return nil, fmt.Errorf("%w: loan is %s", ErrInvalidTransition, loan.Status)
	}

	status := StatusRejected
	if approve {
		status = StatusApproved
	}
	if err := s.repo.UpdateStatus(ctx, id, status, &adminID); err != nil {
		return nil, err
	}
	loan.Status = status
	loan.ApprovedBy = &adminID

	s.recordAudit(ctx, adminID, "loan."+string(status), id)
	s.notifyDecision(ctx, loan)
	return loan, nil
}

// Repay records a payment against an approved loan. The repository applies
// the payment and closes the loan atomically once the principal is covered,
// so concurrent repayments cannot leave a covered loan open.
func (s *Service) Repay(ctx context.Context, loanID, memberID, amount int64, reference string) (*Repayment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	loan, err := s.repo.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.MemberID != memberID {
		return nil, shared.ErrNotFound
	}
	if loan.Status != StatusApproved {
		return nil, fmt.Errorf("%w: loan is %s", ErrInvalidTransition, loan.Status)
	}

	rep, err := s.repo.AddRepayment(ctx, Repayment{LoanID: loanID, Amount: amount, Reference: reference})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, memberID, "loan.repay", loanID)
	return rep, nil
}

func (s *Service) notifyDecision(ctx context.Context, loan *Loan) {
	if s.notifier == nil || s.directory == nil {
		return
	}
	email, err := s.directory.ContactEmail(ctx, loan.MemberID)
	if err != nil {
		s.logWarn("resolve member contact", err)
		return
	}
	subject := "Loan application update"
	body := fmt.Sprintf("Your loan application #%d is now %s.", loan.ID, loan.Status)
	if err := s.notifier.EnqueueEmail(ctx, email, subject, body); err != nil {
		s.logWarn("enqueue loan notification", err)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, loanID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "loan",
		EntityID: strconv.FormatInt(loanID, 10),
	})
	if err != nil {
		s.logWarn("record audit", err)
	}
}

func (s *Service) logWarn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}
