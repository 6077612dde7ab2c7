package transactions

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// ErrInvalidAmount indicates a non-positive posting amount.
var ErrInvalidAmount = errors.New("transactions: amount must be positive")

// IdempotencyGuard rejects replayed posting requests.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service handles savings transaction business logic.
type Service struct {
	logger      *slog.Logger
	repo        Repository
	idempotency IdempotencyGuard
	audit       *shared.AuditLogger
}

// NewService builds a Service instance. idempotency and audit may be nil.
func NewService(logger *slog.Logger, repo Repository, idempotency IdempotencyGuard, audit *shared.AuditLogger) *Service {
	return &Service{logger: logger, repo: repo, idempotency: idempotency, audit: audit}
}

const idempotencyModule = "transactions"

// Deposit posts a credit to the member's savings balance.
func (s *Service) Deposit(ctx context.Context, memberID, amount int64, idempotencyKey string) (*Transaction, error) {
	return s.post(ctx, memberID, KindDeposit, amount, amount, idempotencyKey)
}

// Withdraw posts a debit against the member's savings balance. The balance
// check happens inside the posting transaction, so concurrent withdrawals
// cannot overdraw.
func (s *Service) Withdraw(ctx context.Context, memberID, amount int64, idempotencyKey string) (*Transaction, error) {
	return s.post(ctx, memberID, KindWithdrawal, amount, -amount, idempotencyKey)
}

func (s *Service) post(ctx context.Context, memberID int64, kind Kind, amount, delta int64, idempotencyKey string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if s.idempotency != nil && idempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			return nil, err
		}
	}

	posted, err := s.repo.Post(ctx, memberID, kind, amount, delta, uuid.NewString())
	if err != nil {
		// Release the key so the caller can retry a failed posting with
		// the same key.
		if s.idempotency != nil && idempotencyKey != "" {
			if delErr := s.idempotency.Delete(ctx, idempotencyKey); delErr != nil {
				s.logWarn("release idempotency key", delErr)
			}
		}
		return nil, err
	}

	s.recordAudit(ctx, memberID, "transaction."+string(kind), posted.ID)
	return posted, nil
}

// Statement returns the member's transaction history plus pagination
// metadata.
func (s *Service) Statement(ctx context.Context, filters ListFilters) ([]Transaction, shared.Pagination, error) {
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

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, txnID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "savings_transaction",
		EntityID: strconv.FormatInt(txnID, 10),
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
