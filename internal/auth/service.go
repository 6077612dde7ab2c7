package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pamoja-sacco/pamoja-sacco/internal/members"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// Notifier enqueues outbound notifications triggered by auth flows. The
// messaging module provides the implementation; delivery happens in the
// worker, never inline with the request.
type Notifier interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// Service wraps authentication business rules.
type Service struct {
	logger      *slog.Logger
	repo        members.Repository
	tokens      *TokenIssuer
	resetTokens *ResetTokenStore
	notifier    Notifier
	audit       *shared.AuditLogger
}

// NewService constructs a new Service. notifier and audit may be nil.
func NewService(logger *slog.Logger, repo members.Repository, tokens *TokenIssuer, resetTokens *ResetTokenStore, notifier Notifier, audit *shared.AuditLogger) *Service {
	return &Service{logger: logger, repo: repo, tokens: tokens, resetTokens: resetTokens, notifier: notifier, audit: audit}
}

// RegisterInput carries a registration payload that already passed the
// validation stage.
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
}

// Login validates email/password credentials and issues a session token.
// Unknown accounts, inactive accounts and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *members.Member, error) {
	member, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	if !member.IsActive {
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(member.ID, member.Role)
	if err != nil {
		return "", nil, err
	}

	s.recordAudit(ctx, member.ID, "auth.login", strconv.FormatInt(member.ID, 10), nil)
	member.PasswordHash = ""
	return token, member, nil
}

// Register creates a new member account. New registrations always get the
// member role; admin accounts are provisioned out of band.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*members.Member, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, members.Member{
		FirstName:    members.NormalizeName(in.FirstName),
		LastName:     members.NormalizeName(in.LastName),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Role:         shared.RoleMember,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, created.ID, "auth.register", strconv.FormatInt(created.ID, 10), nil)
	if s.notifier != nil {
		if err := s.notifier.EnqueueEmail(ctx, created.Email, "Welcome to Pamoja SACCO", "Your member account has been created."); err != nil {
			s.logWarn("enqueue welcome email", err)
		}
	}
	return created, nil
}

// RequestPasswordReset issues a reset token and mails it to the member.
// Unknown emails are a silent no-op so the endpoint is not an account
// oracle.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	member, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := s.resetTokens.Create(ctx, member.Email)
	if err != nil {
		return err
	}
	s.recordAudit(ctx, member.ID, "auth.reset_requested", strconv.FormatInt(member.ID, 10), nil)
	if s.notifier != nil {
		if err := s.notifier.EnqueueEmail(ctx, member.Email, "Password reset", "Your password reset code is: "+token); err != nil {
			s.logWarn("enqueue reset email", err)
		}
	}
	return nil
}

// VerifyResetToken consumes the reset token and sets the new password.
func (s *Service) VerifyResetToken(ctx context.Context, email, token, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.resetTokens.Consume(ctx, email, token); err != nil {
		return err
	}
	member, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return ErrResetTokenInvalid
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, member.ID, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, member.ID, "auth.reset_completed", strconv.FormatInt(member.ID, 10), nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "member", EntityID: entityID, Meta: meta}); err != nil {
		s.logWarn("record audit", err)
	}
}

func (s *Service) logWarn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}
