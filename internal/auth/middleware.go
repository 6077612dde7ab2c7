package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pamoja-sacco/pamoja-sacco/internal/members"
	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/httpx"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// Uniform denial messages. The 401 body never reveals whether the token was
// missing, malformed or expired.
const (
	msgNotAuthorized = "Not authorized to access this route"
	msgUserNotFound  = "User not found"
)

// loadTimeout caps the principal lookup so a slow store cannot hold a
// request open indefinitely. Timing out denies with the same uniform body
// as any other lookup failure.
const loadTimeout = 5 * time.Second

// Loader fetches the principal record for a validated subject. The returned
// member never carries the password hash.
type Loader interface {
	FindByID(ctx context.Context, id int64) (*members.Member, error)
}

// Middleware wires the access guard and role authorizer pipeline stages.
// It is stateless across requests.
type Middleware struct {
	logger  *slog.Logger
	tokens  *TokenIssuer
	loader  Loader
	devMode bool
}

// NewMiddleware constructs the auth middleware. devMode controls how
// guard-ordering contract violations surface (loud in development, plain
// denial in production).
func NewMiddleware(logger *slog.Logger, tokens *TokenIssuer, loader Loader, devMode bool) Middleware {
	return Middleware{logger: logger, tokens: tokens, loader: loader, devMode: devMode}
}

type memberContextKey struct{}

// ContextWithMember stores the full principal record in context.
func ContextWithMember(ctx context.Context, m *members.Member) context.Context {
	return context.WithValue(ctx, memberContextKey{}, m)
}

// MemberFromContext extracts the full principal record attached by the
// strict guard variant.
func MemberFromContext(ctx context.Context) (*members.Member, bool) {
	m, ok := ctx.Value(memberContextKey{}).(*members.Member)
	return m, ok
}

// Protect is the minimal access guard: it verifies the bearer token and
// attaches an ID-only principal reference without touching the store.
// Handlers that need the full record must use ProtectStrict.
func (m Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.verifyRequest(w, r)
		if !ok {
			return
		}
		id, err := claims.MemberID()
		if err != nil {
			httpx.Fail(w, http.StatusUnauthorized, msgNotAuthorized)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), shared.PrincipalRef{ID: id, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ProtectStrict verifies the bearer token and loads the principal record,
// failing closed when the account no longer exists or has been deactivated.
func (m Middleware) ProtectStrict(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.verifyRequest(w, r)
		if !ok {
			return
		}
		id, err := claims.MemberID()
		if err != nil {
			httpx.Fail(w, http.StatusUnauthorized, msgNotAuthorized)
			return
		}

		loadCtx, cancel := context.WithTimeout(r.Context(), loadTimeout)
		defer cancel()
		member, err := m.loader.FindByID(loadCtx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.Fail(w, http.StatusUnauthorized, msgUserNotFound)
				return
			}
			if m.logger != nil {
				m.logger.Error("load principal", slog.Int64("member_id", id), slog.Any("error", err))
			}
			httpx.Fail(w, http.StatusUnauthorized, msgNotAuthorized)
			return
		}
		if !member.IsActive {
			httpx.Fail(w, http.StatusUnauthorized, msgUserNotFound)
			return
		}

		ctx := shared.ContextWithPrincipal(r.Context(), member.Ref())
		ctx = ContextWithMember(ctx, member)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize denies access unless the attached principal's role is in the
// allowed set. It must run after Protect or ProtectStrict; a missing
// principal here is a programming-contract violation, not a normal failure.
func (m Middleware) Authorize(roles ...shared.Role) func(http.Handler) http.Handler {
	allowed := make(map[shared.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				if m.logger != nil {
					m.logger.Error("authorize called without access guard", slog.String("path", r.URL.Path))
				}
				if m.devMode {
					httpx.Fail(w, http.StatusInternalServerError, "authorization stage reached without a principal")
					return
				}
				httpx.Fail(w, http.StatusForbidden, "User role unknown is not authorized to access this route")
				return
			}
			if _, ok := allowed[principal.Role]; !ok {
				httpx.Fail(w, http.StatusForbidden, fmt.Sprintf("User role %s is not authorized to access this route", principal.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// verifyRequest extracts and verifies the bearer token, writing the uniform
// 401 denial on any failure. A single verification attempt per request.
func (m Middleware) verifyRequest(w http.ResponseWriter, r *http.Request) (*Claims, bool) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, msgNotAuthorized)
		return nil, false
	}
	claims, err := m.tokens.Verify(raw)
	if err != nil {
		httpx.Fail(w, http.StatusUnauthorized, msgNotAuthorized)
		return nil, false
	}
	return claims, true
}

// bearerToken extracts the token from an Authorization header value. The
// "Bearer " prefix is matched case-sensitively; anything else counts as a
// missing token.
func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}
