package auth_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pamoja-sacco/pamoja-sacco/internal/auth"
	"github.com/pamoja-sacco/pamoja-sacco/internal/members"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

type stubLoader struct {
	member *members.Member
	err    error
	calls  int
}

func (s *stubLoader) FindByID(ctx context.Context, id int64) (*members.Member, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.member, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func denialBody(t *testing.T, rec *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Success, body.Msg
}

func TestProtectDeniesBadCredentials(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	expired, err := auth.NewTokenIssuer("test-secret", -time.Hour).Issue(1, shared.RoleMember)
	require.NoError(t, err)
	foreign, err := auth.NewTokenIssuer("other-secret", time.Hour).Issue(1, shared.RoleMember)
	require.NoError(t, err)
	valid, err := issuer.Issue(1, shared.RoleMember)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"lowercase scheme", "bearer " + valid},
		{"no scheme", valid},
		{"empty token", "Bearer "},
		{"malformed token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong secret", "Bearer " + foreign},
	}

	mw := auth.NewMiddleware(testLogger(), issuer, &stubLoader{}, true)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run on denied request")
	})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.Protect(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			success, msg := denialBody(t, rec)
			assert.False(t, success)
			assert.Equal(t, "Not authorized to access this route", msg)
		})
	}
}

func TestProtectAttachesPrincipalWithoutStoreRead(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(7, shared.RoleAdmin)
	require.NoError(t, err)

	loader := &stubLoader{err: shared.ErrNotFound}
	mw := auth.NewMiddleware(testLogger(), issuer, loader, true)

	var got shared.PrincipalRef
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = shared.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw.Protect(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, found)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, shared.RoleAdmin, got.Role)
	// The minimal guard never consults the member store.
	assert.Zero(t, loader.calls)
}

func TestProtectStrictLoadsPrincipal(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(7, shared.RoleMember)
	require.NoError(t, err)

	loader := &stubLoader{member: &members.Member{ID: 7, Role: shared.RoleMember, Email: "a@b.co", IsActive: true}}
	mw := auth.NewMiddleware(testLogger(), issuer, loader, true)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, ok := auth.MemberFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "a@b.co", m.Email)
		principal, ok := shared.PrincipalFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, int64(7), principal.ID)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw.ProtectStrict(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, loader.calls)
}

func TestProtectStrictFailsClosed(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(7, shared.RoleMember)
	require.NoError(t, err)

	cases := []struct {
		name    string
		loader  *stubLoader
		wantMsg string
	}{
		{
			name:    "deleted account",
			loader:  &stubLoader{err: shared.ErrNotFound},
			wantMsg: "User not found",
		},
		{
			name:    "deactivated account",
			loader:  &stubLoader{member: &members.Member{ID: 7, Role: shared.RoleMember, IsActive: false}},
			wantMsg: "User not found",
		},
		{
			name:    "store failure",
			loader:  &stubLoader{err: context.DeadlineExceeded},
			wantMsg: "Not authorized to access this route",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mw := auth.NewMiddleware(testLogger(), issuer, tc.loader, true)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not run")
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			mw.ProtectStrict(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			success, msg := denialBody(t, rec)
			assert.False(t, success)
			assert.Equal(t, tc.wantMsg, msg)
		})
	}
}

func TestAuthorizeRoles(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	mw := auth.NewMiddleware(testLogger(), issuer, &stubLoader{}, true)

	run := func(t *testing.T, role shared.Role, allowed ...shared.Role) *httptest.ResponseRecorder {
		t.Helper()
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.PrincipalRef{ID: 1, Role: role}))
		rec := httptest.NewRecorder()
		mw.Authorize(allowed...)(next).ServeHTTP(rec, req)
		return rec
	}

	t.Run("role allowed", func(t *testing.T) {
		rec := run(t, shared.RoleAdmin, shared.RoleAdmin)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("role denied names the actual role", func(t *testing.T) {
		rec := run(t, shared.RoleMember, shared.RoleAdmin)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		success, msg := denialBody(t, rec)
		assert.False(t, success)
		assert.Equal(t, "User role member is not authorized to access this route", msg)
	})

	t.Run("multiple allowed roles", func(t *testing.T) {
		rec := run(t, shared.RoleMember, shared.RoleAdmin, shared.RoleMember)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuthorizeWithoutGuard(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	})

	t.Run("dev mode surfaces the wiring bug", func(t *testing.T) {
		mw := auth.NewMiddleware(testLogger(), issuer, &stubLoader{}, true)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rec := httptest.NewRecorder()
		mw.Authorize(shared.RoleAdmin)(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("production denies plainly", func(t *testing.T) {
		mw := auth.NewMiddleware(testLogger(), issuer, &stubLoader{}, false)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rec := httptest.NewRecorder()
		mw.Authorize(shared.RoleAdmin)(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
