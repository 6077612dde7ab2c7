package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/pamoja-sacco/pamoja-sacco/internal/auth"
	"github.com/pamoja-sacco/pamoja-sacco/internal/members"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// fakeMemberRepo is a map-backed members.Repository for handler tests.
type fakeMemberRepo struct {
	byID    map[int64]*members.Member
	byEmail map[string]*members.Member
	nextID  int64
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{
		byID:    map[int64]*members.Member{},
		byEmail: map[string]*members.Member{},
		nextID:  1,
	}
}

func (f *fakeMemberRepo) add(m members.Member) *members.Member {
	m.ID = f.nextID
	f.nextID++
	m.IsActive = true
	stored := m
	f.byID[m.ID] = &stored
	f.byEmail[m.Email] = &stored
	return &stored
}

func (f *fakeMemberRepo) List(ctx context.Context, filters members.ListFilters) ([]members.Member, int, error) {
	var out []members.Member
	for _, m := range f.byID {
		out = append(out, *m)
	}
	return out, len(out), nil
}

func (f *fakeMemberRepo) FindByID(ctx context.Context, id int64) (*members.Member, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *m
	copied.PasswordHash = ""
	return &copied, nil
}

func (f *fakeMemberRepo) FindByEmail(ctx context.Context, email string) (*members.Member, error) {
	m, ok := f.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMemberRepo) Create(ctx context.Context, m members.Member) (*members.Member, error) {
	if _, ok := f.byEmail[m.Email]; ok {
		return nil, shared.ErrDuplicateEmail
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	return f.add(m), nil
}

func (f *fakeMemberRepo) UpdateProfile(ctx context.Context, id int64, m members.Member) error {
	stored, ok := f.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	stored.FirstName = m.FirstName
	stored.LastName = m.LastName
	stored.PhoneNumber = m.PhoneNumber
	return nil
}

func (f *fakeMemberRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	stored, ok := f.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	stored.PasswordHash = passwordHash
	return nil
}

func (f *fakeMemberRepo) Deactivate(ctx context.Context, id int64) error {
	stored, ok := f.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	stored.IsActive = false
	return nil
}

type authFixture struct {
	router *chi.Mux
	repo   *fakeMemberRepo
	issuer *auth.TokenIssuer
	redis  *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newFakeMemberRepo()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	resetTokens := auth.NewResetTokenStore(client, 15*time.Minute)
	service := auth.NewService(testLogger(), repo, issuer, resetTokens, nil, nil)
	guard := auth.NewMiddleware(testLogger(), issuer, repo, true)
	handler := auth.NewHandler(testLogger(), service, guard)

	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)

	return &authFixture{router: router, repo: repo, issuer: issuer, redis: mr}
}

func (f *authFixture) seedMember(t *testing.T, email, password string, role shared.Role) *members.Member {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return f.repo.add(members.Member{
		FirstName:    "Ada",
		LastName:     "Wanjiru",
		Email:        email,
		PhoneNumber:  "+254700000001",
		Role:         role,
		PasswordHash: string(hash),
	})
}

func (f *authFixture) do(t *testing.T, method, path string, payload any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginThenValidate(t *testing.T) {
	f := newAuthFixture(t)
	f.seedMember(t, "ada@example.com", "hunter22", shared.RoleMember)

	rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "hunter22",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	var loginResp struct {
		Success bool `json:"success"`
		Data    struct {
			Token  string         `json:"token"`
			Member members.Member `json:"member"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if !loginResp.Success {
		t.Fatal("login response success = false")
	}
	if loginResp.Data.Token == "" {
		t.Fatal("login response carries no token")
	}
	if loginResp.Data.Member.Email != "ada@example.com" {
		t.Fatalf("member email = %q", loginResp.Data.Member.Email)
	}

	rec = f.do(t, http.MethodGet, "/auth/validate", nil, loginResp.Data.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"valid":true`) {
		t.Fatalf("validate body = %s", rec.Body.String())
	}
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture(t)
	m := f.seedMember(t, "ada@example.com", "hunter22", shared.RoleMember)

	cases := []struct {
		name     string
		email    string
		password string
		setup    func()
	}{
		{"wrong password", "ada@example.com", "wrong-pass", nil},
		{"unknown account", "nobody@example.com", "hunter22", nil},
		{"deactivated account", "ada@example.com", "hunter22", func() {
			f.repo.byID[m.ID].IsActive = false
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup()
			}
			rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
				"email":    tc.email,
				"password": tc.password,
			}, "")
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Invalid credentials") {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestRegisterValidatesBeforeCreating(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"first_name":   "Ada",
		"last_name":    "Wanjiru",
		"email":        "ada@example.com",
		"password":     "five5",
		"phone_number": "+254700000001",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Password") {
		t.Fatalf("body should name the failing field, got %s", rec.Body.String())
	}
	if len(f.repo.byID) != 0 {
		t.Fatal("short password must be rejected before any account is created")
	}
}

func TestRegisterAssignsMemberRole(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"first_name":   "grace",
		"last_name":    "njeri",
		"email":        "Grace@Example.com",
		"password":     "secret-pass",
		"phone_number": "+254700000002",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	created, ok := f.repo.byEmail["grace@example.com"]
	if !ok {
		t.Fatal("email was not lowercased on create")
	}
	if created.Role != shared.RoleMember {
		t.Fatalf("role = %s, self-registration must always yield member", created.Role)
	}
	if created.FirstName != "Grace" || created.LastName != "Njeri" {
		t.Fatalf("names not normalized: %s %s", created.FirstName, created.LastName)
	}
	if strings.Contains(rec.Body.String(), "password_hash") || strings.Contains(rec.Body.String(), created.PasswordHash) {
		t.Fatal("response must not leak the password hash")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedMember(t, "ada@example.com", "hunter22", shared.RoleMember)

	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"first_name":   "Ada",
		"last_name":    "Wanjiru",
		"email":        "ada@example.com",
		"password":     "another-pass",
		"phone_number": "+254700000003",
	}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body %s", rec.Code, rec.Body.String())
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	f.seedMember(t, "ada@example.com", "old-password", shared.RoleMember)

	rec := f.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"email": "ada@example.com",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset-password status = %d; body %s", rec.Code, rec.Body.String())
	}

	token, err := f.redis.Get("pwreset:ada@example.com")
	if err != nil {
		t.Fatalf("reset token not stored: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/auth/verify-reset-token", map[string]string{
		"email":        "ada@example.com",
		"token":        token,
		"new_password": "new-password",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-reset-token status = %d; body %s", rec.Code, rec.Body.String())
	}

	// Old password no longer works, new one does.
	rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "old-password",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password still accepted, status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "new-password",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("new password rejected, status = %d; body %s", rec.Code, rec.Body.String())
	}

	// The token is single use.
	rec = f.do(t, http.MethodPost, "/auth/verify-reset-token", map[string]string{
		"email":        "ada@example.com",
		"token":        token,
		"new_password": "yet-another",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("consumed token accepted, status = %d", rec.Code)
	}
}

func TestResetPasswordUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"email": "nobody@example.com",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, unknown emails must not be distinguishable", rec.Code)
	}
	if len(f.redis.Keys()) != 0 {
		t.Fatal("no token should be stored for an unknown email")
	}
}

func TestVerifyResetTokenWrongToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedMember(t, "ada@example.com", "old-password", shared.RoleMember)

	f.do(t, http.MethodPost, "/auth/reset-password", map[string]string{"email": "ada@example.com"}, "")

	rec := f.do(t, http.MethodPost, "/auth/verify-reset-token", map[string]string{
		"email":        "ada@example.com",
		"token":        "not-the-token",
		"new_password": "new-password",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401; body %s", rec.Code, rec.Body.String())
	}

	// A mismatched attempt must not burn the outstanding token.
	token, err := f.redis.Get("pwreset:ada@example.com")
	if err != nil {
		t.Fatalf("stored token gone after mismatched attempt: %v", err)
	}
	rec = f.do(t, http.MethodPost, "/auth/verify-reset-token", map[string]string{
		"email":        "ada@example.com",
		"token":        token,
		"new_password": "new-password",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("real token rejected after mismatched attempt, status = %d; body %s", rec.Code, rec.Body.String())
	}
}
