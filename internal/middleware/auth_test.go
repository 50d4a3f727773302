package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/godweb/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubTokens struct {
	tokens map[string]uuid.UUID
}

func (s *stubTokens) ValidateToken(_ context.Context, token string) (uuid.UUID, models.Role, error) {
	id, ok := s.tokens[token]
	if !ok {
		return uuid.Nil, "", errors.New("invalid token")
	}
	return id, models.RoleUser, nil
}

type stubAccounts struct {
	accounts map[uuid.UUID]*models.Account
}

func (s *stubAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return a, nil
}

// okHandler writes 200 and the account email (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if acc := AccountFromCtx(r.Context()); acc != nil {
		w.Write([]byte(acc.Email))
	}
})

func newStubs() (*stubTokens, *stubAccounts, *models.Account, *models.Account) {
	user := &models.Account{ID: uuid.New(), Email: "user@example.com", Role: models.RoleUser}
	admin := &models.Account{ID: uuid.New(), Email: "admin@godweb.com", Role: models.RoleAdmin}
	tokens := &stubTokens{tokens: map[string]uuid.UUID{"user-token": user.ID, "admin-token": admin.ID, "orphan-token": uuid.New()}}
	accounts := &stubAccounts{accounts: map[uuid.UUID]*models.Account{user.ID: user, admin.ID: admin}}
	return tokens, accounts, user, admin
}

func serve(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestBearerAuth_ValidToken(t *testing.T) {
	tokens, accounts, user, _ := newStubs()
	rec := serve(BearerAuth(tokens, accounts)(okHandler), "Bearer user-token")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); body != user.Email {
		t.Errorf("expected account email %q in body, got %q", user.Email, body)
	}
}

func TestBearerAuth_Rejects(t *testing.T) {
	tokens, accounts, _, _ := newStubs()
	mw := BearerAuth(tokens, accounts)(okHandler)

	cases := []struct {
		name   string
		header string
	}{
		{"no header at all", ""},
		{"empty bearer", "Bearer "},
		{"wrong scheme", "Basic abc123"},
		{"unknown token", "Bearer forged"},
		{"deleted account", "Bearer orphan-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := serve(mw, tc.header); rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	tokens, accounts, user, _ := newStubs()
	mw := OptionalAuth(tokens, accounts)(okHandler)

	rec := serve(mw, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "" {
		t.Errorf("anonymous: got %d %q", rec.Code, rec.Body.String())
	}
	rec = serve(mw, "Bearer user-token")
	if rec.Code != http.StatusOK || rec.Body.String() != user.Email {
		t.Errorf("authenticated: got %d %q", rec.Code, rec.Body.String())
	}
	if rec = serve(mw, "Bearer forged"); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	tokens, accounts, _, _ := newStubs()
	mw := BearerAuth(tokens, accounts)(RequireAdmin(okHandler))

	if rec := serve(mw, "Bearer admin-token"); rec.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", rec.Code)
	}
	if rec := serve(mw, "Bearer user-token"); rec.Code != http.StatusForbidden {
		t.Errorf("user: expected 403, got %d", rec.Code)
	}
	if rec := serve(RequireAdmin(okHandler), ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no account: expected 401, got %d", rec.Code)
	}
}
