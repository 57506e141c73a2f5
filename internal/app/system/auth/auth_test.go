package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long"

func newTestVerifier(t *testing.T, issuer string) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(testSecret, issuer, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	return v
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	if _, err := auth.NewVerifier("", "", zap.NewNop()); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	v := newTestVerifier(t, "sparktrack-auth")

	tok, err := v.Sign(auth.Identity{ID: "s100", Name: "Asha", Role: "Student"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	id, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.ID != "S100" {
		t.Errorf("ID: got %q, want %q", id.ID, "S100")
	}
	if id.Role != "student" {
		t.Errorf("Role: got %q, want %q", id.Role, "student")
	}
	if id.Name != "Asha" {
		t.Errorf("Name: got %q, want %q", id.Name, "Asha")
	}
}

func TestVerify_Rejects(t *testing.T) {
	v := newTestVerifier(t, "sparktrack-auth")
	other, _ := auth.NewVerifier("another-secret-that-is-32-chars-long!", "sparktrack-auth", zap.NewNop())
	wrongIssuer := newTestVerifier(t, "someone-else")

	expired, _ := v.Sign(auth.Identity{ID: "S1", Role: "student"}, -time.Minute)
	foreign, _ := other.Sign(auth.Identity{ID: "S1", Role: "student"}, time.Hour)
	badIss, _ := wrongIssuer.Sign(auth.Identity{ID: "S1", Role: "student"}, time.Hour)
	noRole, _ := v.Sign(auth.Identity{ID: "S1"}, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"wrong issuer", badIss},
		{"missing role", noRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); err == nil {
				t.Error("expected verification to fail")
			}
		})
	}
}

func TestLoadIdentity_ValidBearer(t *testing.T) {
	v := newTestVerifier(t, "")
	tok, _ := v.Sign(auth.Identity{ID: "S100", Role: "student"}, time.Hour)

	var got *auth.Identity
	handler := v.LoadIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.ID != "S100" {
		t.Fatalf("expected identity S100 in context, got %+v", got)
	}
}

func TestLoadIdentity_InvalidBearerStaysAnonymous(t *testing.T) {
	v := newTestVerifier(t, "")

	called := false
	handler := v.LoadIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := auth.CurrentUser(r); ok {
			t.Error("expected no identity for invalid token")
		}
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("expected handler to be called")
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	handler := auth.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/formation/draft/x", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := auth.RequireRole("admin", "mentor")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		role     string
		expected int
	}{
		{"admin", http.StatusOK},
		{"MENTOR", http.StatusOK},
		{"student", http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/students", nil)
			if tc.role != "" {
				req = auth.WithTestUser(req, &auth.Identity{ID: "U1", Role: tc.role})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.expected {
				t.Errorf("role %q: expected status %d, got %d", tc.role, tc.expected, rec.Code)
			}
		})
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	user, ok := auth.CurrentUser(httptest.NewRequest("GET", "/", nil))
	if ok {
		t.Error("expected ok to be false when no user in context")
	}
	if user != nil {
		t.Error("expected user to be nil when no user in context")
	}
}

func TestIdentity_IsRole(t *testing.T) {
	id := &auth.Identity{ID: "A1", Role: "admin"}
	if !id.IsRole("ADMIN") {
		t.Error("expected IsRole to be case-insensitive")
	}
	var nilID *auth.Identity
	if nilID.IsRole("admin") {
		t.Error("expected nil identity to hold no role")
	}
}
