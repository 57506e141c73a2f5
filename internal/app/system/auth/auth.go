// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Identity                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// Identity is the resolved caller: who they are and what role they hold.
// For students, ID is the enrollment number.
type Identity struct {
	ID   string
	Name string
	Role string
}

// IsRole reports whether the identity holds role (case-insensitive).
func (id *Identity) IsRole(role string) bool {
	return id != nil && strings.EqualFold(id.Role, role)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the identity & "found?" flag.
func CurrentUser(r *http.Request) (*Identity, bool) {
	u, ok := r.Context().Value(currentUserKey).(*Identity)
	return u, ok
}

// WithTestUser injects an identity directly, bypassing token verification.
func WithTestUser(r *http.Request, u *Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Bearer token verification                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier resolves bearer tokens issued by the external auth service.
type Verifier struct {
	secret []byte
	issuer string
	log    *zap.Logger
}

// NewVerifier builds a Verifier for HS256 tokens signed with secret.
// When issuer is non-empty, tokens must carry a matching "iss" claim.
func NewVerifier(secret, issuer string, logger *zap.Logger) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, log: logger}, nil
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	sub, err := c.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return nil, errors.New("token has no subject")
	}
	if c.Role == "" {
		return nil, errors.New("token has no role")
	}

	return &Identity{
		ID:   strings.ToUpper(strings.TrimSpace(sub)),
		Name: c.Name,
		Role: strings.ToLower(c.Role),
	}, nil
}

// Sign issues a token for id. The real issuer lives in the external auth
// service; this is used by tests and local tooling.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Name: id.Name,
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}

// LoadIdentity injects the caller identity into context when the request
// carries a valid bearer token. Missing or invalid tokens leave the request
// anonymous; RequireSignedIn decides what that means.
func (v *Verifier) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		id, err := v.Verify(raw)
		if err != nil {
			v.log.Debug("bearer token rejected", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, WithTestUser(r, id))
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Guards                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn ensures there is an identity in context.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		respond.Error(w, r, nil, apperr.Unauthorized("authentication required"))
	})
}

// RequireRole ensures the identity in context holds one of the allowed roles.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				respond.Error(w, r, nil, apperr.Unauthorized("authentication required"))
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				respond.Error(w, r, nil, apperr.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// helpers

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
