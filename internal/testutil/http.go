package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/domain/models"
)

// AdminUser returns an admin identity.
func AdminUser() *auth.Identity {
	return &auth.Identity{ID: "ADMIN1", Name: "Test Admin", Role: models.RoleAdmin}
}

// MentorUser returns a mentor identity.
func MentorUser() *auth.Identity {
	return &auth.Identity{ID: "M1", Name: "Test Mentor", Role: models.RoleMentor}
}

// StudentUser returns a student identity for enrollment.
func StudentUser(enrollment string) *auth.Identity {
	return &auth.Identity{ID: enrollment, Name: "Student " + enrollment, Role: models.RoleStudent}
}

// NewJSONRequest creates a request with a JSON body and, when user is
// non-nil, an identity in context.
func NewJSONRequest(method, target string, body any, user *auth.Identity) *http.Request {
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		rdr = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, target, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = auth.WithTestUser(req, user)
	}
	return req
}

// Envelope mirrors the JSON response envelope for decoding in tests.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Errors    []struct {
		Candidate string `json:"candidate"`
		Reason    string `json:"reason"`
	} `json:"errors"`
	Details   map[string]any `json:"details"`
	Timestamp string         `json:"timestamp"`
}

// DecodeEnvelope decodes rec's body, failing the test on malformed JSON.
// When dst is non-nil, the data field is decoded into it.
func DecodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, dst any) Envelope {
	t.Helper()

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body=%s)", err, rec.Body.String())
	}
	if dst != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode envelope data: %v (data=%s)", err, env.Data)
		}
	}
	return env
}

// AssertStatus checks the response status code.
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rec.Code != expected {
		t.Errorf("status code: got %d, want %d (body=%s)", rec.Code, expected, rec.Body.String())
	}
}
