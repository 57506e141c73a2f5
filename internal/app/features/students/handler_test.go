package students_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/features/students"
	studentstore "github.com/sparktrack/sparktrack/internal/app/store/students"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/app/system/indexes"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"github.com/sparktrack/sparktrack/internal/testutil"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (chi.Router, *studentstore.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	store := studentstore.New(db)
	h := students.NewHandler(store, nil, zap.NewNop())
	return students.Routes(h), store, testutil.NewFixtures(t, db)
}

func csvRequest(body string, user *auth.Identity) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	if user != nil {
		req = auth.WithTestUser(req, user)
	}
	return req
}

type importData struct {
	Inserted int64 `json:"inserted"`
	Updated  int64 `json:"updated"`
	Rejected int   `json:"rejected"`
	Errors   []struct {
		Line   int    `json:"line"`
		Reason string `json:"reason"`
	} `json:"errors"`
}

func TestImport_RawBody(t *testing.T) {
	router, store, _ := newTestRouter(t)

	body := "enrollment_no,full_name,class,contact,email\n" +
		"S100,Asha Patil,TY-CS-1,9000000001,asha@college.test\n" +
		"S101,Ravi Kumar,TY-CS-1\n"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, csvRequest(body, testutil.AdminUser()))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var out importData
	testutil.DecodeEnvelope(t, rec, &out)
	if out.Inserted != 2 {
		t.Errorf("inserted: got %d, want 2", out.Inserted)
	}
	if out.Rejected != 0 || len(out.Errors) != 0 {
		t.Errorf("rejected: got %d (%v), want 0", out.Rejected, out.Errors)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	st, err := store.GetByEnrollment(ctx, "S100")
	if err != nil {
		t.Fatalf("GetByEnrollment failed: %v", err)
	}
	if st.Class != "TY-CS-1" {
		t.Errorf("class: got %q, want %q", st.Class, "TY-CS-1")
	}
}

func TestImport_Multipart_UpsertsAndItemizes(t *testing.T) {
	router, store, f := newTestRouter(t)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	f.CreateStudent(ctx, "S100", "Old Name", "SY-CS-1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("csv", "roster.csv")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	_, _ = part.Write([]byte("S100,Asha Patil,TY-CS-1\nS102,,TY-CS-1\nS103,Meera Shah,TY-CS-1\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = auth.WithTestUser(req, testutil.AdminUser())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var out importData
	testutil.DecodeEnvelope(t, rec, &out)
	if out.Inserted != 1 || out.Updated != 1 {
		t.Errorf("inserted/updated: got %d/%d, want 1/1", out.Inserted, out.Updated)
	}
	if out.Rejected != 1 || len(out.Errors) != 1 {
		t.Fatalf("rejected: got %d, want 1", out.Rejected)
	}
	if out.Errors[0].Line != 2 {
		t.Errorf("error line: got %d, want 2", out.Errors[0].Line)
	}

	st, err := store.GetByEnrollment(ctx, "S100")
	if err != nil {
		t.Fatalf("GetByEnrollment failed: %v", err)
	}
	if st.FullName != "Asha Patil" || st.Class != "TY-CS-1" {
		t.Errorf("updated record: got %q/%q, want %q/%q", st.FullName, st.Class, "Asha Patil", "TY-CS-1")
	}
}

func TestImport_AllRowsInvalid(t *testing.T) {
	router, store, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, csvRequest("S100,Asha\n,,\n", testutil.AdminUser()))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	env := testutil.DecodeEnvelope(t, rec, nil)
	if _, ok := env.Details["row_errors"]; !ok {
		t.Errorf("details.row_errors missing: %v", env.Details)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("students stored: got %d, want 0", n)
	}
}

func TestImport_EmptyFile(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, csvRequest("enrollment_no,full_name,class\n", testutil.AdminUser()))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestImport_AdminOnly(t *testing.T) {
	router, _, _ := newTestRouter(t)

	tests := []struct {
		name string
		user *auth.Identity
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"student", testutil.StudentUser("S100"), http.StatusForbidden},
		{"mentor", testutil.MentorUser(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, csvRequest("S100,Asha Patil,TY-CS-1\n", tt.user))
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
}

func TestServeStudent(t *testing.T) {
	router, _, f := newTestRouter(t)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	f.CreateStudent(ctx, "S100", "Asha Patil", "TY-CS-1")

	tests := []struct {
		name   string
		target string
		user   *auth.Identity
		want   int
	}{
		{"self", "/S100", testutil.StudentUser("S100"), http.StatusOK},
		{"self lower-case path", "/s100", testutil.StudentUser("S100"), http.StatusOK},
		{"mentor", "/S100", testutil.MentorUser(), http.StatusOK},
		{"other student", "/S100", testutil.StudentUser("S101"), http.StatusForbidden},
		{"missing", "/S999", testutil.AdminUser(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, testutil.NewJSONRequest(http.MethodGet, tt.target, nil, tt.user))
			testutil.AssertStatus(t, rec, tt.want)

			if tt.want != http.StatusOK {
				return
			}
			var st models.Student
			testutil.DecodeEnvelope(t, rec, &st)
			if st.EnrollmentNo != "S100" {
				t.Errorf("enrollment_no: got %q, want %q", st.EnrollmentNo, "S100")
			}
		})
	}
}

func TestServeList(t *testing.T) {
	router, _, f := newTestRouter(t)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	f.CreateStudent(ctx, "S100", "Asha Rao", "TY-CS-1")
	f.CreateStudent(ctx, "S101", "Aarav Shah", "TY-CS-1")
	f.CreateStudent(ctx, "S200", "Meera Iyer", "SY-IT")

	type listData struct {
		Items   []models.Student `json:"items"`
		Total   int64            `json:"total"`
		HasNext bool             `json:"has_next"`
		HasPrev bool             `json:"has_prev"`
	}

	tests := []struct {
		name   string
		target string
		user   *auth.Identity
		status int
		want   []string
	}{
		{"admin sees everyone", "/", testutil.AdminUser(), http.StatusOK, []string{"S101", "S100", "S200"}},
		{"mentor filters by class", "/?class=ty-cs-1", testutil.MentorUser(), http.StatusOK, []string{"S101", "S100"}},
		{"name prefix", "/?q=mee", testutil.AdminUser(), http.StatusOK, []string{"S200"}},
		{"no match", "/?q=zz", testutil.AdminUser(), http.StatusOK, []string{}},
		{"student forbidden", "/", testutil.StudentUser("S100"), http.StatusForbidden, nil},
		{"anonymous", "/", nil, http.StatusUnauthorized, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, testutil.NewJSONRequest(http.MethodGet, tt.target, nil, tt.user))
			testutil.AssertStatus(t, rec, tt.status)
			if tt.status != http.StatusOK {
				return
			}

			var out listData
			testutil.DecodeEnvelope(t, rec, &out)
			if out.Total != int64(len(tt.want)) {
				t.Errorf("total: got %d, want %d", out.Total, len(tt.want))
			}
			if out.HasNext || out.HasPrev {
				t.Errorf("paging: got has_prev=%v has_next=%v, want single page", out.HasPrev, out.HasNext)
			}
			if len(out.Items) != len(tt.want) {
				t.Fatalf("items: got %d, want %d", len(out.Items), len(tt.want))
			}
			for i, st := range out.Items {
				if st.EnrollmentNo != tt.want[i] {
					t.Errorf("items[%d]: got %q, want %q", i, st.EnrollmentNo, tt.want[i])
				}
			}
		})
	}
}
