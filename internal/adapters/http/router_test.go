package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kunometrika/bmitrack/internal/application"
	"github.com/kunometrika/bmitrack/internal/domain"
)

// captureRepo records client refs and rejects duplicates the way the
// unique index does.
type captureRepo struct {
	mu   sync.Mutex
	next uint
	refs []string
}

func (r *captureRepo) CreateEntry(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range r.refs {
		if ref == e.ClientRef {
			return domain.Entry{}, domain.ErrStoreRejected
		}
	}
	r.refs = append(r.refs, e.ClientRef)
	r.next++
	e.ID = r.next
	return e, nil
}

func (r *captureRepo) ListEntries(ctx context.Context, sessionID string) ([]domain.Entry, error) {
	return nil, nil
}

func (r *captureRepo) DeleteEntry(ctx context.Context, sessionID string, id uint) error {
	return nil
}

func newTestRouter() http.Handler {
	entries := application.NewEntryService(nil, nil)
	mailer := application.NewMailer(nil, nil)
	flows := application.NewFlowManager(entries, mailer, nil)
	return NewRouter(flows, entries, mailer)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCalculatorMintsSessionCookie(t *testing.T) {
	router := newTestRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calculator", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("no session cookie set")
	}
	if !strings.HasPrefix(sessionCookie.Value, "anon_") {
		t.Fatalf("cookie = %q", sessionCookie.Value)
	}
	if !strings.Contains(rec.Body.String(), "About you") {
		t.Fatal("identity step not rendered")
	}
}

func TestSessionCookieIsStable(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calculator", nil))
	first := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/calculator", nil)
	req.AddCookie(first)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)

	for _, c := range rec2.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != first.Value {
			t.Fatalf("session changed: %q then %q", first.Value, c.Value)
		}
	}
}

func TestFlowAdvancesThroughSteps(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calculator", nil))
	cookie := rec.Result().Cookies()[0]

	body := `{"name":"Ona","email":"ona@example.com","age":"29","gender":"female"}`
	req := httptest.NewRequest(http.MethodPost, "/flow/details", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)

	if !strings.Contains(rec2.Body.String(), "Your measurements") {
		t.Fatalf("measurement step not rendered: %s", rec2.Body.String())
	}

	body = `{"height":"170","heightUnit":"cm","weight":"70","weightUnit":"kg"}`
	req = httptest.NewRequest(http.MethodPost, "/flow/measurements", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec3 := httptest.NewRecorder()
	router.ServeHTTP(rec3, req)

	out := rec3.Body.String()
	if !strings.Contains(out, "24.2") {
		t.Fatalf("result not rendered: %s", out)
	}
	if !strings.Contains(out, "Normal weight") {
		t.Fatalf("category not rendered: %s", out)
	}
}

func TestFlowInvalidDetailsShowsFieldErrors(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calculator", nil))
	cookie := rec.Result().Cookies()[0]

	body := `{"name":"","email":"nope","age":"0","gender":""}`
	req := httptest.NewRequest(http.MethodPost, "/flow/details", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)

	out := rec2.Body.String()
	if !strings.Contains(out, "About you") {
		t.Fatal("should stay on the identity step")
	}
	if !strings.Contains(out, "field-error") {
		t.Fatal("field errors not rendered")
	}
}

func TestAPICompute(t *testing.T) {
	router := newTestRouter()

	body := `{"height":170,"weight":70,"height_unit":"cm","weight_unit":"kg"}`
	req := httptest.NewRequest(http.MethodPost, "/api/compute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		BMI      float64 `json:"bmi"`
		Category string  `json:"category"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.BMI != 24.2 || resp.Category != "Normal weight" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestAPIComputeInvalid(t *testing.T) {
	router := newTestRouter()

	body := `{"height":0,"weight":70,"height_unit":"cm","weight_unit":"kg"}`
	req := httptest.NewRequest(http.MethodPost, "/api/compute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPISaveSkippedWithoutStore(t *testing.T) {
	router := newTestRouter()

	body := `{"name":"Ona","email":"ona@example.com","age":29,"gender":"female","height":170,"weight":70,"height_unit":"cm","weight_unit":"kg","client_ref":"ref-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "anon_cli")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Skipped bool `json:"skipped"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Skipped {
		t.Fatal("unconfigured store should report skipped")
	}
}

func TestAPISaveWithoutClientRefMintsOne(t *testing.T) {
	repo := &captureRepo{}
	entries := application.NewEntryService(repo, nil)
	mailer := application.NewMailer(nil, nil)
	flows := application.NewFlowManager(entries, mailer, nil)
	router := NewRouter(flows, entries, mailer)

	body := `{"name":"Ona","email":"ona@example.com","age":29,"gender":"female","height":170,"weight":70,"height_unit":"cm","weight_unit":"kg"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Session-ID", "anon_cli")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("save %d: status = %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	if len(repo.refs) != 2 {
		t.Fatalf("refs = %v, want 2 inserts", repo.refs)
	}
	if repo.refs[0] == "" || repo.refs[1] == "" {
		t.Fatalf("minted refs must be non-empty: %v", repo.refs)
	}
	if repo.refs[0] == repo.refs[1] {
		t.Fatalf("refs collide: %v", repo.refs)
	}
}

func TestAPIEmailWithoutDispatcher(t *testing.T) {
	router := newTestRouter()

	body := `{"name":"Ona","email":"ona@example.com","age":29,"gender":"female","height":170,"weight":70,"height_unit":"cm","weight_unit":"kg"}`
	req := httptest.NewRequest(http.MethodPost, "/api/email", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Fatal("no dispatcher configured, success must be false")
	}
	if resp.Message == "" {
		t.Fatal("outcome should carry a message")
	}
}
