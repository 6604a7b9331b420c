package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kunometrika/bmitrack/internal/domain"
)

func TestCreateEntrySendsRowAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/v1/bmi_entries" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("apikey") != "secret" || r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth headers")
		}
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if row["session_id"] != "anon_a" || row["unit_system"] != "metric" {
			t.Errorf("row = %v", row)
		}
		row["id"] = 7
		row["created_at"] = "2026-08-31T12:00:00Z"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{row})
	}))
	defer srv.Close()

	repo := NewEntryRepository(srv.URL, "secret")
	got, err := repo.CreateEntry(context.Background(), domain.Entry{
		SessionID:  "anon_a",
		ClientRef:  "ref-1",
		Name:       "Ona",
		Email:      "ona@example.com",
		Age:        29,
		Gender:     domain.GenderFemale,
		HeightCm:   170,
		WeightKg:   70,
		UnitSystem: domain.UnitMetric,
		BMI:        24.2,
		Category:   domain.CategoryNormal,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != 7 {
		t.Fatalf("id = %d, want 7", got.ID)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not parsed")
	}
}

func TestListEntriesFiltersAndOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("session_id") != "eq.anon_a" {
			t.Errorf("session filter = %q", q.Get("session_id"))
		}
		if q.Get("order") != "created_at.desc" {
			t.Errorf("order = %q", q.Get("order"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":2,"session_id":"anon_a","bmi":24.2,"category":"Normal weight"},{"id":1,"session_id":"anon_a","bmi":27.1,"category":"Overweight"}]`))
	}))
	defer srv.Close()

	repo := NewEntryRepository(srv.URL, "secret")
	entries, err := repo.ListEntries(context.Background(), "anon_a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[1].Category != domain.CategoryOverweight {
		t.Fatalf("category = %q", entries[1].Category)
	}
}

func TestDeleteEntryScopesBySession(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	repo := NewEntryRepository(srv.URL, "secret")
	if err := repo.DeleteEntry(context.Background(), "anon_a", 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotQuery != "id=eq.5&session_id=eq.anon_a" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestNetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	repo := NewEntryRepository(srv.URL, "secret")
	_, err := repo.ListEntries(context.Background(), "anon_a")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestRejectedStatusIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"duplicate key"}`, http.StatusConflict)
	}))
	defer srv.Close()

	repo := NewEntryRepository(srv.URL, "secret")
	_, err := repo.CreateEntry(context.Background(), domain.Entry{SessionID: "anon_a"})
	if !errors.Is(err, domain.ErrStoreRejected) {
		t.Fatalf("err = %v, want ErrStoreRejected", err)
	}
}
