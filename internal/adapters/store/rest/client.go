package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kunometrika/bmitrack/internal/domain"
)

const entriesTable = "bmi_entries"

// EntryRepository talks to a hosted PostgREST-style row store. Transport
// failures map to ErrStoreUnavailable, declined writes to
// ErrStoreRejected, so callers never see raw HTTP errors.
type EntryRepository struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewEntryRepository(baseURL, apiKey string) *EntryRepository {
	return &EntryRepository{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type entryRow struct {
	ID         uint    `json:"id,omitempty"`
	SessionID  string  `json:"session_id"`
	ClientRef  string  `json:"client_ref"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Age        int     `json:"age"`
	Gender     string  `json:"gender"`
	HeightCm   float64 `json:"height_cm"`
	WeightKg   float64 `json:"weight_kg"`
	UnitSystem string  `json:"unit_system"`
	BMI        float64 `json:"bmi"`
	Category   string  `json:"category"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

func (r *EntryRepository) CreateEntry(ctx context.Context, value domain.Entry) (domain.Entry, error) {
	row := entryRow{
		SessionID:  value.SessionID,
		ClientRef:  value.ClientRef,
		Name:       value.Name,
		Email:      value.Email,
		Age:        value.Age,
		Gender:     string(value.Gender),
		HeightCm:   value.HeightCm,
		WeightKg:   value.WeightKg,
		UnitSystem: string(value.UnitSystem),
		BMI:        value.BMI,
		Category:   string(value.Category),
	}

	var created []entryRow
	err := r.request(ctx, http.MethodPost, "/rest/v1/"+entriesTable, nil, row, &created)
	if err != nil {
		return domain.Entry{}, err
	}
	if len(created) == 0 {
		return domain.Entry{}, fmt.Errorf("%w: empty insert response", domain.ErrStoreRejected)
	}
	return toDomain(created[0]), nil
}

func (r *EntryRepository) ListEntries(ctx context.Context, sessionID string) ([]domain.Entry, error) {
	query := url.Values{}
	query.Set("session_id", "eq."+sessionID)
	query.Set("order", "created_at.desc")

	var rows []entryRow
	if err := r.request(ctx, http.MethodGet, "/rest/v1/"+entriesTable, query, nil, &rows); err != nil {
		return nil, err
	}
	result := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomain(row))
	}
	return result, nil
}

func (r *EntryRepository) DeleteEntry(ctx context.Context, sessionID string, id uint) error {
	query := url.Values{}
	query.Set("id", fmt.Sprintf("eq.%d", id))
	query.Set("session_id", "eq."+sessionID)

	return r.request(ctx, http.MethodDelete, "/rest/v1/"+entriesTable, query, nil, nil)
}

func (r *EntryRepository) request(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}

	target := r.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: store error (%d): %s", domain.ErrStoreRejected, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toDomain(row entryRow) domain.Entry {
	entry := domain.Entry{
		ID:         row.ID,
		SessionID:  row.SessionID,
		ClientRef:  row.ClientRef,
		Name:       row.Name,
		Email:      row.Email,
		Age:        row.Age,
		Gender:     domain.Gender(row.Gender),
		HeightCm:   row.HeightCm,
		WeightKg:   row.WeightKg,
		UnitSystem: domain.UnitSystem(row.UnitSystem),
		BMI:        row.BMI,
		Category:   domain.Category(row.Category),
	}
	if row.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, row.CreatedAt); err == nil {
			entry.CreatedAt = ts
		}
	}
	return entry
}
