package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Dispatcher invokes named serverless functions on the hosted endpoint.
// The email function lives behind it; the caller decides what a failed
// invocation means.
type Dispatcher struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewDispatcher(baseURL, apiKey string) *Dispatcher {
	return &Dispatcher{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (d *Dispatcher) Invoke(ctx context.Context, name string, payload any) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/functions/v1/"+name, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("function %s failed (%d): %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
