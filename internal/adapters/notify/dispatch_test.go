package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInvokePostsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/v1/send-bmi-email" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer fn-key" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		if payload["to"] != "ona@example.com" {
			t.Errorf("payload = %v", payload)
		}
		_, _ = w.Write([]byte(`{"emailId":"em_1"}`))
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, "fn-key")
	body, err := d.Invoke(context.Background(), "send-bmi-email", map[string]string{"to": "ona@example.com"})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if string(body) != `{"emailId":"em_1"}` {
		t.Fatalf("body = %s", body)
	}
}

func TestInvokeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad recipient"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, "fn-key")
	if _, err := d.Invoke(context.Background(), "send-bmi-email", nil); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestInvokeNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := NewDispatcher(srv.URL, "fn-key")
	if _, err := d.Invoke(context.Background(), "send-bmi-email", nil); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}
