package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kunometrika/bmitrack/internal/application"
)

type cliConfig struct {
	Transport string `json:"transport"`
	Server    string `json:"server"`
	Socket    string `json:"socket"`
}

type apiClient struct {
	httpClient *http.Client
	server     string
	session    string
}

func newAPIClient(server, session string) *apiClient {
	return &apiClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		server:     strings.TrimRight(server, "/"),
		session:    session,
	}
}

func (c *apiClient) request(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.Header.Set("X-Session-ID", c.session)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bmitrack"), nil
}

func loadConfig() (cliConfig, error) {
	dir, err := configDir()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{Transport: "uds", Server: "http://127.0.0.1:8080", Socket: "/tmp/bmitrack.sock"}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.Transport == "" {
		cfg.Transport = "uds"
	}
	if cfg.Server == "" {
		cfg.Server = "http://127.0.0.1:8080"
	}
	if cfg.Socket == "" {
		cfg.Socket = "/tmp/bmitrack.sock"
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600)
}

// fileKV backs the CLI's session identity with a small JSON file, the
// same role the cookie jar plays for the browser.
type fileKV struct {
	path string
	data map[string]string
}

func openFileKV(path string) *fileKV {
	kv := &fileKV{path: path, data: map[string]string{}}
	raw, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(raw, &kv.data)
	}
	return kv
}

func (kv *fileKV) Get(key string) (string, bool) {
	v, ok := kv.data[key]
	return v, ok
}

func (kv *fileKV) Set(key, value string) {
	kv.data[key] = value
	kv.flush()
}

func (kv *fileKV) Remove(key string) {
	delete(kv.data, key)
	kv.flush()
}

func (kv *fileKV) flush() {
	if err := os.MkdirAll(filepath.Dir(kv.path), 0o700); err != nil {
		return
	}
	data, err := json.Marshal(kv.data)
	if err != nil {
		return
	}
	_ = os.WriteFile(kv.path, data, 0o600)
}

func cliSession() (*application.SessionProvider, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	kv := openFileKV(filepath.Join(dir, "session.json"))
	return application.NewSessionProvider(kv, "cli"), nil
}
