package icinga2

import (
	"context"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const diskFreeBody = `{"results":[{"attrs":{"last_check_result":{"output":"OK - disk free","performance_data":["used=10%"],"exit_status":0}}}]}`

// fakeAPI serves canned objects responses and records the last request
type fakeAPI struct {
	mu     sync.Mutex
	status int
	body   string
	delay  time.Duration
	last   *http.Request
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/objects/hosts", f.serveObjects)
	r.Get("/v1/objects/services", f.serveObjects)
	return r
}

func (f *fakeAPI) serveObjects(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.last = r.Clone(context.Background())
	status, body, delay := f.status, f.body, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeAPI) lastRequest(t *testing.T) *http.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		t.Fatal("no request reached the fake api")
	}
	return f.last
}

func newTestClient(t *testing.T, cfg ClientConfig) *Client {
	t.Helper()
	if cfg.Username == "" {
		cfg.Username, cfg.Password = "root", "icinga"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestEndpoint(t *testing.T) {
	client := newTestClient(t, ClientConfig{BaseURL: "https://icinga:5665/"})

	tests := []struct {
		name     string
		ref      ObjectRef
		expected string
	}{
		{"Host", ObjectRef{Host: "web1"}, "https://icinga:5665/v1/objects/hosts?host=web1"},
		{"Service", ObjectRef{Host: "web1", Service: "Disk"}, "https://icinga:5665/v1/objects/services?service=web1!Disk"},
		{"Service with space", ObjectRef{Host: "icingahost", Service: "Linux disk"}, "https://icinga:5665/v1/objects/services?service=icingahost!Linux%20disk"},
		{"Host with ampersand", ObjectRef{Host: "a&b"}, "https://icinga:5665/v1/objects/hosts?host=a%26b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.Endpoint(tt.ref); got != tt.expected {
				t.Errorf("Endpoint(%+v) = %q, want %q", tt.ref, got, tt.expected)
			}
		})
	}
}

func TestLastCheckResult_Host(t *testing.T) {
	api := &fakeAPI{body: diskFreeBody}
	srv := httptest.NewServer(api.router())
	defer srv.Close()

	client := newTestClient(t, ClientConfig{BaseURL: srv.URL})
	result, err := client.LastCheckResult(context.Background(), ObjectRef{Host: "web1"})
	if err != nil {
		t.Fatalf("LastCheckResult() error = %v", err)
	}

	expected := &CheckResult{Output: "OK - disk free", PerformanceData: []string{"used=10%"}, ExitStatus: 0}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("LastCheckResult() = %+v, want %+v", result, expected)
	}

	req := api.lastRequest(t)
	if req.URL.Path != "/v1/objects/hosts" {
		t.Errorf("path = %q", req.URL.Path)
	}
	if req.URL.Query().Get("host") != "web1" {
		t.Errorf("host query = %q", req.URL.Query().Get("host"))
	}
	if req.Header.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", req.Header.Get("Accept"))
	}
	user, pass, ok := req.BasicAuth()
	if !ok || user != "root" || pass != "icinga" {
		t.Errorf("basic auth = %q/%q (%v)", user, pass, ok)
	}
	if _, err := uuid.Parse(req.Header.Get("X-Request-ID")); err != nil {
		t.Errorf("X-Request-ID %q is not a uuid: %v", req.Header.Get("X-Request-ID"), err)
	}
}

func TestLastCheckResult_Service(t *testing.T) {
	api := &fakeAPI{body: diskFreeBody}
	srv := httptest.NewServer(api.router())
	defer srv.Close()

	client := newTestClient(t, ClientConfig{BaseURL: srv.URL + "/"})
	if _, err := client.LastCheckResult(context.Background(), ObjectRef{Host: "web1", Service: "Disk"}); err != nil {
		t.Fatalf("LastCheckResult() error = %v", err)
	}

	req := api.lastRequest(t)
	if req.URL.Path != "/v1/objects/services" {
		t.Errorf("path = %q", req.URL.Path)
	}
	if req.URL.RawQuery != "service=web1!Disk" {
		t.Errorf("raw query = %q", req.URL.RawQuery)
	}
}

func TestLastCheckResult_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		ref      ObjectRef
		check    func(t *testing.T, err error)
		contains string
	}{
		{
			name:   "Service unavailable",
			status: http.StatusServiceUnavailable,
			body:   "unavailable",
			ref:    ObjectRef{Host: "web1"},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected *APIError, got %T", err)
				}
				if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Body != "unavailable" {
					t.Errorf("unexpected api error %+v", apiErr)
				}
			},
		},
		{
			name:   "Unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":401.0,"status":"Unauthorized. Please check your user credentials."}`,
			ref:    ObjectRef{Host: "web1"},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
					t.Fatalf("expected 401 *APIError, got %v", err)
				}
			},
		},
		{
			name:     "Host not found",
			body:     `{"results":[]}`,
			ref:      ObjectRef{Host: "web1"},
			contains: "host web1 not found",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrObjectNotFound) {
					t.Errorf("expected ErrObjectNotFound, got %v", err)
				}
			},
		},
		{
			name:     "Service not found",
			body:     `{"results":[]}`,
			ref:      ObjectRef{Host: "web1", Service: "Disk"},
			contains: "service web1!Disk not found",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrObjectNotFound) {
					t.Errorf("expected ErrObjectNotFound, got %v", err)
				}
			},
		},
		{
			name:     "Malformed JSON",
			body:     `{"results":[`,
			ref:      ObjectRef{Host: "web1"},
			contains: "failed to parse api response",
		},
		{
			name:     "Pending object",
			body:     `{"results":[{"attrs":{"last_check_result":null}}]}`,
			ref:      ObjectRef{Host: "web1"},
			contains: "has no last check result",
		},
		{
			name:     "Missing exit status",
			body:     `{"results":[{"attrs":{"last_check_result":{"output":"x","performance_data":[]}}}]}`,
			ref:      ObjectRef{Host: "web1"},
			contains: "exit_status is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{status: tt.status, body: tt.body}
			srv := httptest.NewServer(api.router())
			defer srv.Close()

			client := newTestClient(t, ClientConfig{BaseURL: srv.URL})
			result, err := client.LastCheckResult(context.Background(), tt.ref)
			if err == nil {
				t.Fatalf("expected error, got result %+v", result)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.contains)
			}
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestLastCheckResult_Timeout(t *testing.T) {
	api := &fakeAPI{body: diskFreeBody, delay: 2 * time.Second}
	srv := httptest.NewServer(api.router())
	defer srv.Close()

	client := newTestClient(t, ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.LastCheckResult(context.Background(), ObjectRef{Host: "web1"})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestLastCheckResult_TLS(t *testing.T) {
	api := &fakeAPI{body: diskFreeBody}
	srv := httptest.NewTLSServer(api.router())
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(caFile, certPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		cfg       ClientConfig
		shouldErr bool
	}{
		{"Verified without trust", ClientConfig{BaseURL: srv.URL}, true},
		{"Insecure", ClientConfig{BaseURL: srv.URL, Insecure: true}, false},
		{"CA file", ClientConfig{BaseURL: srv.URL, CAFile: caFile}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.cfg)
			_, err := client.LastCheckResult(context.Background(), ObjectRef{Host: "web1"})
			if tt.shouldErr && err == nil {
				t.Error("expected certificate verification to fail")
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewClient_BadCAFile(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{garbage, filepath.Join(dir, "missing.pem")} {
		if _, err := NewClient(ClientConfig{BaseURL: "https://icinga:5665", CAFile: path}); err == nil {
			t.Errorf("NewClient() with CA file %s expected error", path)
		}
	}
}
