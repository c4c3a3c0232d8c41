package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/manga-proxy/internal/testutil"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	cfg.ProbeTimeout = time.Second

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "default config",
			mutate:      func(*Config) {},
			expectError: false,
		},
		{
			name:        "empty base url",
			mutate:      func(c *Config) { c.BaseURL = "" },
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name:        "base url without scheme",
			mutate:      func(c *Config) { c.BaseURL = "api.shngm.io" },
			expectError: true,
			errorMsg:    `invalid base url "api.shngm.io"`,
		},
		{
			name:        "zero timeout",
			mutate:      func(c *Config) { c.Timeout = 0 },
			expectError: true,
			errorMsg:    "timeout must be > 0 (got 0s)",
		},
		{
			name:        "zero probe timeout",
			mutate:      func(c *Config) { c.ProbeTimeout = 0 },
			expectError: true,
			errorMsg:    "probe timeout must be > 0 (got 0s)",
		},
		{
			name:        "zero max body",
			mutate:      func(c *Config) { c.MaxBodyBytes = 0 },
			expectError: true,
			errorMsg:    "max body bytes must be > 0 (got 0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			client, err := New(cfg)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				if client == nil {
					t.Error("Client is nil")
				}
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != "https://api.shngm.io" {
		t.Errorf("BaseURL = %q, want https://api.shngm.io", cfg.BaseURL)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Timeout)
	}
	if cfg.ProbeTimeout != 5*time.Second {
		t.Errorf("ProbeTimeout = %v, want 5s", cfg.ProbeTimeout)
	}
	if cfg.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("MaxBodyBytes = %d, want %d", cfg.MaxBodyBytes, DefaultMaxBodyBytes)
	}
	if cfg.Referer == "" || cfg.Origin == "" || cfg.UserAgent == "" {
		t.Error("header bundle should be populated by default")
	}
}

func TestClient_URL(t *testing.T) {
	client := newTestClient(t, "https://api.example/")

	tests := []struct {
		name   string
		path   string
		params url.Values
		want   string
	}{
		{
			name: "leading slash stripped",
			path: "/v1/manga/detail/1",
			want: "https://api.example/v1/manga/detail/1",
		},
		{
			name: "no leading slash",
			path: "v1/manga/list",
			want: "https://api.example/v1/manga/list",
		},
		{
			name:   "params encoded in sorted order",
			path:   "v1/manga/list",
			params: url.Values{"page": []string{"2"}, "q": []string{"solo leveling"}},
			want:   "https://api.example/v1/manga/list?page=2&q=solo+leveling",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.URL(tt.path, tt.params); got != tt.want {
				t.Errorf("URL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_Fetch_Success(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/v1/manga/detail/7", testutil.NewDataResponse(`{"manga_id":7,"title":"Solo Leveling"}`))

	client := newTestClient(t, mock.URL())
	result := client.Fetch(context.Background(), "/v1/manga/detail/7", nil)

	if !result.OK() {
		t.Fatalf("Fetch failed: %v", result.Failure)
	}

	doc, ok := result.Payload.(map[string]any)
	if !ok {
		t.Fatalf("Payload type = %T, want map[string]any", result.Payload)
	}
	data := doc["data"].(map[string]any)
	if data["manga_id"] != json.Number("7") {
		t.Errorf("manga_id = %v, want json.Number 7", data["manga_id"])
	}
}

func TestClient_Fetch_SendsHeaderBundleAndParams(t *testing.T) {
	var gotQuery url.Values
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetHandler("/v1/manga/list", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"retcode":0,"data":[]}`))
	})

	client := newTestClient(t, mock.URL())
	client.Fetch(context.Background(), "v1/manga/list", url.Values{"page": []string{"3"}})

	headers := mock.LastRequestHeader()
	if headers.Get("User-Agent") != DefaultUserAgent {
		t.Errorf("User-Agent = %q", headers.Get("User-Agent"))
	}
	if headers.Get("Referer") != DefaultReferer {
		t.Errorf("Referer = %q, want %q", headers.Get("Referer"), DefaultReferer)
	}
	if headers.Get("Origin") != DefaultOrigin {
		t.Errorf("Origin = %q, want %q", headers.Get("Origin"), DefaultOrigin)
	}
	if gotQuery.Get("page") != "3" {
		t.Errorf("page = %q, want 3", gotQuery.Get("page"))
	}
}

func TestClient_Fetch_Classification(t *testing.T) {
	tests := []struct {
		name       string
		response   testutil.MockResponse
		wantKind   Kind
		wantStatus int
	}{
		{
			name:       "http 500",
			response:   testutil.NewServerErrorResponse(),
			wantKind:   KindHTTP,
			wantStatus: 500,
		},
		{
			name:       "http 404",
			response:   testutil.MockResponse{StatusCode: http.StatusNotFound, Body: "missing"},
			wantKind:   KindHTTP,
			wantStatus: 404,
		},
		{
			name:     "2xx body not json",
			response: testutil.NewInvalidBodyResponse(),
			wantKind: KindUnknown,
		},
		{
			name:     "timeout",
			response: testutil.NewSlowResponse(`{}`, 300*time.Millisecond),
			wantKind: KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockUpstream()
			defer mock.Close()
			mock.SetResponse("/target", tt.response)

			cfg := DefaultConfig()
			cfg.BaseURL = mock.URL()
			cfg.Timeout = 50 * time.Millisecond
			client, err := New(cfg)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			result := client.Fetch(context.Background(), "/target", nil)
			if result.OK() {
				t.Fatal("Expected failure, got success")
			}
			if result.Failure.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", result.Failure.Kind, tt.wantKind)
			}
			if result.Failure.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", result.Failure.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestClient_Fetch_BodyLimit(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	body := `{"retcode":0,"data":"` + strings.Repeat("x", 64) + `"}`
	mock.SetResponse("/large", testutil.NewJSONResponse(body))

	tests := []struct {
		name    string
		limit   int64
		wantOK  bool
		wantMsg string
	}{
		{"body exactly at limit", int64(len(body)), true, ""},
		{"body over limit", int64(len(body)) - 1, false, "response body exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.BaseURL = mock.URL()
			cfg.MaxBodyBytes = tt.limit
			client, err := New(cfg)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			result := client.Fetch(context.Background(), "/large", nil)
			if result.OK() != tt.wantOK {
				t.Fatalf("OK() = %v, want %v (%+v)", result.OK(), tt.wantOK, result.Failure)
			}
			if tt.wantOK {
				return
			}
			if result.Failure.Kind != KindUnknown {
				t.Errorf("Kind = %v, want %v", result.Failure.Kind, KindUnknown)
			}
			if !strings.Contains(result.Failure.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", result.Failure.Message, tt.wantMsg)
			}
		})
	}
}

func TestClient_Fetch_HTTPErrorMessageIncludesStatus(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/x", testutil.MockResponse{StatusCode: http.StatusBadGateway})

	client := newTestClient(t, mock.URL())
	result := client.Fetch(context.Background(), "x", nil)

	if result.OK() {
		t.Fatal("Expected failure")
	}
	doc := result.Failure.Document()
	if doc["error"] != "HTTP Error: 502" {
		t.Errorf("error = %v, want HTTP Error: 502", doc["error"])
	}
}

func TestClient_Fetch_ConnectionError(t *testing.T) {
	// Grab a free address and close it so nothing is listening.
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := newTestClient(t, addr)
	result := client.Fetch(context.Background(), "v1/manga/list", nil)

	if result.OK() {
		t.Fatal("Expected failure")
	}
	if result.Failure.Kind != KindConnection {
		t.Errorf("Kind = %v, want %v", result.Failure.Kind, KindConnection)
	}
}

func TestClient_Probe(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		mock := testutil.NewMockUpstream()
		defer mock.Close()

		client := newTestClient(t, mock.URL())
		if got := client.Probe(context.Background()); got != ProbeConnected {
			t.Errorf("Probe() = %v, want %v", got, ProbeConnected)
		}
	})

	t.Run("disconnected", func(t *testing.T) {
		mock := testutil.NewMockUpstream()
		defer mock.Close()
		mock.SetResponse("/", testutil.MockResponse{StatusCode: http.StatusServiceUnavailable})

		client := newTestClient(t, mock.URL())
		if got := client.Probe(context.Background()); got != ProbeDisconnected {
			t.Errorf("Probe() = %v, want %v", got, ProbeDisconnected)
		}
	})

	t.Run("error", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		client := newTestClient(t, addr)
		if got := client.Probe(context.Background()); got != ProbeError {
			t.Errorf("Probe() = %v, want %v", got, ProbeError)
		}
	})
}
