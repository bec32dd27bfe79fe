package validator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func probeClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func TestOpenAIProbe(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantValid bool
		wantMsg   string
	}{
		{"valid key", http.StatusOK, `{"data":[]}`, true, ""},
		{
			"rejected key with message",
			http.StatusUnauthorized,
			`{"error":{"message":"Incorrect API key"}}`,
			false,
			"Incorrect API key",
		},
		{
			"rejected key without message",
			http.StatusTooManyRequests,
			`rate limited`,
			false,
			"status 429",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/models" {
					t.Errorf("probe hit %s, want /v1/models", r.URL.Path)
				}
				gotAuth = r.Header.Get("Authorization")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			probe := &OpenAIProbe{Client: probeClient(), BaseURL: srv.URL}
			got := probe.Validate(context.Background(), Input{APIKey: "sk-live-abc"})

			if gotAuth != "Bearer sk-live-abc" {
				t.Errorf("Authorization header = %q", gotAuth)
			}
			if got.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v (message %q)", got.Valid, tt.wantValid, got.Message)
			}
			if tt.wantMsg != "" && !strings.Contains(got.Message, tt.wantMsg) {
				t.Errorf("message = %q, want substring %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestOpenAIProbeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	probe := &OpenAIProbe{Client: probeClient(), BaseURL: srv.URL}
	got := probe.Validate(context.Background(), Input{APIKey: "sk-x"})
	if got.Valid {
		t.Fatal("transport error reported as valid")
	}
	if !strings.Contains(got.Message, "could not reach") {
		t.Errorf("message = %q, want transport failure wording", got.Message)
	}
}

func TestElevenLabsProbe(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantValid bool
		wantMsg   string
	}{
		{"valid key", http.StatusOK, `{"voices":[]}`, true, ""},
		{
			"rejected with detail message",
			http.StatusUnauthorized,
			`{"detail":{"message":"invalid api key","status":"invalid_api_key"}}`,
			false,
			"invalid api key",
		},
		{
			"rejected without detail",
			http.StatusForbidden,
			`nope`,
			false,
			http.StatusText(http.StatusForbidden),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKey string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/voices" {
					t.Errorf("probe hit %s, want /v1/voices", r.URL.Path)
				}
				gotKey = r.Header.Get("xi-api-key")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			probe := &ElevenLabsProbe{Client: probeClient(), BaseURL: srv.URL}
			got := probe.Validate(context.Background(), Input{APIKey: "xi-abc"})

			if gotKey != "xi-abc" {
				t.Errorf("xi-api-key header = %q", gotKey)
			}
			if got.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v (message %q)", got.Valid, tt.wantValid, got.Message)
			}
			if tt.wantMsg != "" && !strings.Contains(got.Message, tt.wantMsg) {
				t.Errorf("message = %q, want substring %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestRunwayProbeBaseURLOverride(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/v1/user" {
			t.Errorf("probe hit %s, want /v1/user", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	probe := &RunwayProbe{Client: probeClient(), DefaultBaseURL: "http://unreachable.invalid"}

	// Submitted base URL takes precedence over the default, trailing slash trimmed.
	got := probe.Validate(context.Background(), Input{APIKey: "rw-abc", BaseURL: srv.URL + "/"})
	if !got.Valid {
		t.Fatalf("valid = false, message %q", got.Message)
	}
	if hits != 1 {
		t.Errorf("probe hits = %d, want 1", hits)
	}
}

func TestRunwayProbeRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	probe := &RunwayProbe{Client: probeClient(), DefaultBaseURL: srv.URL}
	got := probe.Validate(context.Background(), Input{APIKey: "bad"})
	if got.Valid {
		t.Fatal("401 reported as valid")
	}
	if !strings.Contains(got.Message, "status 401") {
		t.Errorf("message = %q, want status wording", got.Message)
	}
}
