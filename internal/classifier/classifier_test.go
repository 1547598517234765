package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestClassifyFlagged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"flagged":true,"category":"hate","severity":0.91,"model":"omni-1"}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Token: "secret", MaxRetries: 0}, zap.NewNop())
	verdict, err := client.Classify(context.Background(), "some text")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !verdict.Flagged {
		t.Fatalf("expected flagged verdict")
	}
	if verdict.Category != TypeHateSpeech {
		t.Fatalf("expected HATE_SPEECH, got %s", verdict.Category)
	}
	if verdict.Severity != 0.91 {
		t.Fatalf("expected severity 0.91, got %f", verdict.Severity)
	}
	if !strings.Contains(string(verdict.Raw), `"model":"omni-1"`) {
		t.Fatalf("raw payload not preserved: %s", verdict.Raw)
	}
}

func TestClassifyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, MaxRetries: 0}, zap.NewNop())
	if _, err := client.Classify(context.Background(), "text"); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"hate":        TypeHateSpeech,
		"HATE_SPEECH": TypeHateSpeech,
		"sexual":      TypeNSFW,
		"self-harm":   TypeSelfHarm,
		"spam":        TypeSpam,
		"gibberish":   TypeOther,
		"":            TypeOther,
	}
	for input, want := range cases {
		if got := NormalizeCategory(input); got != want {
			t.Fatalf("NormalizeCategory(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCachedClassifier(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"flagged":false,"category":"","severity":0}`))
	}))
	defer server.Close()

	cached, err := NewCached(NewClient(Config{URL: server.URL}, zap.NewNop()), 8)
	if err != nil {
		t.Fatalf("new cached: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := cached.Classify(context.Background(), "same text"); err != nil {
			t.Fatalf("classify: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}

	if _, err := cached.Classify(context.Background(), "other text"); err != nil {
		t.Fatalf("classify: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls.Load())
	}
}
