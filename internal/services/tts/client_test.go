package tts_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"newsreel/internal/services"
	"newsreel/internal/services/tts"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *tts.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return tts.NewClient(tts.Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		VoiceID: "voice-1",
	})
}

func TestSynthesizeWritesAudio(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("api key header %q", got)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	})

	out := filepath.Join(t.TempDir(), "narration.mp3")
	if err := client.Synthesize(context.Background(), "Breaking news tonight.", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Fatalf("unexpected audio content %q", data)
	}
}

func TestSynthesizeQuotaExhaustionIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"quota_exceeded"}}`))
	})

	err := client.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "a.mp3"))
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestSynthesizeRateLimitIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	err := client.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "a.mp3"))
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestSynthesizeServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	err := client.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "a.mp3"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient, got %v", err)
	}
}

func TestSynthesizeBadRequestIsFatal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported text", http.StatusBadRequest)
	})

	err := client.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "a.mp3"))
	if !errors.Is(err, services.ErrFatalProvider) {
		t.Fatalf("expected fatal, got %v", err)
	}
}

func TestSynthesizeRequiresConfiguration(t *testing.T) {
	client := tts.NewClient(tts.Config{})
	err := client.Synthesize(context.Background(), "text", "out.mp3")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
