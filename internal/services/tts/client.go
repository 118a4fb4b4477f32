package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"newsreel/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings required to synthesize narration.
type Config struct {
	APIKey         string
	BaseURL        string
	VoiceID        string
	ModelID        string
	TimeoutSeconds int
}

// Client wraps the text-to-speech API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a synthesis client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			VoiceID:        strings.TrimSpace(cfg.VoiceID),
			ModelID:        strings.TrimSpace(cfg.ModelID),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	return client
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize converts text to speech and writes the audio to outPath.
func (c *Client) Synthesize(ctx context.Context, text, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "narrate", "synthesize", "empty script", nil)
	}
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "narrate", "synthesize", "tts api key not configured", nil)
	}
	if c.cfg.VoiceID == "" {
		return services.Wrap(services.ErrConfiguration, "narrate", "synthesize", "tts voice not configured", nil)
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "text-to-speech", c.cfg.VoiceID)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "narrate", "synthesize", "build endpoint", err)
	}

	encoded, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.cfg.ModelID})
	if err != nil {
		return services.Wrap(services.ErrFatalProvider, "narrate", "synthesize", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrFatalProvider, "narrate", "synthesize", "new request", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return services.Wrap(services.ErrTransient, "narrate", "synthesize", "http error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatus(resp.StatusCode, string(body))
	}

	file, err := os.Create(outPath)
	if err != nil {
		return services.Wrap(services.ErrTransient, "narrate", "synthesize", "create audio file", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = os.Remove(outPath)
		return services.Wrap(services.ErrTransient, "narrate", "synthesize", "write audio", err)
	}
	return nil
}

func classifyStatus(status int, body string) error {
	detail := fmt.Sprintf("http %d: %s", status, strings.TrimSpace(body))
	switch {
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusTooManyRequests,
		strings.Contains(body, "quota_exceeded"):
		return services.Wrap(services.ErrUnavailable, "narrate", "synthesize", detail, nil)
	case status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "narrate", "synthesize", detail, nil)
	default:
		return services.Wrap(services.ErrFatalProvider, "narrate", "synthesize", detail, nil)
	}
}
