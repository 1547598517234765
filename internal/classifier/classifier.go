package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	TypeHateSpeech = "HATE_SPEECH"
	TypeHarassment = "HARASSMENT"
	TypeSpam       = "SPAM"
	TypeNSFW       = "NSFW"
	TypeViolence   = "VIOLENCE"
	TypeSelfHarm   = "SELF_HARM"
	TypeOther      = "OTHER"
)

// Verdict is the classifier's decision for one piece of content. Raw keeps
// the full response body verbatim for audit and appeal.
type Verdict struct {
	Flagged  bool
	Category string
	Severity float64
	Raw      json.RawMessage
}

type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

type Config struct {
	URL            string
	Token          string
	TimeoutSeconds int
	MaxRetries     int
}

type Client struct {
	cfg    Config
	http   *retryablehttp.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = leveledZap{inner: logger}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}
	client.HTTPClient.Timeout = time.Duration(timeout) * time.Second
	return &Client{cfg: cfg, http: client, logger: logger}
}

type classifyResponse struct {
	Flagged  bool    `json:"flagged"`
	Category string  `json:"category"`
	Severity float64 `json:"severity"`
}

func (c *Client) Classify(ctx context.Context, text string) (Verdict, error) {
	body, err := json.Marshal(map[string]string{"input": text})
	if err != nil {
		return Verdict{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Verdict{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("classifier status %d", resp.StatusCode)
	}

	var parsed classifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Verdict{}, fmt.Errorf("classifier response: %w", err)
	}

	return Verdict{
		Flagged:  parsed.Flagged,
		Category: NormalizeCategory(parsed.Category),
		Severity: parsed.Severity,
		Raw:      json.RawMessage(raw),
	}, nil
}

// NormalizeCategory maps classifier category labels onto the stored flag
// types. Anything unrecognized becomes OTHER rather than failing the flag.
func NormalizeCategory(category string) string {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(category), "-", "_")) {
	case TypeHateSpeech, "HATE":
		return TypeHateSpeech
	case TypeHarassment, "HARASSMENT/THREATENING":
		return TypeHarassment
	case TypeSpam:
		return TypeSpam
	case TypeNSFW, "SEXUAL":
		return TypeNSFW
	case TypeViolence, "VIOLENCE/GRAPHIC":
		return TypeViolence
	case TypeSelfHarm:
		return TypeSelfHarm
	default:
		return TypeOther
	}
}

// leveledZap adapts zap to retryablehttp's leveled logger. Retry noise is
// reported at warn, not error, since the client may still succeed.
type leveledZap struct {
	inner *zap.Logger
}

func (l leveledZap) Error(msg string, keysAndValues ...any) {
	l.inner.Sugar().Warnw(msg, keysAndValues...)
}

func (l leveledZap) Warn(msg string, keysAndValues ...any) {
	l.inner.Sugar().Warnw(msg, keysAndValues...)
}

func (l leveledZap) Info(msg string, keysAndValues ...any) {
	l.inner.Sugar().Infow(msg, keysAndValues...)
}

func (l leveledZap) Debug(msg string, keysAndValues ...any) {
	l.inner.Sugar().Debugw(msg, keysAndValues...)
}
