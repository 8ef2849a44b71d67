package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

type ClientConfig struct {
	URL        string
	APIKey     string
	MaxRetries int
	// Timeout bounds a single attempt.
	Timeout        time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type client struct {
	log        *logger.Logger
	httpClient *http.Client
	url        string
	apiKey     string
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewClient returns a Gate backed by an HTTP moderation service.
func NewClient(log *logger.Logger, cfg ClientConfig) (Gate, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("missing MODERATION_URL")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return &client{
		log:        log.With("client", "ModerationClient"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		url:        url,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.InitialBackoff,
		maxBackoff: cfg.MaxBackoff,
	}, nil
}

type verdictResponse struct {
	Status     string   `json:"status"`
	Verdict    string   `json:"verdict"`
	RiskScore  *float64 `json:"riskScore"`
	RiskScore2 *float64 `json:"risk_score"`
	Reasons    []string `json:"reasons"`
	Notes      string   `json:"notes"`
}

func (r verdictResponse) toVerdict() Verdict {
	status := r.Status
	if strings.TrimSpace(status) == "" {
		status = r.Verdict
	}
	v := Verdict{
		Status:  publishing.ParseModerationStatus(status),
		Reasons: r.Reasons,
		Notes:   strings.TrimSpace(r.Notes),
	}
	switch {
	case r.RiskScore != nil:
		v.RiskScore = *r.RiskScore
	case r.RiskScore2 != nil:
		v.RiskScore = *r.RiskScore2
	}
	if v.Reasons == nil {
		v.Reasons = []string{}
	}
	return v
}

func (c *client) Check(ctx context.Context, in Input) (Verdict, error) {
	backoff := c.backoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return Verdict{}, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, in)
		if err == nil {
			var out verdictResponse
			if uErr := json.Unmarshal(raw, &out); uErr != nil {
				return Verdict{}, fmt.Errorf("moderation decode error: %w", uErr)
			}
			return out.toVerdict(), nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return Verdict{}, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, c.maxBackoff)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("moderation request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return Verdict{}, err
		}
		backoff *= 2
	}
	return Verdict{}, fmt.Errorf("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, in Input) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(in); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
