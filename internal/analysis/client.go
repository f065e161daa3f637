// Package analysis calls a hosted chat-completions endpoint to extract the structured
// fields of a sales call from its transcript.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"callnotes/internal/calls"
	"callnotes/internal/config"
	"callnotes/pkg/logger"
)

var (
	ErrEmptyResponse    = errors.New("analysis: empty response")
	ErrMalformedContent = errors.New("analysis: malformed content")
)

// StatusError is a non-2xx answer from the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis: status %d: %s", e.Code, e.Body)
}

// Retryable reports whether another attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client implements calls.Analyzer.
type Client struct {
	http       *http.Client
	endpoint   string
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration

	// sleep is injectable so retry tests do not wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client from validated config. hc may be nil.
func NewClient(cfg config.AnalysisConfig, hc *http.Client) (*Client, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" || cfg.Model == "" {
		return nil, errors.New("analysis: base url, api key and model are required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("analysis: timeout must be positive")
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		http:       hc,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    cfg.RetryBackoff,
		sleep:      sleepCtx,
	}, nil
}

var _ calls.Analyzer = (*Client)(nil)

// Analyze sends one request (plus configured retries) bounded by the client timeout and ctx.
// Cancelling ctx, e.g. on client disconnect, aborts the request.
func (c *Client) Analyze(ctx context.Context, transcript string) (calls.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(c.requestBody(transcript))
	if err != nil {
		return calls.Analysis{}, err
	}

	backoff := c.backoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.From(ctx).Warn("analysis retry", "attempt", attempt, "err", lastErr)
			if err := c.sleep(ctx, backoff); err != nil {
				return calls.Analysis{}, fmt.Errorf("%w (last error: %w)", err, lastErr)
			}
			backoff *= 2
		}

		res, err := c.do(ctx, body)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return calls.Analysis{}, lastErr
}

func (c *Client) requestBody(transcript string) map[string]any {
	return map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPromptPrefix + transcript},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schemaName,
				"strict": true,
				"schema": responseSchema,
			},
		},
	}
}

func (c *Client) do(ctx context.Context, body []byte) (calls.Analysis, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return calls.Analysis{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return calls.Analysis{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return calls.Analysis{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var wrapper struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return calls.Analysis{}, fmt.Errorf("%w: %w", ErrMalformedContent, err)
	}
	if len(wrapper.Choices) == 0 {
		return calls.Analysis{}, ErrEmptyResponse
	}
	return parseContent(wrapper.Choices[0].Message.Content)
}

// parseContent accepts exactly one JSON object holding the four string fields.
func parseContent(content string) (calls.Analysis, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return calls.Analysis{}, ErrEmptyResponse
	}

	var p struct {
		Summary     *string `json:"summary"`
		KeyInsights *string `json:"key_insights"`
		PainPoints  *string `json:"pain_points"`
		NextSteps   *string `json:"next_steps"`
	}
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return calls.Analysis{}, fmt.Errorf("%w: %w", ErrMalformedContent, err)
	}
	// More reports false before a stray '}' or ']', so require a clean EOF instead.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return calls.Analysis{}, fmt.Errorf("%w: trailing data", ErrMalformedContent)
	}
	if p.Summary == nil || p.KeyInsights == nil || p.PainPoints == nil || p.NextSteps == nil {
		return calls.Analysis{}, fmt.Errorf("%w: missing field", ErrMalformedContent)
	}
	return calls.Analysis{
		Summary:     *p.Summary,
		KeyInsights: *p.KeyInsights,
		PainPoints:  *p.PainPoints,
		NextSteps:   *p.NextSteps,
	}, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	// transport errors; a well-formed but non-conforming answer is not retried
	return !errors.Is(err, ErrMalformedContent) && !errors.Is(err, ErrEmptyResponse)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
