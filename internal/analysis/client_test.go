package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"callnotes/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func newTestClient(t *testing.T, url string, mut func(*config.AnalysisConfig)) *Client {
	t.Helper()
	cfg := config.AnalysisConfig{
		BaseURL: url,
		APIKey:  "sk-test",
		Model:   "gpt-test",
		Timeout: 5 * time.Second,
	}
	if mut != nil {
		mut(&cfg)
	}
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	c.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return c
}

func TestAnalyze_SendsStrictSchemaAndParsesFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(completion(`{"summary":"S","key_insights":"K","pain_points":"P","next_steps":"N"}`)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/v1/", nil)
	res, err := c.Analyze(context.Background(), "We discussed pricing...")
	require.NoError(t, err)
	assert.Equal(t, "S", res.Summary)
	assert.Equal(t, "K", res.KeyInsights)
	assert.Equal(t, "P", res.PainPoints)
	assert.Equal(t, "N", res.NextSteps)

	assert.Equal(t, "gpt-test", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Analyze this sales call transcript:\n\nWe discussed pricing...", msgs[1].(map[string]any)["content"])

	rf := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, true, js["strict"])
	schema := js["schema"].(map[string]any)
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []any{"summary", "key_insights", "pain_points", "next_steps"}, schema["required"])
}

func TestAnalyze_EmptyStringsAreValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion(`{"summary":"","key_insights":"","pain_points":"","next_steps":""}`)))
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, nil).Analyze(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "", res.Summary)
}

func TestAnalyze_RejectsNonConformingContent(t *testing.T) {
	cases := map[string]string{
		"missing field": `{"summary":"S","key_insights":"K","pain_points":"P"}`,
		"extra field":   `{"summary":"S","key_insights":"K","pain_points":"P","next_steps":"N","mood":"ok"}`,
		"wrong type":    `{"summary":1,"key_insights":"K","pain_points":"P","next_steps":"N"}`,
		"null field":    `{"summary":null,"key_insights":"K","pain_points":"P","next_steps":"N"}`,
		"not json":      `Here is your summary!`,
		"trailing data": `{"summary":"S","key_insights":"K","pain_points":"P","next_steps":"N"} garbage`,
		"stray brace":   `{"summary":"S","key_insights":"K","pain_points":"P","next_steps":"N"}}`,
		"stray bracket": `{"summary":"S","key_insights":"K","pain_points":"P","next_steps":"N"}]`,
		"two objects":   `{"summary":"S","key_insights":"K","pain_points":"P","next_steps":"N"}{}`,
		"empty":         ``,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(completion(content)))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, nil).Analyze(context.Background(), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedContent) || errors.Is(err, ErrEmptyResponse), "got %v", err)
		})
	}
}

func TestAnalyze_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).Analyze(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnalyze_NoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).Analyze(context.Background(), "x")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAnalyze_RetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(completion(`{"summary":"S","key_insights":"K","pain_points":"P","next_steps":"N"}`)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.AnalysisConfig) {
		cfg.MaxRetries = 2
		cfg.RetryBackoff = time.Second
	})
	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	res, err := c.Analyze(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "S", res.Summary)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

func TestAnalyze_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *config.AnalysisConfig) { cfg.MaxRetries = 3 })
	_, err := c.Analyze(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAnalyze_TimeoutAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL, func(cfg *config.AnalysisConfig) { cfg.Timeout = 50 * time.Millisecond })
	_, err := c.Analyze(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyze_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := newTestClient(t, srv.URL, nil).Analyze(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_RequiresSettings(t *testing.T) {
	_, err := NewClient(config.AnalysisConfig{}, nil)
	assert.Error(t, err)
}
