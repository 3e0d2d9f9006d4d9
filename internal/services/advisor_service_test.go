package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/logging"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

func testLLMConfig(provider, baseURL string) config.LLMConfig {
	cfg := config.GetDefaultConfig().LLM
	cfg.Provider = provider
	cfg.DeepSeek.APIKey = "sk-test"
	cfg.DeepSeek.BaseURL = baseURL
	cfg.OpenAI.APIKey = "sk-test"
	cfg.OpenAI.BaseURL = baseURL
	cfg.Anthropic.APIKey = "sk-ant-test"
	cfg.Anthropic.BaseURL = baseURL
	cfg.Ollama.BaseURL = baseURL
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ReadTimeout = 2 * time.Second
	return cfg
}

func TestDeepSeekProvider(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","model":"deepseek-chat",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"level\":\"NORMAL\"}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	svc, err := NewAdvisorService(testLLMConfig("deepseek", srv.URL+"/v1"), "eres geotecnico", logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "deepseek", svc.GetProviderName())
	assert.Equal(t, "deepseek-chat", svc.GetModelName())

	resp, err := svc.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"level":"NORMAL"}`, resp.Text)
	assert.Equal(t, 15, resp.TokensUsed)
	assert.Equal(t, "deepseek", resp.Provider)

	msgs := got["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	assert.Equal(t, "eres geotecnico", msgs[0].(map[string]interface{})["content"])
	assert.Equal(t, "prompt", msgs[1].(map[string]interface{})["content"])
}

func TestAnthropicProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sys", body["system"])

		_, _ = w.Write([]byte(`{"model":"claude","content":[{"type":"text","text":"hola"}],"usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer srv.Close()

	svc, err := NewAdvisorService(testLLMConfig("anthropic", srv.URL), "sys", nil)
	require.NoError(t, err)

	resp, err := svc.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Text)
	assert.Equal(t, 7, resp.TokensUsed)
}

func TestAnthropicProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc, err := NewAdvisorService(testLLMConfig("anthropic", srv.URL), "", nil)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestOllamaProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_, _ = w.Write([]byte(`{"model":"llama3.1","response":"{}","prompt_eval_count":2,"eval_count":1}`))
	}))
	defer srv.Close()

	svc, err := NewAdvisorService(testLLMConfig("ollama", srv.URL), "", nil)
	require.NoError(t, err)

	resp, err := svc.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text)
	assert.Equal(t, 3, resp.TokensUsed)
}

func TestNewAdvisorServiceDisabled(t *testing.T) {
	cfg := testLLMConfig("deepseek", "http://localhost")

	off := cfg
	off.Enabled = false
	_, err := NewAdvisorService(off, "", nil)
	assert.True(t, errors.Is(err, ErrAdvisorDisabled))

	dry := cfg
	dry.DryRun = true
	_, err = NewAdvisorService(dry, "", nil)
	assert.True(t, errors.Is(err, ErrAdvisorDisabled))

	t.Setenv("VIGILANTE_TEST_EMPTY_KEY", "")
	nokey := cfg
	nokey.DeepSeek.APIKey = "${VIGILANTE_TEST_EMPTY_KEY}"
	_, err = NewAdvisorService(nokey, "", nil)
	assert.True(t, errors.Is(err, ErrAdvisorDisabled))
	assert.False(t, HasCredentials(nokey))

	noURL := cfg
	noURL.DeepSeek.BaseURL = "api.deepseek.com"
	_, err = NewAdvisorService(noURL, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")

	bad := cfg
	bad.Provider = "bard"
	_, err = NewAdvisorService(bad, "", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAdvisorDisabled))
}

func TestResolveEnvVar(t *testing.T) {
	t.Setenv("VIGILANTE_TEST_KEY", "secret")
	assert.Equal(t, "secret", resolveEnvVar("${VIGILANTE_TEST_KEY}"))
	assert.Equal(t, "literal", resolveEnvVar("literal"))
}

// fakeAdvisor fails the first failures calls.
type fakeAdvisor struct {
	failures int32
	calls    atomic.Int32
}

func (f *fakeAdvisor) Complete(ctx context.Context, prompt string) (*AdvisorResponse, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, errors.New("boom")
	}
	return &AdvisorResponse{Text: "ok:" + prompt, Provider: "fake", Model: "m", TokensUsed: 1}, nil
}

func (f *fakeAdvisor) GetProviderName() string { return "fake" }
func (f *fakeAdvisor) GetModelName() string    { return "m" }

func TestRetryingAdvisorRecovers(t *testing.T) {
	fake := &fakeAdvisor{failures: 2}
	r := NewRetryingAdvisor(fake, 3, 2.0, logging.NewNop())
	r.unit = time.Millisecond

	resp, err := r.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok:p", resp.Text)
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestRetryingAdvisorExhausts(t *testing.T) {
	fake := &fakeAdvisor{failures: 10}
	r := NewRetryingAdvisor(fake, 3, 2.0, nil)
	r.unit = time.Millisecond

	_, err := r.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestRetryingAdvisorStopsOnCancel(t *testing.T) {
	fake := &fakeAdvisor{failures: 10}
	r := NewRetryingAdvisor(fake, 5, 2.0, nil)
	r.unit = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.Complete(ctx, "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestPowerBackOff(t *testing.T) {
	b := &powerBackOff{base: 2, unit: time.Second}
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())

	b = &powerBackOff{base: 0.01, unit: time.Second}
	assert.Equal(t, time.Second, b.NextBackOff(), "base^0 is one unit")
	assert.Equal(t, 100*time.Millisecond, b.NextBackOff(), "floored at 100ms")
}

func TestCachedAdvisor(t *testing.T) {
	fake := &fakeAdvisor{}
	c := NewCachedAdvisor(fake, cache.NewMemoryCache(logger.NewNop()), time.Minute, nil)

	first, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, int32(1), fake.calls.Load())

	_, err = c.Complete(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.calls.Load())
}
