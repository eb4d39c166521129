package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, status int, body string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) ChatConfig {
	return ChatConfig{
		BaseURL:     baseURL + "/",
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		MaxTokens:   512,
		Temperature: 0.2,
	}
}

func TestAnswerSendsContextAndQuestion(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  42 \n"}}]}`, &seen)
	answerer := NewAnswerer(NewOpenAICompatibleClient(5*time.Second), testConfig(srv.URL))

	got := answerer.Answer(context.Background(), "A\nB", "what?")
	require.NoError(t, got.Err)
	assert.Equal(t, "42", got.Text)

	assert.Equal(t, "gpt-4o-mini", seen.Model)
	assert.Equal(t, 512, seen.MaxTokens)
	assert.InDelta(t, 0.2, seen.Temperature, 1e-9)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, systemPrompt, seen.Messages[0].Content)
	assert.Equal(t, "Context:\nA\nB\n\nQuestion: what?", seen.Messages[1].Content)
}

func TestAnswerWithoutKey(t *testing.T) {
	answerer := NewAnswerer(NewOpenAICompatibleClient(0), ChatConfig{BaseURL: "http://127.0.0.1:1"})

	got := answerer.Answer(context.Background(), "ctx", "q")
	assert.ErrorIs(t, got.Err, ErrMissingCredential)
	assert.Empty(t, got.Text)
}

func TestAnswerUpstreamError(t *testing.T) {
	srv := newChatServer(t, http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, nil)
	answerer := NewAnswerer(NewOpenAICompatibleClient(5*time.Second), testConfig(srv.URL))

	got := answerer.Answer(context.Background(), "ctx", "q")
	require.Error(t, got.Err)
	assert.Contains(t, got.Err.Error(), "Incorrect API key provided")
	assert.Contains(t, got.Err.Error(), "401")
}

func TestAnswerEmptyChoices(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, `{"choices":[]}`, nil)
	answerer := NewAnswerer(NewOpenAICompatibleClient(5*time.Second), testConfig(srv.URL))

	got := answerer.Answer(context.Background(), "ctx", "q")
	assert.EqualError(t, got.Err, "empty llm choices")
}
