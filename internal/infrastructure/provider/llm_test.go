package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
)

func testClient(baseURL string) *Client {
	cfg := config.Default()
	cfg.Provider.BaseURL = baseURL
	cfg.Provider.APIKey = "test-key"
	cfg.Provider.ChatModel = "gpt-4o-mini"
	cfg.Provider.Temperature = 0.7
	return NewClient(cfg)
}

func TestBuildChatRequest_ModelFamilies(t *testing.T) {
	c := testClient("http://localhost")
	messages := []Message{{Role: "user", Content: "hi"}}

	t.Run("常规模型使用 max_tokens 和 temperature", func(t *testing.T) {
		req := c.buildChatRequest("gpt-4o-mini", messages, 500)
		assert.Equal(t, 500, req.MaxTokens)
		assert.Zero(t, req.MaxCompletionTokens)
		require.NotNil(t, req.Temperature)
		assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
	})

	t.Run("推理模型使用 max_completion_tokens 且不带 temperature", func(t *testing.T) {
		for _, model := range []string{"o1-mini", "o3", "gpt-5-turbo"} {
			req := c.buildChatRequest(model, messages, 500)
			assert.Equal(t, 500, req.MaxCompletionTokens, model)
			assert.Zero(t, req.MaxTokens, model)
			assert.Nil(t, req.Temperature, model)
		}
	})

	t.Run("序列化后互斥参数不同时出现", func(t *testing.T) {
		data, err := json.Marshal(c.buildChatRequest("o1-mini", messages, 100))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "max_tokens")
		assert.NotContains(t, string(data), "temperature")
		assert.Contains(t, string(data), "max_completion_tokens")
	})
}

func TestClient_Chat(t *testing.T) {
	var received ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "答案在 [1:05]"}},
			},
			"usage": map[string]int{"total_tokens": 42},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := testClient(server.URL)
	reply, tokens, err := c.Chat(context.Background(), "system prompt", "user question", 1000)

	require.NoError(t, err)
	assert.Equal(t, "答案在 [1:05]", reply)
	assert.Equal(t, 42, tokens)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, "user", received.Messages[1].Role)
}

func TestClient_Chat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := testClient(server.URL)
	_, _, err := c.Chat(context.Background(), "", "question", 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_EmbedTexts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// 逆序返回，验证按 index 归位
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[len(req.Input)-1-i] = map[string]any{
				"embedding": []float32{float32(i), 1},
				"index":     i,
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer server.Close()

	c := testClient(server.URL)
	vectors, err := c.EmbedTexts(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 1}, vectors[0])
	assert.Equal(t, []float32{2, 1}, vectors[2])
}

func TestClient_EmbedTexts_Empty(t *testing.T) {
	c := testClient("http://localhost")
	_, err := c.EmbedTexts(context.Background(), nil)
	require.Error(t, err)
}
