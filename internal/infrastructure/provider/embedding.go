package provider

import (
	"context"
	"fmt"
	"time"
)

// EmbeddingRequest Embedding 请求
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingResponse Embedding 响应
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbedTexts 批量向量化文本
// 返回向量顺序与输入顺序一致
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	// OpenAI embeddings API 批量限制：每次最多 2048 个文本
	const maxBatchSize = 2048

	if len(texts) <= maxBatchSize {
		return c.embedBatch(ctx, texts)
	}

	c.logger.Info("Splitting texts into batches",
		"total_texts", len(texts),
		"batch_limit", maxBatchSize,
	)

	allVectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d: %w", i/maxBatchSize+1, err)
		}
		allVectors = append(allVectors, vectors...)
	}

	return allVectors, nil
}

// embedBatch 处理单个批次，带重试
func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	const maxRetries = 3

	reqBody := EmbeddingRequest{
		Model: c.embeddingModel,
		Input: texts,
	}

	c.logger.Debug("Sending embedding request",
		"batch_size", len(texts),
		"model", c.embeddingModel,
		"api_key", maskAPIKey(c.apiKey),
	)

	var embeddingResp EmbeddingResponse
	var err error
	for retry := 0; retry < maxRetries; retry++ {
		err = c.postJSON(ctx, "/embeddings", reqBody, &embeddingResp)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("Embedding request failed, retrying",
			"attempt", retry+1,
			"max_retries", maxRetries,
			"error", err,
		)
		if retry < maxRetries-1 {
			time.Sleep(time.Duration(retry+1) * time.Second)
		}
	}
	if err != nil {
		return nil, err
	}

	// 按 index 归位，响应顺序不保证与输入一致
	vectors := make([][]float32, len(texts))
	for _, data := range embeddingResp.Data {
		if data.Index >= 0 && data.Index < len(vectors) {
			vectors[data.Index] = data.Embedding
		}
	}
	return vectors, nil
}
