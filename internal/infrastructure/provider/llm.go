package provider

import (
	"context"
	"fmt"
	"strings"
)

// ChatRequest Chat API 请求
// 不同模型族的 token 上限参数互斥，构造时按模型名选择
type ChatRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	Temperature         *float64  `json:"temperature,omitempty"`
	MaxTokens           int       `json:"max_tokens,omitempty"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
}

// Message Chat 消息
// Content 为纯文本字符串或多模态分段数组
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ChatResponse Chat API 响应
type ChatResponse struct {
	ID      string `json:"id,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// reasoningModelPrefixes 推理模型族前缀
// 这些模型要求 max_completion_tokens 且不接受 temperature
var reasoningModelPrefixes = []string{"o1", "o3", "gpt-5"}

// isReasoningModel 判断模型是否属于推理模型族
func isReasoningModel(model string) bool {
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// buildChatRequest 按模型族构造请求参数
func (c *Client) buildChatRequest(model string, messages []Message, maxTokens int) ChatRequest {
	req := ChatRequest{
		Model:    model,
		Messages: messages,
	}

	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		temp := c.temperature
		req.Temperature = &temp
	}
	return req
}

// Chat 发送对话请求，返回回复文本和消耗的 token 总数
func (c *Client) Chat(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, int, error) {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userPrompt})

	reqBody := c.buildChatRequest(c.chatModel, messages, maxTokens)

	c.logger.Debug("Sending chat request",
		"model", c.chatModel,
		"max_tokens", maxTokens,
	)

	var chatResp ChatResponse
	if err := c.postJSON(ctx, "/chat/completions", reqBody, &chatResp); err != nil {
		return "", 0, err
	}

	if len(chatResp.Choices) == 0 {
		return "", 0, fmt.Errorf("chat API returned no choices")
	}

	c.logger.Info("Chat request successful",
		"model", c.chatModel,
		"tokens", chatResp.Usage.TotalTokens,
	)

	return chatResp.Choices[0].Message.Content, chatResp.Usage.TotalTokens, nil
}
