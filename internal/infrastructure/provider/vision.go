package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
)

// contentPart 多模态消息分段
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// framePrompt 帧描述指令
const framePrompt = "Describe what is visible in this video frame in one or two sentences. " +
	"Focus on concrete content: people, text, diagrams, actions. Do not speculate."

// DescribeImage 调用视觉模型描述图片内容
// 图片以 base64 data URL 内嵌到请求中
func (c *Client) DescribeImage(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	messages := []Message{
		{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: framePrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: fmt.Sprintf("data:image/jpeg;base64,%s", encoded),
				}},
			},
		},
	}

	reqBody := c.buildChatRequest(c.visionModel, messages, 300)

	c.logger.Debug("Sending vision request",
		"model", c.visionModel,
		"image", imagePath,
		"image_bytes", len(data),
	)

	var chatResp ChatResponse
	if err := c.postJSON(ctx, "/chat/completions", reqBody, &chatResp); err != nil {
		return "", err
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("vision API returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}
