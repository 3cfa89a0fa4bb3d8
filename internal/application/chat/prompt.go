package chat

import (
	"fmt"
	"strings"
)

// systemPrompt 问答系统提示词
const systemPrompt = "You are an assistant that answers questions about a specific video " +
	"using the provided transcript excerpts, visual descriptions and metadata. " +
	"Cite moments using [M:SS] or [H:MM:SS] timestamps when relevant. " +
	"If the context does not contain the answer, say so instead of guessing."

// renderPrompt 将上下文渲染为单个 prompt
// 顺序固定：视频元数据、文稿片段、画面描述、相关视频、历史问答、本次提问
func renderPrompt(c *Context, query string) string {
	var b strings.Builder

	if c.Video != nil {
		b.WriteString("## Video\n")
		fmt.Fprintf(&b, "Title: %s\n", c.Video.Name)
		if c.Video.ChannelName != "" {
			fmt.Fprintf(&b, "Channel: %s\n", c.Video.ChannelName)
		}
		if c.Video.Duration > 0 {
			fmt.Fprintf(&b, "Duration: %s\n", formatTime(c.Video.Duration))
		}
		if c.Video.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", c.Video.Description)
		}
		b.WriteString("\n")
	}

	if len(c.Chunks) > 0 {
		b.WriteString("## Transcript excerpts\n")
		for _, chunk := range c.Chunks {
			fmt.Fprintf(&b, "[%s - %s]: %s\n",
				formatTime(chunk.StartTime), formatTime(chunk.EndTime), chunk.Text)
		}
		b.WriteString("\n")
	}

	if len(c.Frames) > 0 {
		b.WriteString("## Visual descriptions\n")
		for _, frame := range c.Frames {
			if frame.Description == "" {
				continue
			}
			fmt.Fprintf(&b, "[%s]: %s\n", formatTime(frame.Timestamp), frame.Description)
		}
		b.WriteString("\n")
	}

	if len(c.Related) > 0 {
		b.WriteString("## Related videos\n")
		for _, related := range c.Related {
			fmt.Fprintf(&b, "- %s (%s)\n", related.Title, related.ChannelName)
		}
		b.WriteString("\n")
	}

	if len(c.History) > 0 {
		b.WriteString("## Conversation so far\n")
		for _, exchange := range c.History {
			fmt.Fprintf(&b, "User: %s\n", exchange.Message)
			fmt.Fprintf(&b, "Assistant: %s\n", exchange.Response)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Question\n")
	b.WriteString(query)
	return b.String()
}

// fitToBudget 将上下文裁剪到 token 预算内
// 先从最旧的历史问答丢起，再从末尾丢文稿片段；提问本身永不裁剪
func fitToBudget(c *Context, query string, budget int, counter *TokenCounter) string {
	prompt := renderPrompt(c, query)
	if counter == nil || budget <= 0 {
		return prompt
	}

	for counter.CountTokens(prompt) > budget && len(c.History) > 0 {
		c.History = c.History[1:]
		prompt = renderPrompt(c, query)
	}

	for counter.CountTokens(prompt) > budget && len(c.Chunks) > 0 {
		c.Chunks = c.Chunks[:len(c.Chunks)-1]
		prompt = renderPrompt(c, query)
	}

	return prompt
}

// formatTime 将秒数格式化为 M:SS 或 H:MM:SS
func formatTime(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
