package mcp

import (
	"context"
	"errors"

	appchat "github.com/Zollege/peertube-plugin-aichat/internal/application/chat"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskVideoInput ask_video 工具输入
type AskVideoInput struct {
	VideoID  int64  `json:"video_id" jsonschema:"视频 ID"`
	Question string `json:"question" jsonschema:"自然语言问题"`
}

// AskVideoOutput ask_video 工具输出
type AskVideoOutput struct {
	Status     string `json:"status" jsonschema:"ok 或 not_processed"`
	Reply      string `json:"reply,omitempty" jsonschema:"回答文本"`
	Timestamps []int  `json:"timestamps,omitempty" jsonschema:"回答中引用的时间点（秒）"`
}

// askVideoTool 对视频提问
func (s *MCPServer) askVideoTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AskVideoInput,
) (*mcp.CallToolResult, AskVideoOutput, error) {
	answer, err := s.responder.Ask(ctx, input.VideoID, "", input.Question)
	if err != nil {
		if errors.Is(err, appchat.ErrNotProcessed) {
			return nil, AskVideoOutput{Status: "not_processed"}, nil
		}
		return nil, AskVideoOutput{}, err
	}

	return nil, AskVideoOutput{
		Status:     "ok",
		Reply:      answer.Reply,
		Timestamps: answer.Timestamps,
	}, nil
}

// ProcessingStatusInput get_processing_status 工具输入
type ProcessingStatusInput struct {
	VideoID int64 `json:"video_id" jsonschema:"视频 ID"`
}

// ProcessingStatusOutput get_processing_status 工具输出
type ProcessingStatusOutput struct {
	Status       string `json:"status" jsonschema:"处理状态"`
	ErrorMessage string `json:"error_message,omitempty" jsonschema:"error 状态的原因"`
	ProcessedAt  string `json:"processed_at,omitempty" jsonschema:"处理完成时间"`
}

// getProcessingStatusTool 查询摄取状态
func (s *MCPServer) getProcessingStatusTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProcessingStatusInput,
) (*mcp.CallToolResult, ProcessingStatusOutput, error) {
	record, err := s.store.GetProcessing(ctx, input.VideoID)
	if err != nil {
		return nil, ProcessingStatusOutput{}, err
	}
	if record == nil {
		return nil, ProcessingStatusOutput{Status: "not_processed"}, nil
	}

	output := ProcessingStatusOutput{
		Status:       record.Status,
		ErrorMessage: record.ErrorMessage,
	}
	if record.ProcessedAt != nil {
		output.ProcessedAt = record.ProcessedAt.Format("2006-01-02 15:04:05")
	}
	return nil, output, nil
}

// SearchTranscriptInput search_transcript 工具输入
type SearchTranscriptInput struct {
	VideoID int64  `json:"video_id" jsonschema:"视频 ID"`
	Query   string `json:"query" jsonschema:"检索语句"`
	Limit   int    `json:"limit,omitempty" jsonschema:"返回条数，默认 5"`
}

// TranscriptMatch 检索命中的文稿片段
type TranscriptMatch struct {
	StartTime float64 `json:"start_time" jsonschema:"起始秒"`
	EndTime   float64 `json:"end_time" jsonschema:"结束秒"`
	Text      string  `json:"text" jsonschema:"片段文本"`
	Score     float32 `json:"score" jsonschema:"相似度得分"`
}

// SearchTranscriptOutput search_transcript 工具输出
type SearchTranscriptOutput struct {
	Matches []TranscriptMatch `json:"matches" jsonschema:"命中片段列表"`
}

// searchTranscriptTool 语义检索文稿片段
func (s *MCPServer) searchTranscriptTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchTranscriptInput,
) (*mcp.CallToolResult, SearchTranscriptOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{input.Query})
	if err != nil || len(vectors) == 0 {
		return nil, SearchTranscriptOutput{}, err
	}

	chunks, err := s.store.SimilaritySearch(ctx, input.VideoID, vectors[0], limit)
	if err != nil {
		return nil, SearchTranscriptOutput{}, err
	}

	output := SearchTranscriptOutput{Matches: make([]TranscriptMatch, 0, len(chunks))}
	for _, chunk := range chunks {
		output.Matches = append(output.Matches, TranscriptMatch{
			StartTime: chunk.StartTime,
			EndTime:   chunk.EndTime,
			Text:      chunk.Text,
			Score:     chunk.Score,
		})
	}
	return nil, output, nil
}
