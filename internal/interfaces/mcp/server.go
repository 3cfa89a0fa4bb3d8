package mcp

import (
	"net/http"

	appchat "github.com/Zollege/peertube-plugin-aichat/internal/application/chat"
	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer MCP 服务器
// 通过 HTTP/SSE 集成到主 HTTP 服务器，不单独监听端口
type MCPServer struct {
	server    *mcp.Server
	handler   http.Handler
	responder *appchat.Responder
	embedder  appchat.Embedder
	store     knowledge.Store
}

// NewServer 创建 MCP 服务器并注册工具
func NewServer(
	responder *appchat.Responder,
	embedder appchat.Embedder,
	store knowledge.Store,
) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "peertube-aichat",
			Version: "0.1.0",
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:    server,
		responder: responder,
		embedder:  embedder,
		store:     store,
	}

	// 注册工具：ask_video
	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_video",
		Description: "Ask a natural-language question about a video. Parameters: video_id (int, required), " +
			"question (string, required). Returns: the answer text and the referenced timestamps in seconds.",
	}, mcpServer.askVideoTool)

	// 注册工具：get_processing_status
	mcp.AddTool(server, &mcp.Tool{
		Name: "get_processing_status",
		Description: "Get the ingestion pipeline status for a video. Parameters: video_id (int, required). " +
			"Returns: status (not_processed/pending/processing/completed/error) and the error message if any.",
	}, mcpServer.getProcessingStatusTool)

	// 注册工具：search_transcript
	mcp.AddTool(server, &mcp.Tool{
		Name: "search_transcript",
		Description: "Semantic search over a video's transcript chunks. Parameters: video_id (int, required), " +
			"query (string, required), limit (int, optional, default 5). " +
			"Returns: matching excerpts with start/end times and similarity scores.",
	}, mcpServer.searchTranscriptTool)

	// 创建 SSE Handler
	handler := mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)

	mcpServer.handler = handler
	return mcpServer
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}

// Stop 停止服务器
// HTTP/SSE 模式下生命周期由 HTTP 服务器统一管理
func (s *MCPServer) Stop() error {
	return nil
}
