package interfaces

import (
	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces/http"
	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces/mcp"
)

// HTTPServer HTTP 服务器类型别名，供上层组装使用
type HTTPServer = http.HTTPServer

// MCPServer MCP 服务器类型别名
type MCPServer = mcp.MCPServer
