package mcp

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/browserwing/locator/executor"
	"github.com/browserwing/locator/pkg/logger"
	"github.com/browserwing/locator/pkg/textmatch"
)

const (
	serverName    = "browserwing-locator"
	serverVersion = "0.1.0"
)

// MCPServer 使用 mcp-go 库实现的 MCP 服务器
type MCPServer struct {
	ctx    context.Context
	cancel context.CancelFunc

	mcpServer            *server.MCPServer
	streamableHTTPServer *server.StreamableHTTPServer
	standaloneServer     *server.StreamableHTTPServer
	registry             *executor.MCPToolRegistry
}

// NewMCPServer 创建 MCP 服务器，locator 为空时只提供 text_match
func NewMCPServer(locator executor.TextLocator, matcher textmatch.Config) *MCPServer {
	ctx, cancel := context.WithCancel(context.Background())

	s := &MCPServer{
		ctx:    ctx,
		cancel: cancel,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)

	// 挂载到 gin 路由时使用
	s.streamableHTTPServer = server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath("/api/v1/mcp/message"),
	)

	s.registry = executor.NewMCPToolRegistry(locator, matcher, s.mcpServer)
	return s
}

// Start 注册所有工具
func (s *MCPServer) Start() error {
	if err := s.registry.RegisterAllTools(); err != nil {
		return err
	}
	logger.Info(s.ctx, "MCP server started")
	return nil
}

// Stop 停止 MCP 服务
func (s *MCPServer) Stop(ctx context.Context) {
	if s.standaloneServer != nil {
		if err := s.standaloneServer.Shutdown(ctx); err != nil {
			logger.Warn(ctx, "Failed to shutdown streamable HTTP server: %v", err)
		}
	}
	logger.Info(s.ctx, "MCP server stopped")
	s.cancel()
}

// ServeStdio 通过标准输入输出提供服务，阻塞直到输入结束
func (s *MCPServer) ServeStdio() error {
	logger.Info(s.ctx, "Serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// StartStreamableHTTPServer 在独立端口上提供 Streamable HTTP 服务
func (s *MCPServer) StartStreamableHTTPServer(addr string) {
	httpServer := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath("/mcp"),
	)
	s.standaloneServer = httpServer
	go func() {
		logger.Info(s.ctx, "Streamable HTTP MCP server listening on %s", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error(s.ctx, "Failed to start streamable HTTP server: %v", err)
		}
	}()
}

// ServeStreamableHTTP 处理挂载在 API 路由下的 MCP 请求
func (s *MCPServer) ServeStreamableHTTP(w http.ResponseWriter, r *http.Request) {
	logger.Debug(r.Context(), "MCP request: Method=%s, Path=%s, RemoteAddr=%s", r.Method, r.URL.Path, r.RemoteAddr)
	s.streamableHTTPServer.ServeHTTP(w, r)
}
