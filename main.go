package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/browserwing/locator/api"
	"github.com/browserwing/locator/config"
	"github.com/browserwing/locator/executor"
	"github.com/browserwing/locator/mcp"
	"github.com/browserwing/locator/pkg/logger"
	"github.com/browserwing/locator/services/browser"
	"github.com/browserwing/locator/storage"
)

// 构建信息变量，通过Makefile的LDFLAGS注入
var (
	Version   = "v0.1.0"
	BuildTime = ""
	GoVersion = ""
)

func main() {
	// 命令行参数
	port := flag.String("port", "", "Server port (default: 8080)")
	host := flag.String("host", "", "Server host (default: 127.0.0.1)")
	configPath := flag.String("config", "config.toml", "Path to config file")
	controlURL := flag.String("control-url", "", "DevTools address of a running Chrome, ws://... or host:port")
	stdio := flag.Bool("stdio", false, "Serve MCP over stdin/stdout instead of HTTP")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Go Version: %s\n", GoVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 优先级: 命令行参数 > 环境变量 > 配置文件
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *controlURL != "" {
		cfg.Browser.ControlURL = *controlURL
	}

	logger.InitLogger(cfg.Log)
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	db, err := storage.NewBoltDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("✓ Database initialization successful")

	browserManager := browser.NewManager(cfg.Browser)
	textExecutor, err := executor.NewExecutorFromConfig(browserManager, cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize executor: %v", err)
	}
	log.Printf("✓ Executor initialized (candidate source: %s)", cfg.Browser.CandidateSource)

	mcpServer := mcp.NewMCPServer(textExecutor, cfg.Matcher.TextMatch())
	if err := mcpServer.Start(); err != nil {
		log.Fatalf("Failed to start MCP server: %v", err)
	}

	if *stdio {
		// stdout 属于 MCP 协议，日志只能写到 stderr 或文件
		err := mcpServer.ServeStdio()
		shutdown(ctx, nil, browserManager, db, mcpServer)
		if err != nil {
			logger.Error(ctx, "MCP stdio server stopped: %v", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Server.MCPPort != "" {
		mcpServer.StartStreamableHTTPServer(cfg.Server.Host + ":" + cfg.Server.MCPPort)
		log.Printf("✓ Streamable HTTP MCP server at http://%s:%s/mcp", cfg.Server.Host, cfg.Server.MCPPort)
	}

	handler := api.NewHandler(db, browserManager, textExecutor, cfg)
	handler.SetMCPServer(mcpServer)
	router := api.SetupRouter(handler, cfg.Debug)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	setupGracefulShutdown(srv, browserManager, db, mcpServer)

	log.Printf("🚀 Locator server started at http://%s", addr)
	if cfg.Browser.ControlURL == "" {
		log.Println("No browser control_url configured, page endpoints return 503 until one is set")
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	// 等待退出处理完成
	select {}
}

// setupGracefulShutdown 收到退出信号后依次关闭服务
func setupGracefulShutdown(srv *http.Server, browserManager *browser.Manager, db *storage.BoltDB, mcpServer *mcp.MCPServer) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received exit signal: %v", sig)

		// 最多等待 10 秒
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		shutdown(ctx, srv, browserManager, db, mcpServer)
		log.Println("Program exited")
		os.Exit(0)
	}()
}

func shutdown(ctx context.Context, srv *http.Server, browserManager *browser.Manager, db *storage.BoltDB, mcpServer *mcp.MCPServer) {
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Failed to shutdown HTTP server: %v", err)
		}
	}

	mcpServer.Stop(ctx)

	// 只断开连接，不关闭用户的浏览器
	if err := browserManager.Disconnect(ctx); err != nil {
		log.Printf("Failed to disconnect browser: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	} else {
		log.Println("✓ Database closed")
	}
}
