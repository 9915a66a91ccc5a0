package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/browserwing/locator/config"
	"github.com/browserwing/locator/pkg/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

var (
	// ErrNotConnected 未连接浏览器
	ErrNotConnected = errors.New("browser is not connected")
	// ErrNoPage 浏览器中没有可用页面
	ErrNoPage = errors.New("no page available")
)

// Manager 连接已运行的 Chrome，并维护当前活动页面
//
// 只负责通过 DevTools 地址附加到现有浏览器，不负责启动或关闭浏览器进程。
type Manager struct {
	config *config.BrowserConfig
	mu     sync.Mutex

	browser     *rod.Browser
	cancel      context.CancelFunc // 取消连接上下文即断开 CDP 连接
	activePage  *rod.Page
	connectedAt time.Time
}

// NewManager 创建浏览器管理器
func NewManager(cfg *config.BrowserConfig) *Manager {
	if cfg == nil {
		cfg = config.Default().Browser
	}
	return &Manager{config: cfg}
}

// Connect 连接到配置中的 DevTools 地址
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

func (m *Manager) connectLocked(ctx context.Context) error {
	if m.browser != nil {
		return nil
	}

	controlURL, err := resolveControlURL(m.config.ControlURL)
	if err != nil {
		return fmt.Errorf("failed to resolve control url %q: %w", m.config.ControlURL, err)
	}

	logger.Info(ctx, "Connecting to browser: %s", controlURL)
	browserCtx, cancel := context.WithCancel(context.Background())
	browser := rod.New().Context(browserCtx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		cancel()
		return fmt.Errorf("failed to connect browser: %w", err)
	}

	m.browser = browser
	m.cancel = cancel
	m.activePage = nil
	m.connectedAt = time.Now()
	logger.Info(ctx, "Browser connected")
	return nil
}

// resolveControlURL ws:// 地址直接使用，host:port 形式通过 /json/version 解析
func resolveControlURL(raw string) (string, error) {
	if strings.HasPrefix(raw, "ws://") || strings.HasPrefix(raw, "wss://") {
		return raw, nil
	}
	return launcher.ResolveURL(raw)
}

// Disconnect 断开与浏览器的连接，不关闭浏览器本身
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil
	}

	// rod 的 Close 会关闭浏览器进程，这里只取消连接上下文
	m.cancel()
	m.cancel = nil
	m.browser = nil
	m.activePage = nil
	logger.Info(ctx, "Browser disconnected")
	return nil
}

// IsConnected 是否已连接
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil
}

// Status 连接状态
func (m *Manager) Status() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := map[string]interface{}{
		"connected":   m.browser != nil,
		"control_url": m.config.ControlURL,
	}
	if m.browser != nil {
		status["connected_at"] = m.connectedAt
	}
	if m.activePage != nil {
		if info, err := m.activePage.Info(); err == nil {
			status["page_url"] = info.URL
			status["page_title"] = info.Title
		}
	}
	return status
}

// ActivePage 返回当前活动页面，未连接时自动连接
//
// 优先沿用上次的页面；页面失效后在所有页面中选择可见的那个。
func (m *Manager) ActivePage(ctx context.Context) (*rod.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		if m.config.ControlURL == "" {
			return nil, ErrNotConnected
		}
		if err := m.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	if m.activePage != nil {
		if _, err := m.activePage.Info(); err == nil {
			return m.activePage, nil
		}
		logger.Warn(ctx, "Active page is gone, selecting another page")
		m.activePage = nil
	}

	pages, err := m.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, ErrNoPage
	}

	selected := pages[0]
	for _, page := range pages {
		res, err := page.Eval(`() => document.visibilityState`)
		if err == nil && res.Value.Str() == "visible" {
			selected = page
			break
		}
	}

	m.activePage = selected
	return selected, nil
}
