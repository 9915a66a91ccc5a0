package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/browserwing/locator/config"
	"github.com/browserwing/locator/executor"
	"github.com/browserwing/locator/mcp"
	"github.com/browserwing/locator/models"
	"github.com/browserwing/locator/pkg/logger"
	"github.com/browserwing/locator/pkg/textmatch"
	"github.com/browserwing/locator/services/browser"
	"github.com/browserwing/locator/storage"
	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// BrowserController 浏览器连接管理
type BrowserController interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	Status() map[string]interface{}
}

type Handler struct {
	db             *storage.BoltDB
	browserManager BrowserController
	locator        executor.TextLocator
	config         *config.Config
	mcpServer      *mcp.MCPServer
}

func NewHandler(
	db *storage.BoltDB,
	browserMgr BrowserController,
	locator executor.TextLocator,
	cfg *config.Config,
) *Handler {
	return &Handler{
		db:             db,
		browserManager: browserMgr,
		locator:        locator,
		config:         cfg,
	}
}

// SetMCPServer 设置 MCP 服务器，挂载到 /api/v1/mcp/message
func (h *Handler) SetMCPServer(s *mcp.MCPServer) {
	h.mcpServer = s
}

// ============= 文本匹配 API =============

// Match 对请求中的候选项排序
func (h *Handler) Match(c *gin.Context) {
	var req models.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidParams"})
		return
	}

	results, err := textmatch.Match(req.Target, req.MatchCandidates(), req.MatcherConfig(h.config.Matcher.TextMatch()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidMatcherConfig", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.MatchResponse{
		Target:  req.Target,
		Results: results,
		Stats:   textmatch.Stats(results),
	})
}

// BestMatch 返回得分最高的候选项
func (h *Handler) BestMatch(c *gin.Context) {
	var req models.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidParams"})
		return
	}

	best, ok, err := textmatch.Best(req.Target, req.MatchCandidates(), req.MatcherConfig(h.config.Matcher.TextMatch()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidMatcherConfig", "detail": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "error.noMatch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"target": req.Target,
		"result": best,
	})
}

// ============= 页面定位 API =============

// FindByText 查找当前页面上匹配的元素
func (h *Handler) FindByText(c *gin.Context) {
	var req struct {
		Target string               `json:"target" binding:"required"`
		Mode   executor.ElementMode `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidParams"})
		return
	}
	if req.Mode == "" {
		req.Mode = executor.ElementModeClickable
	}
	if req.Mode != executor.ElementModeClickable && req.Mode != executor.ElementModeInput {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidMode"})
		return
	}

	options, err := h.locator.FindByText(c.Request.Context(), req.Target, req.Mode)
	if err != nil {
		h.writeLocateError(c, err)
		return
	}
	if len(options) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "error.noMatch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"target":  req.Target,
		"mode":    req.Mode,
		"results": options,
	})
}

// ClickByText 按文本点击元素
func (h *Handler) ClickByText(c *gin.Context) {
	var req struct {
		Target string `json:"target" binding:"required"`
		Index  *int   `json:"index"` // 为空时自动选择
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidParams"})
		return
	}
	index, ok := indexOrAuto(req.Index)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidIndex"})
		return
	}

	result, err := h.locator.ClickByText(c.Request.Context(), req.Target, index)
	if err != nil {
		h.writeLocateError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// InputByText 按文本定位输入框并输入
func (h *Handler) InputByText(c *gin.Context) {
	var req struct {
		Target string `json:"target" binding:"required"`
		Text   string `json:"text"`
		Index  *int   `json:"index"`
		Clear  *bool  `json:"clear"` // 默认 true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidParams"})
		return
	}
	clear := true
	if req.Clear != nil {
		clear = *req.Clear
	}
	index, ok := indexOrAuto(req.Index)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidIndex"})
		return
	}

	result, err := h.locator.InputByText(c.Request.Context(), req.Target, req.Text, index, clear)
	if err != nil {
		h.writeLocateError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// indexOrAuto 未指定时为 -1（自动选择），负数无效；小数在绑定 JSON 时已被拒绝
func indexOrAuto(index *int) (int, bool) {
	if index == nil {
		return -1, true
	}
	if *index < 0 {
		return -1, false
	}
	return *index, true
}

// ListElements 列出当前页面上可点击或可输入的元素
func (h *Handler) ListElements(c *gin.Context) {
	var req struct {
		Mode executor.ElementMode `json:"mode"`
	}
	// 请求体可以为空
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidParams"})
			return
		}
	}
	if req.Mode == "" {
		req.Mode = executor.ElementModeClickable
	}
	if req.Mode != executor.ElementModeClickable && req.Mode != executor.ElementModeInput {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidMode"})
		return
	}

	list, err := h.locator.ListElements(c.Request.Context(), req.Mode)
	if err != nil {
		h.writeLocateError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// writeLocateError 把定位错误映射为 HTTP 状态码
func (h *Handler) writeLocateError(c *gin.Context, err error) {
	var ambiguous *executor.AmbiguousError
	switch {
	case errors.As(err, &ambiguous):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "error.ambiguousMatch",
			"target":  ambiguous.Target,
			"options": ambiguous.Options,
		})
	case errors.Is(err, executor.ErrNoMatch):
		c.JSON(http.StatusNotFound, gin.H{"error": "error.noMatch"})
	case errors.Is(err, executor.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.indexOutOfRange", "detail": err.Error()})
	case errors.Is(err, browser.ErrNotConnected), errors.Is(err, browser.ErrNoPage):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "error.browserNotConnected"})
	default:
		logger.Error(c.Request.Context(), "Locate failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error.locateFailed", "detail": err.Error()})
	}
}

// ============= 浏览器连接 API =============

// BrowserStatus 获取浏览器连接状态
func (h *Handler) BrowserStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.browserManager.Status())
}

// ConnectBrowser 连接到配置中的浏览器
func (h *Handler) ConnectBrowser(c *gin.Context) {
	if h.browserManager.IsConnected() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.browserAlreadyConnected"})
		return
	}

	if err := h.browserManager.Connect(c.Request.Context()); err != nil {
		logger.Error(c.Request.Context(), "Failed to connect browser: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error.connectBrowserFailed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "success.browserConnected",
		"status":  h.browserManager.Status(),
	})
}

// DisconnectBrowser 断开浏览器连接
func (h *Handler) DisconnectBrowser(c *gin.Context) {
	if !h.browserManager.IsConnected() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.browserNotConnected"})
		return
	}

	if err := h.browserManager.Disconnect(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error.disconnectBrowserFailed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "success.browserDisconnected"})
}

// ============= 定位记录 API =============

// ListLocateRecords 列出最近的定位记录
func (h *Handler) ListLocateRecords(c *gin.Context) {
	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "error.invalidParams"})
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	records, err := h.db.ListLocateRecords(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error.getRecordsFailed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   len(records),
		"limit":   limit,
	})
}

// GetLocateRecord 获取单条定位记录
func (h *Handler) GetLocateRecord(c *gin.Context) {
	record, err := h.db.GetLocateRecord(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "error.recordNotFound"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error.getRecordsFailed"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteLocateRecord 删除单条定位记录
func (h *Handler) DeleteLocateRecord(c *gin.Context) {
	if err := h.db.DeleteLocateRecord(c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "error.recordNotFound"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error.deleteRecordFailed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "success.recordDeleted"})
}

// ClearLocateRecords 清空定位记录
func (h *Handler) ClearLocateRecords(c *gin.Context) {
	deleted, err := h.db.ClearLocateRecords()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error.deleteRecordFailed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "success.recordsCleared",
		"deleted": deleted,
	})
}

// GetLocateStats 定位记录统计
func (h *Handler) GetLocateStats(c *gin.Context) {
	stats, err := h.db.LocateStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error.getRecordsFailed"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
