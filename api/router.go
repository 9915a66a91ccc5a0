package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(handler *Handler, isDebug bool) *gin.Engine {
	var r *gin.Engine
	if isDebug {
		gin.SetMode(gin.DebugMode)
		r = gin.Default()
	} else {
		gin.SetMode(gin.ReleaseMode)
		r = gin.New()
		r.Use(gin.Recovery())
	}

	// TraceID 中间件 - 必须在其他中间件之前
	r.Use(TraceIDMiddleware())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Trace-ID", "X-BrowserWing-Key", "Mcp-Session-Id"},
		ExposeHeaders:    []string{"Content-Length", "X-Trace-ID", "Mcp-Session-Id"},
		AllowCredentials: false, // AllowAllOrigins 为 true 时必须设置为 false
	}))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(ApiKeyAuthenticationMiddleware(handler.config))
	{
		// 纯文本匹配，不依赖浏览器
		match := api.Group("/match")
		{
			match.POST("", handler.Match)
			match.POST("/best", handler.BestMatch)
		}

		// 在当前页面上按文本定位
		page := api.Group("/page")
		{
			page.POST("/elements", handler.ListElements)
			page.POST("/find", handler.FindByText)
			page.POST("/click", handler.ClickByText)
			page.POST("/input", handler.InputByText)
		}

		browserAPI := api.Group("/browser")
		{
			browserAPI.GET("/status", handler.BrowserStatus)
			browserAPI.POST("/connect", handler.ConnectBrowser)
			browserAPI.POST("/disconnect", handler.DisconnectBrowser)
		}

		// 定位记录
		history := api.Group("/history")
		{
			history.GET("", handler.ListLocateRecords)
			history.GET("/stats", handler.GetLocateStats)
			history.GET("/:id", handler.GetLocateRecord)
			history.DELETE("/:id", handler.DeleteLocateRecord)
			history.DELETE("", handler.ClearLocateRecords)
		}

		if handler.mcpServer != nil {
			api.Any("/mcp/message", gin.WrapF(handler.mcpServer.ServeStreamableHTTP))
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "error.notFound"})
	})

	return r
}
