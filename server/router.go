package server

import (
	"net/http"

	"github.com/chaos-io/maskbrush/config"
	"github.com/chaos-io/maskbrush/session"
	"github.com/gin-gonic/gin"
)

var Version = "dev"

// NewRouter 注册全部路由
func NewRouter(cfg *config.Config, sessions *session.Manager) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger())
	r.Use(CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"version":  Version,
			"sessions": sessions.Len(),
		})
	})

	h := NewHandler(cfg, sessions)

	api := r.Group("/api/v1")
	{
		api.POST("/sessions", h.CreateSession)
		api.DELETE("/sessions/:id", h.DestroySession)

		s := api.Group("/sessions/:id", h.loadSession)
		s.POST("/upload", h.Upload)
		s.POST("/remove-background", h.RemoveBackground)
		s.POST("/click", h.Click)
		s.POST("/regenerate", h.Regenerate)
		s.POST("/undo", h.Undo)
		s.PUT("/brush", h.SetBrush)
		s.POST("/strokes", h.ApplyStroke)
		s.POST("/preview", h.BeginPreview)
		s.DELETE("/preview", h.EndPreview)
		s.GET("/state", h.State)
		s.GET("/display/:handle", h.Display)
		s.GET("/download", h.Download)
		s.GET("/download/remote", h.DownloadRemote)
		s.GET("/pointer", h.Pointer)
	}

	return r
}
