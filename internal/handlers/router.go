package handlers

import (
	"net/http"

	"disaster-classifier/internal/services"
	"disaster-classifier/internal/session"
	"disaster-classifier/internal/view"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Registry   *session.Registry
	Classifier services.Classifier
	Renderer   *view.Renderer
	MaxBytes   int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.MaxMultipartMemory = cfg.MaxBytes + 1<<20
	router.SetHTMLTemplate(cfg.Renderer.Template())

	router.Use(SessionMiddleware(cfg.Registry))

	router.GET("/health", Health)
	router.StaticFS("/static", http.FS(view.Static()))

	NewSessionHandler(cfg.Renderer, cfg.MaxBytes).Register(router)

	api := router.Group("/api")
	{
		classifyHandler := NewClassifyHandler(cfg.Classifier, cfg.MaxBytes)
		api.POST("/classify", classifyHandler.Classify)
	}

	return router
}
