package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"disaster-classifier/internal/config"
	"disaster-classifier/internal/handlers"
	"disaster-classifier/internal/logger"
	"disaster-classifier/internal/services"
	"disaster-classifier/internal/session"
	"disaster-classifier/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	var classifier services.Classifier
	switch cfg.Classifier {
	case config.ClassifierOpenAI:
		classifier = services.NewOpenAIClassifier(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ModelText, cfg.OpenAI.ModelImage)
	default:
		classifier = services.NewMockRandomClassifier(nil)
	}

	previewer := services.NewImagePreviewer(cfg.Upload.PreviewMaxPixel)
	registry := session.NewRegistry(classifier, cfg.Session.TTL, session.WithPreview(previewer.Preview))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go registry.Run(ctx)

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatal("Failed to load templates: ", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Registry:   registry,
		Classifier: classifier,
		Renderer:   renderer,
		MaxBytes:   cfg.Upload.MaxBytes,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown: ", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":       cfg.Port,
		"classifier": cfg.Classifier,
	}).Info("Service listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Failed to start server:", err)
	}
	logger.Info("Service stopped")
}
