package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/edytjahyadi/AI-Fashion/internal/http/handlers"
	"github.com/edytjahyadi/AI-Fashion/internal/http/httpapi"
	"github.com/edytjahyadi/AI-Fashion/internal/imaging"
	"github.com/edytjahyadi/AI-Fashion/internal/infra"
	"github.com/edytjahyadi/AI-Fashion/internal/providers/genai"
	"github.com/edytjahyadi/AI-Fashion/internal/session"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	client := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		HTTPClient: &http.Client{
			Timeout: cfg.GenerationTimeout,
		},
		Logger: logger,
	})

	store := session.NewStore()
	watermarker := imaging.NewWatermarker(cfg.WatermarkText)
	orchestrator := session.NewOrchestrator(store, client, watermarker, cfg.GenerationTimeout, logger)

	app := handlers.NewApp(cfg, logger, store, orchestrator)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("model", client.Model()).Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
