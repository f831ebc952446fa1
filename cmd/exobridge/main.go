package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/square-key-labs/exobridge/src/config"
	"github.com/square-key-labs/exobridge/src/logger"
	"github.com/square-key-labs/exobridge/src/pipeline"
	"github.com/square-key-labs/exobridge/src/services/llm"
	"github.com/square-key-labs/exobridge/src/services/stt"
	"github.com/square-key-labs/exobridge/src/services/tts"
	"github.com/square-key-labs/exobridge/src/transports"
)

func main() {
	logger.Init()
	cfg := config.Load()

	sttClient := stt.NewClient(cfg.STTEndpoint, cfg.STTKey)
	ttsClient := tts.NewClient(cfg.TTSEndpoint, cfg.TTSKey, cfg.TTSVoice)

	// tiered model list: first factory that initialises wins
	var models []llm.Factory
	if cfg.GeminiKey != "" {
		models = append(models, llm.GeminiFactory(cfg.GeminiKey, cfg.GeminiModel))
		if cfg.GeminiFallbackModel != "" && cfg.GeminiFallbackModel != cfg.GeminiModel {
			models = append(models, llm.GeminiFactory(cfg.GeminiKey, cfg.GeminiFallbackModel))
		}
	}
	if cfg.LLMEndpoint != "" {
		models = append(models, llm.HTTPFactory(cfg.LLMEndpoint, cfg.LLMKey, cfg.LLMModel))
	}

	orch := pipeline.NewOrchestrator(pipeline.Config{
		STT:          sttClient,
		TTS:          ttsClient,
		Models:       models,
		SystemPrompt: cfg.SystemPrompt,
		MaxHistory:   cfg.MaxHistory,
		CallTimeout:  cfg.CallTimeout,
	})

	bridge := transports.NewBridge(transports.BridgeConfig{
		Orchestrator: orch,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/media", bridge.Handler(16000))
	e.GET("/media/8k", bridge.Handler(8000))

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", cfg.HTTPAddress)
		serverErrors <- e.Start(cfg.HTTPAddress)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error: %v", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		logger.Info("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed: %v", err)
		_ = e.Close()
	}
}
