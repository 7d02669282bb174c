package main

import (
	"log"
	"log/slog"

	"github.com/vbonduro/restaurantqr/internal/config"
	"github.com/vbonduro/restaurantqr/internal/gateway"
	"github.com/vbonduro/restaurantqr/internal/gateway/claude"
	"github.com/vbonduro/restaurantqr/internal/gateway/ollama"
	"github.com/vbonduro/restaurantqr/internal/logging"
	"github.com/vbonduro/restaurantqr/internal/web"
	"github.com/vbonduro/restaurantqr/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	server := web.NewServer(newGateway(cfg, logger), templates.FS, cfg.QRSize, logger)
	defer server.Close()

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newGateway(cfg *config.Config, logger *slog.Logger) gateway.Gateway {
	switch cfg.AIBackend {
	case "ollama":
		logger.Info("using Ollama AI backend", "host", cfg.OllamaHost, "model", cfg.OllamaModel)
		return ollama.New(cfg.OllamaHost, cfg.OllamaModel, logger)
	default:
		if cfg.AnthropicAPIKey == "" {
			// The app still starts; scanning and the advisor report the error.
			logger.Warn("ANTHROPIC_API_KEY is not set, AI features will fail")
		}
		logger.Info("using Claude AI backend", "model", cfg.ClaudeModel)
		return claude.New(cfg.AnthropicAPIKey, cfg.ClaudeModel, logger)
	}
}
