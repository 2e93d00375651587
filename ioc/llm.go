package ioc

import (
	"context"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/quantflow/quantflow/internal/service/llm"
	"github.com/quantflow/quantflow/internal/service/llm/gemini"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

// InitGeminiSvc returns nil when no api key is configured; code generation
// is then disabled instead of blocking startup.
func InitGeminiSvc() llm.Service {
	type Config struct {
		ApiKey      []string `mapstructure:"api_key"`
		Model       string   `mapstructure:"model"`
		Temperature float32  `mapstructure:"temperature"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("llm.gemini", &cfg); err != nil {
		panic(err)
	}

	if len(cfg.ApiKey) == 0 {
		slog.Warn("no gemini api key set, code generation disabled")
		return nil
	}

	cli, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.ApiKey[0]))
	if err != nil {
		panic(err)
	}

	opts := make([]gemini.Option, 0, 2)
	if cfg.Model != "" {
		opts = append(opts, gemini.WithModel(cfg.Model))
	}
	if cfg.Temperature > 0 {
		opts = append(opts, gemini.WithTemperature(cfg.Temperature))
	}
	return gemini.NewService(cli, opts...)
}
