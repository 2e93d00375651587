package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quantflow/quantflow/internal/entity"
	"github.com/quantflow/quantflow/internal/repo"
)

// GlobalConfig 全局配置, settings 表中以 JSON 存储
type GlobalConfig struct {
	Exchange      ExchangeConfig     `json:"exchange"`
	Risk          RiskConfig         `json:"risk"`
	Notifications NotificationConfig `json:"notifications"`
}

type ExchangeConfig struct {
	ApiKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
	IsTestnet bool   `json:"isTestnet"`
}

func (c ExchangeConfig) HasCredentials() bool {
	return c.ApiKey != "" && c.SecretKey != ""
}

type RiskConfig struct {
	MaxDrawdown    float64 `json:"maxDrawdown"`
	MaxLeverage    float64 `json:"maxLeverage"`
	GlobalStopLoss float64 `json:"globalStopLoss"`
}

type NotificationConfig struct {
	TelegramBotToken string `json:"telegramBotToken"`
	TelegramChatId   string `json:"telegramChatId"`
	EnableEmail      bool   `json:"enableEmail"`
}

type Service interface {
	Load(ctx context.Context) (GlobalConfig, error)
	Save(ctx context.Context, cfg GlobalConfig) error
}

type service struct {
	repo repo.SettingRepo
}

func NewService(settingRepo repo.SettingRepo) Service {
	return &service{
		repo: settingRepo,
	}
}

// Load returns the zero config when nothing has been saved yet.
func (s *service) Load(ctx context.Context) (GlobalConfig, error) {
	raw, err := s.repo.Get(ctx, entity.SettingKeyGlobalConfig)
	if err != nil {
		return GlobalConfig{}, err
	}
	if raw == "" {
		return GlobalConfig{}, nil
	}

	var cfg GlobalConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return GlobalConfig{}, fmt.Errorf("malformed global config: %w", err)
	}
	return cfg, nil
}

func (s *service) Save(ctx context.Context, cfg GlobalConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, entity.SettingKeyGlobalConfig, string(raw))
}
