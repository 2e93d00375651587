package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantflow/quantflow/internal/repo"
	"github.com/quantflow/quantflow/internal/service/codegen"
	"github.com/quantflow/quantflow/internal/service/engine"
	"github.com/quantflow/quantflow/internal/service/settings"
)

// Server exposes the HTTP control surface: strategy lifecycle commands,
// settings, account info and AI code generation. All lifecycle effects go
// through the engine manager, never straight to the repo.
type Server struct {
	manager      *engine.Manager
	strategyRepo repo.StrategyRepo
	logRepo      repo.LogRepo
	settingsSvc  settings.Service
	provider     engine.ExchangeProvider
	generator    *codegen.Generator
}

func NewServer(manager *engine.Manager, strategyRepo repo.StrategyRepo, logRepo repo.LogRepo,
	settingsSvc settings.Service, provider engine.ExchangeProvider, generator *codegen.Generator) *Server {
	return &Server{
		manager:      manager,
		strategyRepo: strategyRepo,
		logRepo:      logRepo,
		settingsSvc:  settingsSvc,
		provider:     provider,
		generator:    generator,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/health", s.health)

	api.GET("/strategies", s.listStrategies)
	api.POST("/strategies", s.createStrategy)
	api.PUT("/strategies/:id", s.updateStrategy)
	api.PUT("/strategies/:id/status", s.updateStatus)
	api.DELETE("/strategies/:id", s.deleteStrategy)
	api.GET("/strategies/:id/logs", s.strategyLogs)

	api.POST("/settings", s.saveSettings)
	api.GET("/settings", s.getSettings)
	api.GET("/account", s.account)
	api.POST("/generate", s.generate)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
