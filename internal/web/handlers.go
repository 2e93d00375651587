package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantflow/quantflow/internal/entity"
	"github.com/quantflow/quantflow/internal/repo"
	"github.com/quantflow/quantflow/internal/service/engine"
	"github.com/quantflow/quantflow/internal/service/settings"
	"github.com/samber/lo"
)

const recentLogLimit = 50

type strategyView struct {
	Id            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Code          string    `json:"code"`
	Symbol        string    `json:"symbol"`
	Status        string    `json:"status"`
	ScheduleStart string    `json:"scheduleStart"`
	ScheduleEnd   string    `json:"scheduleEnd"`
	PnlDay        float64   `json:"pnlDay"`
	CreatedAt     time.Time `json:"createdAt"`
	Logs          []logView `json:"logs"`
}

type logView struct {
	Id        int64     `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type strategyRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	Code          string `json:"code" binding:"required"`
	Symbol        string `json:"symbol"`
	ScheduleStart string `json:"scheduleStart"`
	ScheduleEnd   string `json:"scheduleEnd"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type generateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Server) listStrategies(c *gin.Context) {
	strategies, err := s.strategyRepo.FindAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]strategyView, 0, len(strategies))
	for _, strategy := range strategies {
		views = append(views, s.toView(c, strategy))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) createStrategy(c *gin.Context) {
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strategy, err := s.manager.Create(c.Request.Context(), entity.Strategy{
		Name:          req.Name,
		Description:   req.Description,
		Code:          req.Code,
		Symbol:        req.Symbol,
		ScheduleStart: req.ScheduleStart,
		ScheduleEnd:   req.ScheduleEnd,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.toView(c, strategy))
}

func (s *Server) updateStrategy(c *gin.Context) {
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.manager.Update(c.Request.Context(), entity.Strategy{
		Id:            c.Param("id"),
		Name:          req.Name,
		Description:   req.Description,
		Code:          req.Code,
		Symbol:        req.Symbol,
		ScheduleStart: req.ScheduleStart,
		ScheduleEnd:   req.ScheduleEnd,
	})
	if err != nil {
		s.lifecycleError(c, err)
		return
	}

	strategy, err := s.strategyRepo.FindById(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.toView(c, strategy))
}

// updateStatus maps the requested target status to a lifecycle command, so
// the manager stays the only writer of strategy state.
func (s *Server) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	ctx := c.Request.Context()
	var err error
	switch req.Status {
	case entity.StatusRunning, entity.StatusScheduled:
		err = s.manager.Start(ctx, id)
	case entity.StatusPaused:
		err = s.manager.Pause(ctx, id)
	case entity.StatusStopped:
		err = s.manager.Stop(ctx, id)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported target status: " + req.Status})
		return
	}
	if err != nil {
		s.lifecycleError(c, err)
		return
	}

	status, err := s.manager.Status(ctx, id)
	if err != nil {
		s.lifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": status})
}

func (s *Server) deleteStrategy(c *gin.Context) {
	if err := s.manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.lifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) strategyLogs(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.strategyRepo.FindById(c.Request.Context(), id); err != nil {
		s.lifecycleError(c, err)
		return
	}

	logs, err := s.logRepo.FindByStrategyId(c.Request.Context(), id, recentLogLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lo.Map(logs, func(l entity.Log, _ int) logView {
		return toLogView(l)
	}))
}

func (s *Server) saveSettings(c *gin.Context) {
	var cfg settings.GlobalConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.settingsSvc.Save(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func (s *Server) getSettings(c *gin.Context) {
	cfg, err := s.settingsSvc.Load(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) account(c *gin.Context) {
	svc, err := s.provider.Acquire(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	info, err := svc.GetAccountInfo(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalBalance":     info.TotalBalance,
		"availableBalance": info.AvailableBalance,
		"unrealizedPnl":    info.UnrealizedPnl,
		"usedMargin":       info.UsedMargin,
	})
}

func (s *Server) generate(c *gin.Context) {
	if s.generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "code generation is not configured"})
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := s.generator.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

func (s *Server) toView(c *gin.Context, strategy entity.Strategy) strategyView {
	logs, err := s.logRepo.FindByStrategyId(c.Request.Context(), strategy.Id, recentLogLimit)
	if err != nil {
		logs = nil
	}
	return strategyView{
		Id:            strategy.Id,
		Name:          strategy.Name,
		Description:   strategy.Description,
		Code:          strategy.Code,
		Symbol:        strategy.Symbol,
		Status:        strategy.Status,
		ScheduleStart: strategy.ScheduleStart,
		ScheduleEnd:   strategy.ScheduleEnd,
		PnlDay:        strategy.PnlDay,
		CreatedAt:     strategy.CreatedAt,
		Logs: lo.Map(logs, func(l entity.Log, _ int) logView {
			return toLogView(l)
		}),
	}
}

func toLogView(l entity.Log) logView {
	return logView{
		Id:        l.Id,
		Level:     l.Level,
		Message:   l.Message,
		Timestamp: l.CreatedAt,
	}
}

func (s *Server) lifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repo.ErrStrategyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrStrategyActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
