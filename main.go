package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantflow/quantflow/internal/repo"
	"github.com/quantflow/quantflow/internal/schedule"
	"github.com/quantflow/quantflow/internal/service/codegen"
	"github.com/quantflow/quantflow/internal/service/engine"
	"github.com/quantflow/quantflow/internal/service/exchange/provider"
	"github.com/quantflow/quantflow/internal/service/settings"
	"github.com/quantflow/quantflow/internal/web"
	"github.com/quantflow/quantflow/ioc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {
	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

func main() {
	initViper()

	db := ioc.InitDB()
	strategyRepo := repo.NewStrategyRepo(db)
	logRepo := repo.NewLogRepo(db)
	settingRepo := repo.NewSettingRepo(db)

	settingsSvc := settings.NewService(settingRepo)
	exchangeProvider := provider.NewProvider(settingsSvc)

	var generator *codegen.Generator
	if llmSvc := ioc.InitGeminiSvc(); llmSvc != nil {
		generator = codegen.NewGenerator(llmSvc)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := engine.NewSink(logRepo)
	manager := engine.NewManager(ctx, strategyRepo, logRepo, sink, exchangeProvider)
	if err := manager.Restore(ctx); err != nil {
		panic(err)
	}

	cronRunner := schedule.NewCronRunner(ctx)
	if err := cronRunner.Add("@every 20s", manager.ScheduleTask()); err != nil {
		panic(err)
	}
	cronRunner.Start()

	r := gin.Default()
	web.NewServer(manager, strategyRepo, logRepo, settingsSvc, exchangeProvider, generator).RegisterRoutes(r)

	addr := viper.GetString("http.addr")
	if addr == "" {
		addr = ":8000"
	}
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server exited", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}

	cronRunner.Stop()
	manager.Shutdown()
	sink.Close()
}
