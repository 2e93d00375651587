package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quantflow/quantflow/internal/entity"
	"github.com/quantflow/quantflow/internal/service/exchange/paper"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alwaysBuyCode = `
	function on_tick(data) {
		buy("BTCUSDT", 0.01);
	}
`

func testStrategy(code string) entity.Strategy {
	return entity.Strategy{
		Id:            "s1",
		Name:          "test strategy",
		Code:          code,
		Status:        entity.StatusStopped,
		ScheduleStart: "00:00",
		ScheduleEnd:   "23:59",
	}
}

func TestRunner_TradeLogged(t *testing.T) {
	logRepo := newMemLogRepo()
	sink := NewSink(logRepo)
	defer sink.Close()

	provider := &stubProvider{svc: paper.NewExchange(decimal.NewFromInt(100000))}
	runner := NewRunner(testStrategy(alwaysBuyCode), provider, sink,
		WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	// a TRADE entry naming symbol and quantity must appear within two polls
	require.Eventually(t, func() bool {
		sink.Flush()
		for _, l := range logRepo.entriesFor("s1") {
			if l.Level == entity.LogLevelTrade &&
				strings.Contains(l.Message, "BTCUSDT") && strings.Contains(l.Message, "0.01") {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	sink.Flush()
	entries := logRepo.entriesFor("s1")
	last := entries[len(entries)-1]
	assert.Equal(t, entity.LogLevelInfo, last.Level)
	assert.Equal(t, "strategy stopped", last.Message)
}

func TestRunner_AcquireFailureIsSetupFault(t *testing.T) {
	logRepo := newMemLogRepo()
	sink := NewSink(logRepo)
	defer sink.Close()

	provider := &stubProvider{err: errors.New("bad credentials")}
	runner := NewRunner(testStrategy(alwaysBuyCode), provider, sink)

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange init failed")

	sink.Flush()
	var sawError bool
	for _, l := range logRepo.entriesFor("s1") {
		if l.Level == entity.LogLevelError && strings.Contains(l.Message, "bad credentials") {
			sawError = true
		}
	}
	assert.True(t, sawError, "setup fault must be visible in the strategy log")
}

func TestRunner_MissingEntryPointIsSetupFault(t *testing.T) {
	logRepo := newMemLogRepo()
	sink := NewSink(logRepo)
	defer sink.Close()

	provider := &stubProvider{svc: paper.NewExchange(decimal.NewFromInt(1000))}
	runner := NewRunner(testStrategy(`var notAStrategy = true;`), provider, sink)

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy code rejected")
}

func TestRunner_TickFaultKeepsLoopAlive(t *testing.T) {
	logRepo := newMemLogRepo()
	sink := NewSink(logRepo)
	defer sink.Close()

	provider := &stubProvider{svc: paper.NewExchange(decimal.NewFromInt(1000))}
	runner := NewRunner(testStrategy(`
		function on_tick(data) {
			throw new Error("always failing");
		}
	`), provider, sink, WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	// errors accumulate while the runner stays alive
	require.Eventually(t, func() bool {
		sink.Flush()
		count := 0
		for _, l := range logRepo.entriesFor("s1") {
			if l.Level == entity.LogLevelError && strings.Contains(l.Message, "always failing") {
				count++
			}
		}
		return count >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done, "tick faults must not kill the runner")
}

func TestRunner_PnlRecordedPerFill(t *testing.T) {
	logRepo := newMemLogRepo()
	sink := NewSink(logRepo)
	defer sink.Close()

	var mu sync.Mutex
	var recorded []float64

	provider := &stubProvider{svc: paper.NewExchange(decimal.NewFromInt(100000))}
	runner := NewRunner(testStrategy(alwaysBuyCode), provider, sink,
		WithPollInterval(10*time.Millisecond),
		WithPnlRecorder(func(pnl float64) {
			mu.Lock()
			recorded = append(recorded, pnl)
			mu.Unlock()
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(recorded) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	// a lone fill marked at its own price is flat by definition
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, recorded[0])
}

func TestRunner_TrendVisibleToStrategy(t *testing.T) {
	logRepo := newMemLogRepo()
	sink := NewSink(logRepo)
	defer sink.Close()

	provider := &stubProvider{svc: paper.NewExchange(decimal.NewFromInt(1000))}
	runner := NewRunner(testStrategy(`
		function on_tick(data) {
			log("INFO", "trend is " + typeof data.trend);
		}
	`), provider, sink, WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		sink.Flush()
		for _, l := range logRepo.entriesFor("s1") {
			if l.Message == "trend is number" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRunner_StrategyLogCapability(t *testing.T) {
	logRepo := newMemLogRepo()
	sink := NewSink(logRepo)
	defer sink.Close()

	provider := &stubProvider{svc: paper.NewExchange(decimal.NewFromInt(1000))}
	runner := NewRunner(testStrategy(`
		function on_tick(data) {
			log("WARN", "price " + data.last);
			log("made-up-level", "normalized");
		}
	`), provider, sink, WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		sink.Flush()
		var sawWarn, sawNormalized bool
		for _, l := range logRepo.entriesFor("s1") {
			if l.Level == entity.LogLevelWarn && strings.HasPrefix(l.Message, "price ") {
				sawWarn = true
			}
			if l.Level == entity.LogLevelInfo && l.Message == "normalized" {
				sawNormalized = true
			}
		}
		return sawWarn && sawNormalized
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
