package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/quantflow/quantflow/internal/entity"
	"github.com/quantflow/quantflow/internal/repo"
)

// LogSink records strategy events in arrival order. Append must never
// block the caller indefinitely: a slow store costs log entries, not
// trading ticks.
type LogSink interface {
	Append(strategyId, level, message string)
}

// Sink persists entries through a single writer goroutine feeding the log
// repo. Entries from one runner keep their production order; a full buffer
// drops the entry with a warning.
type Sink struct {
	repo  repo.LogRepo
	ch    chan entity.Log
	flush chan chan struct{}
	done  chan struct{}
}

func NewSink(logRepo repo.LogRepo) *Sink {
	s := &Sink{
		repo:  logRepo,
		ch:    make(chan entity.Log, 256),
		flush: make(chan chan struct{}),
		done:  make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *Sink) Append(strategyId, level, message string) {
	entry := entity.Log{
		StrategyId: strategyId,
		Level:      level,
		Message:    message,
		CreatedAt:  time.Now(),
	}
	select {
	case s.ch <- entry:
	default:
		slog.Warn("log sink buffer full, dropping entry",
			"strategy", strategyId, "level", level, "message", message)
	}
}

// Flush blocks until every entry appended before the call has been written.
func (s *Sink) Flush() {
	ack := make(chan struct{})
	select {
	case s.flush <- ack:
		<-ack
	case <-s.done:
	}
}

// Close flushes and stops the writer.
func (s *Sink) Close() {
	s.Flush()
	close(s.ch)
	<-s.done
}

func (s *Sink) writeLoop() {
	defer close(s.done)
	for {
		select {
		case entry, ok := <-s.ch:
			if !ok {
				return
			}
			s.write(entry)
		case ack := <-s.flush:
			s.drain()
			close(ack)
		}
	}
}

// drain empties whatever is buffered right now.
func (s *Sink) drain() {
	for {
		select {
		case entry, ok := <-s.ch:
			if !ok {
				return
			}
			s.write(entry)
		default:
			return
		}
	}
}

func (s *Sink) write(entry entity.Log) {
	if _, err := s.repo.Create(context.Background(), entry); err != nil {
		slog.Error("failed to persist log entry",
			"strategy", entry.StrategyId, "error", err)
	}
	slog.Info("strategy log",
		"strategy", entry.StrategyId, "level", entry.Level, "message", entry.Message)
}
