package sandbox

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Sandbox runs user strategy code inside a goja VM. The code is loaded
// once and must define a global on_tick(data) function; the only host
// access the VM has is the injected capability set (log, buy, sell,
// sleep). A fault inside on_tick is returned as an error, never allowed
// to escape as a panic.
type Sandbox struct {
	mu          sync.Mutex
	vm          *goja.Runtime
	onTick      goja.Callable
	tickTimeout time.Duration
}

var ErrTimeout = errors.New("tick exceeded time limit")

// Tick is the market snapshot handed to on_tick. Field names mirror what
// the strategy sees in JS.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Trend     float64 `json:"trend"`
	Timestamp int64   `json:"timestamp"`
}

// OrderResult is what buy/sell return to the strategy. A nil result in JS
// (null) signals a rejected order.
type OrderResult struct {
	Id       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// Capabilities is the fixed surface exposed to strategy code. Buy and Sell
// return nil on rejection; they must not panic.
type Capabilities struct {
	Log   func(level, message string)
	Buy   func(symbol string, quantity float64) *OrderResult
	Sell  func(symbol string, quantity float64) *OrderResult
	Sleep func(seconds float64)
}

type Option func(sb *Sandbox)

// WithTickTimeout interrupts an on_tick invocation that runs longer than d.
// Zero disables the watchdog.
func WithTickTimeout(d time.Duration) Option {
	return func(sb *Sandbox) {
		sb.tickTimeout = d
	}
}

// Load compiles the strategy code, binds the capability set and resolves
// the on_tick entry point. Any compile error or a missing entry point is a
// setup fault.
func Load(code string, caps Capabilities, opts ...Option) (*Sandbox, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", false))

	if caps.Log != nil {
		if err := vm.Set("log", func(level, message string) {
			caps.Log(level, message)
		}); err != nil {
			return nil, err
		}
	}
	if caps.Buy != nil {
		if err := vm.Set("buy", caps.Buy); err != nil {
			return nil, err
		}
	}
	if caps.Sell != nil {
		if err := vm.Set("sell", caps.Sell); err != nil {
			return nil, err
		}
	}
	sleep := caps.Sleep
	if sleep == nil {
		sleep = func(seconds float64) {
			time.Sleep(time.Duration(seconds * float64(time.Second)))
		}
	}
	if err := vm.Set("sleep", sleep); err != nil {
		return nil, err
	}

	if _, err := vm.RunString(code); err != nil {
		return nil, fmt.Errorf("code compilation failed: %w", err)
	}

	onTick, ok := goja.AssertFunction(vm.Get("on_tick"))
	if !ok {
		return nil, errors.New("no on_tick(data) function found in code")
	}

	sb := &Sandbox{
		vm:     vm,
		onTick: onTick,
	}
	for _, opt := range opts {
		opt(sb)
	}
	return sb, nil
}

// OnTick invokes the strategy entry point with one market snapshot.
// Invocations are serialized; a throw, a panic or a watchdog interrupt all
// come back as an error the caller can log and continue past.
func (sb *Sandbox) OnTick(tick Tick) (err error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()

	if sb.tickTimeout > 0 {
		timer := time.AfterFunc(sb.tickTimeout, func() {
			sb.vm.Interrupt(ErrTimeout)
		})
		defer timer.Stop()
		defer sb.vm.ClearInterrupt()
	}

	if _, err := sb.onTick(goja.Undefined(), sb.vm.ToValue(tick)); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return fmt.Errorf("runtime error: %w", ErrTimeout)
		}
		return fmt.Errorf("runtime error: %w", err)
	}
	return nil
}
