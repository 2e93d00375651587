package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingEntryPoint(t *testing.T) {
	_, err := Load(`var x = 1;`, Capabilities{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_tick")
}

func TestLoad_CompileError(t *testing.T) {
	_, err := Load(`function on_tick(data) {`, Capabilities{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compilation failed")
}

func TestOnTick_ReceivesSnapshot(t *testing.T) {
	var logged []string
	sb, err := Load(`
		function on_tick(data) {
			log("INFO", data.symbol + " @ " + data.last);
		}
	`, Capabilities{
		Log: func(level, message string) {
			logged = append(logged, level+" "+message)
		},
	})
	require.NoError(t, err)

	require.NoError(t, sb.OnTick(Tick{Symbol: "BTCUSDT", Last: 30000}))
	require.Len(t, logged, 1)
	assert.Equal(t, "INFO BTCUSDT @ 30000", logged[0])
}

func TestOnTick_BuyCapability(t *testing.T) {
	var gotSymbol string
	var gotQuantity float64
	sb, err := Load(`
		function on_tick(data) {
			var order = buy("BTCUSDT", 0.01);
			if (order === null) {
				log("ERROR", "rejected");
			} else {
				log("TRADE", order.id);
			}
		}
	`, Capabilities{
		Log: func(level, message string) {},
		Buy: func(symbol string, quantity float64) *OrderResult {
			gotSymbol = symbol
			gotQuantity = quantity
			return &OrderResult{Id: "paper-1", Symbol: symbol, Side: "BUY", Quantity: quantity}
		},
	})
	require.NoError(t, err)

	require.NoError(t, sb.OnTick(Tick{Symbol: "BTCUSDT", Last: 30000}))
	assert.Equal(t, "BTCUSDT", gotSymbol)
	assert.Equal(t, 0.01, gotQuantity)
}

func TestOnTick_RejectedOrderIsNull(t *testing.T) {
	var logged []string
	sb, err := Load(`
		function on_tick(data) {
			var order = sell("BTCUSDT", 1);
			if (order === null) {
				log("ERROR", "order rejected");
			}
		}
	`, Capabilities{
		Log: func(level, message string) {
			logged = append(logged, message)
		},
		Sell: func(symbol string, quantity float64) *OrderResult {
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, sb.OnTick(Tick{}))
	assert.Equal(t, []string{"order rejected"}, logged)
}

func TestOnTick_ThrowBecomesError(t *testing.T) {
	sb, err := Load(`
		function on_tick(data) {
			throw new Error("bad tick");
		}
	`, Capabilities{})
	require.NoError(t, err)

	err = sb.OnTick(Tick{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad tick")

	// the sandbox survives a failed tick
	err = sb.OnTick(Tick{})
	require.Error(t, err)
}

func TestOnTick_TimeoutInterrupts(t *testing.T) {
	sb, err := Load(`
		function on_tick(data) {
			while (true) {}
		}
	`, Capabilities{}, WithTickTimeout(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	err = sb.OnTick(Tick{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	// interrupted VM is usable again on the next tick
	err = sb.OnTick(Tick{})
	require.Error(t, err)
}

func TestOnTick_NoHostAccess(t *testing.T) {
	sb, err := Load(`
		function on_tick(data) {
			if (typeof require !== "undefined" || typeof process !== "undefined" ||
				typeof fetch !== "undefined") {
				throw new Error("host escaped into sandbox");
			}
		}
	`, Capabilities{})
	require.NoError(t, err)
	require.NoError(t, sb.OnTick(Tick{}))
}
