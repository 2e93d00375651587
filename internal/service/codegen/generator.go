package codegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantflow/quantflow/internal/service/llm"
)

// systemInstruction pins the generated code to the sandbox surface: one
// on_tick entry point and nothing but the injected capabilities.
const systemInstruction = `You are an expert quantitative trading strategy assistant.
Generate an executable JavaScript trading strategy from the user's description.
The runtime provides exactly these functions:
  on_tick(data)        - you must define this; data has symbol, last, bid, ask, trend, timestamp
  buy(symbol, amount)  - market buy, returns the order or null when rejected
  sell(symbol, amount) - market sell, returns the order or null when rejected
  log(level, message)  - level is one of INFO, WARN, ERROR
No other APIs exist: no require, no network, no filesystem, no timers.
Add short comments explaining the strategy logic.
Return only the JavaScript code, without markdown fences.`

// Generator turns a natural-language prompt into strategy code.
type Generator struct {
	llmSvc llm.Service
}

func NewGenerator(llmSvc llm.Service) *Generator {
	return &Generator{llmSvc: llmSvc}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	answer, err := g.llmSvc.AskOnce(ctx, llm.Question{
		System:  systemInstruction,
		Content: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("code generation failed: %w", err)
	}
	return stripFences(answer.Content), nil
}

// stripFences removes markdown code fences models add despite instructions.
func stripFences(code string) string {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "```") {
		return code
	}
	code = strings.TrimPrefix(code, "```javascript")
	code = strings.TrimPrefix(code, "```js")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(strings.TrimSpace(code), "```")
	return strings.TrimSpace(code)
}
