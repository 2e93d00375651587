package codegen

import (
	"context"
	"errors"
	"testing"

	"github.com/quantflow/quantflow/internal/service/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	answer string
	err    error
	lastQ  llm.Question
}

func (s *stubLLM) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	s.lastQ = q
	if s.err != nil {
		return llm.Answer{}, s.err
	}
	return llm.Answer{Content: s.answer}, nil
}

func TestGenerate_PassesSystemInstruction(t *testing.T) {
	stub := &stubLLM{answer: `function on_tick(data) {}`}
	g := NewGenerator(stub)

	code, err := g.Generate(context.Background(), "buy the dip")
	require.NoError(t, err)
	assert.Equal(t, `function on_tick(data) {}`, code)
	assert.Contains(t, stub.lastQ.System, "on_tick")
	assert.Equal(t, "buy the dip", stub.lastQ.Content)
}

func TestGenerate_StripsMarkdownFences(t *testing.T) {
	testCases := []struct {
		name   string
		answer string
	}{
		{name: "plain", answer: "function on_tick(data) {}"},
		{name: "fenced", answer: "```\nfunction on_tick(data) {}\n```"},
		{name: "fenced with language", answer: "```javascript\nfunction on_tick(data) {}\n```"},
		{name: "js fence", answer: "```js\nfunction on_tick(data) {}\n```"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGenerator(&stubLLM{answer: tc.answer})
			code, err := g.Generate(context.Background(), "anything")
			require.NoError(t, err)
			assert.Equal(t, "function on_tick(data) {}", code)
		})
	}
}

func TestGenerate_PropagatesError(t *testing.T) {
	g := NewGenerator(&stubLLM{err: errors.New("quota exceeded")})
	_, err := g.Generate(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code generation failed")
}
