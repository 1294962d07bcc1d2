package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{
		InputTokens:  1_000_000,
		OutputTokens: 500_000,
	}

	cost := usage.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 3.00+7.50, cost, 1e-9)

	assert.Zero(t, usage.EstimateCost("unknown-model"))
}

func TestEstimateCostWithCache(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              100_000,
		OutputTokens:             50_000,
		CacheCreationInputTokens: 200_000,
		CacheReadInputTokens:     1_000_000,
	}

	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	expected := 0.1*0.80 + 0.05*4.00 + 0.2*0.80*1.25 + 1.0*0.80*0.1
	assert.InDelta(t, expected, cost, 1e-9)
}

func TestLogCostEmitsAttributionFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	undo := zap.ReplaceGlobals(zap.New(core))
	defer undo()

	usage := TokenUsage{InputTokens: 2_000_000, OutputTokens: 1_000_000}
	usage.LogCost("claude-sonnet-4-5-20250929", "narrative")

	require.Len(t, logs.All(), 1)
	entry := logs.All()[0]
	assert.Equal(t, "cost attribution", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "claude-sonnet-4-5-20250929", fields["model"])
	assert.Equal(t, "narrative", fields["phase"])
	assert.Equal(t, int64(2_000_000), fields["input_tokens"])
	assert.Equal(t, int64(1_000_000), fields["output_tokens"])
	assert.InDelta(t, 2*3.00+1*15.00, fields["estimated_cost_usd"].(float64), 1e-9)
}

func TestMessageResponseText(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "first "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "second"},
		},
	}
	assert.Equal(t, "first second", resp.Text())
}
