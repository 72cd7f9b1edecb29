package tags

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finbrief/finbrief/plugin/ai"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	return f.response, f.err
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "json object",
			response: `{"tags": ["guidance", "margins"]}`,
			want:     []string{"guidance", "margins"},
		},
		{
			name:     "bare array",
			response: `["revenue", "buyback"]`,
			want:     []string{"revenue", "buyback"},
		},
		{
			name:     "code fenced",
			response: "```json\n{\"tags\": [\"risk\"]}\n```",
			want:     []string{"risk"},
		},
		{
			name:     "array embedded in prose",
			response: `Here are the tags: ["guidance", "eps"] hope that helps`,
			want:     []string{"guidance", "eps"},
		},
		{
			name:     "hash prefixes stripped and dedup",
			response: `{"tags": ["#guidance", "guidance", "Margins"]}`,
			want:     []string{"guidance", "Margins"},
		},
		{
			name:     "caps at five",
			response: `{"tags": ["a", "b", "c", "d", "e", "f", "g"]}`,
			want:     []string{"a", "b", "c", "d", "e"},
		},
		{
			name:     "oversized tags dropped",
			response: `{"tags": ["thirteenchars!", "ok"]}`,
			want:     []string{"ok"},
		},
		{
			name:     "garbage",
			response: `no structured output here`,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(&fakeLLM{response: tt.response}, nil)
			got := e.Extract(context.Background(), "Q3 margins look strong")
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractDegraded(t *testing.T) {
	t.Run("nil llm", func(t *testing.T) {
		e := NewExtractor(nil, nil)
		require.Nil(t, e.Extract(context.Background(), "some note"))
	})

	t.Run("provider error", func(t *testing.T) {
		e := NewExtractor(&fakeLLM{err: errors.New("quota exceeded")}, nil)
		require.Nil(t, e.Extract(context.Background(), "some note"))
	})
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" #Guidance ", "", "guidance", "cash-flow", "a-very-long-tag-name"})
	require.Equal(t, []string{"Guidance", "cash-flow"}, got)
}
