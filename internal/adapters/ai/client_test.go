package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketintel/internal/adapters/config"
	"marketintel/pkg/errors"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "bare array",
			in:   `[{"a": 1}]`,
			want: `[{"a": 1}]`,
		},
		{
			name: "json code fence",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "plain code fence",
			in:   "```\n[1, 2]\n```",
			want: `[1, 2]`,
		},
		{
			name: "surrounding prose",
			in:   "Here is the analysis you asked for:\n{\"a\": 1}\nLet me know if you need more.",
			want: `{"a": 1}`,
		},
		{
			name: "prose around array",
			in:   "Sure!\n[{\"a\": 1}, {\"a\": 2}]\nDone.",
			want: `[{"a": 1}, {"a": 2}]`,
		},
		{
			name: "no json at all",
			in:   "I could not produce a structured answer.",
			want: "I could not produce a structured answer.",
		},
		{
			name: "whitespace only",
			in:   "   \n ",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSON(tc.in))
		})
	}
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(config.AIConfig{})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
