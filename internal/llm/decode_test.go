package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/internal/llm"
)

type verdict struct {
	Level string  `json:"level" validate:"required,oneof=low high"`
	Score float32 `json:"score" validate:"gte=0,lte=1"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    verdict
		wantErr bool
	}{
		{name: "plain object", raw: `{"level":"low","score":0.5}`, want: verdict{Level: "low", Score: 0.5}},
		{name: "fenced object", raw: "```json\n{\"level\":\"high\",\"score\":1}\n```", want: verdict{Level: "high", Score: 1}},
		{name: "surrounding whitespace", raw: "\n  {\"level\":\"low\",\"score\":0}  \n", want: verdict{Level: "low"}},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "prose", raw: "Sure! Here is the answer.", wantErr: true},
		{name: "unknown key", raw: `{"level":"low","score":0.1,"extra":true}`, wantErr: true},
		{name: "trailing object", raw: `{"level":"low","score":0.1}{"level":"high"}`, wantErr: true},
		{name: "wrong type", raw: `{"level":"low","score":"high"}`, wantErr: true},
		{name: "missing required", raw: `{"score":0.3}`, wantErr: true},
		{name: "enum violation", raw: `{"level":"medium","score":0.3}`, wantErr: true},
		{name: "range violation", raw: `{"level":"low","score":3}`, wantErr: true},
		{name: "unterminated fence", raw: "```", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got verdict
			err := llm.DecodeJSON(tt.raw, &got)
			if tt.wantErr {
				require.ErrorIs(t, err, llm.ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
