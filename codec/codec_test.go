package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type evalStats struct {
	Model           string `json:"model"`
	CreatedAt       string `json:"createdAt"`
	PromptEvalCount int    `json:"promptEvalCount"`
	Done            bool   `json:"done"`
	Nested          struct {
		DoneReason string `json:"doneReason"`
	} `json:"nested"`
	Items []struct {
		LoadDuration int64 `json:"loadDuration"`
	} `json:"items"`
}

const snakeBody = `{
	"model": "llama3",
	"created_at": "2024-06-01T10:00:00Z",
	"prompt_eval_count": 26,
	"done": true,
	"nested": {"done_reason": "stop"},
	"items": [{"load_duration": 9007199254740993}]
}`

func TestSnakeToCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "created_at", want: "createdAt"},
		{in: "prompt_eval_count", want: "promptEvalCount"},
		{in: "model", want: "model"},
		{in: "_private_key", want: "_privateKey"},
		{in: "trailing_key_", want: "trailingKey_"},
		{in: "double__under", want: "doubleUnder"},
		{in: "SHOUT_CASE", want: "shoutCase"},
		{in: "___", want: "___"},
		{in: "", want: ""},
		{in: "alreadyCamel", want: "alreadyCamel"},
		{in: "url_Path", want: "urlPath"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SnakeToCamel(tt.in))
		})
	}
}

func TestSnakeCaseDecoder(t *testing.T) {
	got, err := Decode[evalStats]([]byte(snakeBody), SnakeCaseDecoder)
	require.NoError(t, err)

	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "2024-06-01T10:00:00Z", got.CreatedAt)
	assert.Equal(t, 26, got.PromptEvalCount)
	assert.True(t, got.Done)
	assert.Equal(t, "stop", got.Nested.DoneReason)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(9007199254740993), got.Items[0].LoadDuration, "large integers must survive key rewriting")
}

func TestDefaultDecoderIgnoresSnakeKeys(t *testing.T) {
	got, err := Decode[evalStats]([]byte(snakeBody), nil)
	require.NoError(t, err)

	assert.Equal(t, "llama3", got.Model)
	assert.Empty(t, got.CreatedAt)
	assert.Zero(t, got.PromptEvalCount)
}

func TestDecodeFailureLeavesZeroValue(t *testing.T) {
	tests := []struct {
		name string
		body string
		dec  Decoder
	}{
		{name: "syntax", body: `{"model": "llama3", "done": `, dec: DefaultDecoder},
		{name: "type_mismatch", body: `{"model": "llama3", "done": "yes"}`, dec: DefaultDecoder},
		{name: "snake_syntax", body: `{"created_at": }`, dec: SnakeCaseDecoder},
		{name: "trailing_data", body: `{"model": "a"} {"model": "b"}`, dec: DefaultDecoder},
		{name: "unknown_field", body: `{"model": "a", "extra": 1}`, dec: JSONDecoder{DisallowUnknownFields: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[evalStats]([]byte(tt.body), tt.dec)
			require.Error(t, err)
			assert.Equal(t, evalStats{}, got)

			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "codec.evalStats", de.Target)
		})
	}
}

func TestDecoderDoesNotPartiallyPopulate(t *testing.T) {
	existing := evalStats{Model: "keep"}

	err := DefaultDecoder.Decode([]byte(`{"model": "overwritten", "done": "bad"}`), &existing)
	require.Error(t, err)
	assert.Equal(t, "keep", existing.Model)
}

func TestDecodeInvalidTarget(t *testing.T) {
	var nilPtr *evalStats
	for _, target := range []any{evalStats{}, nilPtr, nil} {
		err := DefaultDecoder.Decode([]byte(`{}`), target)
		assert.True(t, errors.Is(err, errInvalidTarget))
	}
}

func TestJSONEncoder(t *testing.T) {
	b, err := DefaultEncoder.Encode(map[string]any{"model": "llama3", "stream": false})
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"llama3","stream":false}`, string(b))

	_, err = DefaultEncoder.Encode(map[string]float64{"bad": math.Inf(1)})
	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "map[string]float64", ee.Source)

	_, err = DefaultEncoder.Encode(make(chan int))
	assert.Error(t, err)
}

func TestKeyStrategyString(t *testing.T) {
	assert.Equal(t, "default", DefaultKeys.String())
	assert.Equal(t, "snake_case", SnakeCaseKeys.String())
}
