package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int
		wantErr bool
	}{
		{name: "int", in: 3, want: 3},
		{name: "int64", in: int64(9), want: 9},
		{name: "whole_float", in: 4.0, want: 4},
		{name: "string", in: " 12 ", want: 12},
		{name: "fraction", in: 1.5, wantErr: true},
		{name: "text", in: "abc", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "nan", in: math.NaN(), wantErr: true},
		{name: "huge_uint", in: uint64(math.MaxUint64), wantErr: true},
		{name: "bool", in: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toInt(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToDuration(t *testing.T) {
	d, err := toDuration("250ms")
	assert.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = toDuration(int64(time.Second))
	assert.NoError(t, err)
	assert.Equal(t, time.Second, d)

	_, err = toDuration("later")
	assert.Error(t, err)
}

func TestToBoolAndFloat(t *testing.T) {
	b, err := toBool("true")
	assert.NoError(t, err)
	assert.True(t, b)

	_, err = toBool("sometimes")
	assert.Error(t, err)

	f, err := toFloat64("2.5")
	assert.NoError(t, err)
	assert.InDelta(t, 2.5, f, 0.0001)

	_, err = toFloat64([]string{"x"})
	assert.Error(t, err)
}
