package idempotency

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUUIDv4(t *testing.T) {
	key := New()

	id, err := uuid.Parse(key.String())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
	assert.NotEqual(t, key, New())
}

func TestParse(t *testing.T) {
	key, err := Parse("6F9619FF-8B86-D011-B42D-00C04FC964FF")
	require.NoError(t, err)
	assert.Equal(t, Key("6f9619ff-8b86-d011-b42d-00c04fc964ff"), key)

	_, err = Parse("not-a-uuid")
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := FromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, ctx, WithKey(ctx, ""))

	key := New()
	ctx = WithKey(ctx, key)
	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, key, got)
	assert.Equal(t, key, Ensure(ctx))
}

func TestEnsureGeneratesWhenAbsent(t *testing.T) {
	key := Ensure(context.Background())
	assert.False(t, key.IsZero())
}
