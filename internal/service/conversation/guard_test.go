package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardOneGenerationPerSession(t *testing.T) {
	g := NewGuard()

	gen, ok := g.Begin(context.Background(), "s1")
	require.True(t, ok)
	assert.True(t, g.Generating("s1"))

	_, ok = g.Begin(context.Background(), "s1")
	assert.False(t, ok)

	other, ok := g.Begin(context.Background(), "s2")
	require.True(t, ok)
	other.End()

	gen.End()
	gen.End()
	assert.False(t, g.Generating("s1"))

	_, ok = g.Begin(context.Background(), "s1")
	assert.True(t, ok)
}

func TestGuardStop(t *testing.T) {
	g := NewGuard()
	assert.False(t, g.Stop("idle"))

	gen, ok := g.Begin(context.Background(), "s1")
	require.True(t, ok)
	defer gen.End()

	assert.True(t, g.Stop("s1"))
	assert.True(t, gen.Stopped())
	assert.ErrorIs(t, gen.Context().Err(), context.Canceled)
}

func TestGenerationOutlivesRequest(t *testing.T) {
	g := NewGuard()
	reqCtx, cancel := context.WithCancel(context.Background())

	gen, ok := g.Begin(reqCtx, "s1")
	require.True(t, ok)
	defer gen.End()

	cancel()
	assert.NoError(t, gen.Context().Err())
	assert.False(t, gen.Stopped())
}
