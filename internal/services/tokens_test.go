package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"designkit/internal/errdefs"
)

func TestTokenList(t *testing.T) {
	env := newTestEnv(t)
	svc := env.tokens(t)
	ctx := context.Background()

	t.Run("unfiltered returns all", func(t *testing.T) {
		tokens, err := svc.List(ctx, TokenFilter{})
		require.NoError(t, err)
		assert.Len(t, tokens, 3)
	})

	t.Run("category filter", func(t *testing.T) {
		tokens, err := svc.List(ctx, TokenFilter{Category: "color"})
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "primary-blue", tokens[0].Name)
	})

	t.Run("category filter is case-insensitive", func(t *testing.T) {
		tokens, err := svc.List(ctx, TokenFilter{Category: "TYPOGRAPHY"})
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "font-size-large", tokens[0].Name)
	})

	t.Run("deprecated filter", func(t *testing.T) {
		deprecated := true
		tokens, err := svc.List(ctx, TokenFilter{Deprecated: &deprecated})
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "spacing-sm", tokens[0].Name)

		deprecated = false
		tokens, err = svc.List(ctx, TokenFilter{Deprecated: &deprecated})
		require.NoError(t, err)
		assert.Len(t, tokens, 2)
	})

	t.Run("unknown category rejected before the breaker", func(t *testing.T) {
		before := env.breakerStats(t, TokenBreakerName)
		_, err := svc.List(ctx, TokenFilter{Category: "nonsense"})
		require.Error(t, err)
		assert.True(t, errdefs.IsKind(err, errdefs.ValidationFailed))
		assert.Contains(t, errdefs.AsError(err).Suggestions[0], "color")

		after := env.breakerStats(t, TokenBreakerName)
		assert.Equal(t, before.TotalRequests, after.TotalRequests,
			"input validation must not touch the breaker")
	})
}

func TestTokenGet(t *testing.T) {
	env := newTestEnv(t)
	svc := env.tokens(t)
	ctx := context.Background()

	t.Run("exact name", func(t *testing.T) {
		tok, err := svc.Get(ctx, "primary-blue")
		require.NoError(t, err)
		assert.Equal(t, "#0051A5", tok.Value.String())
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		upper, err := svc.Get(ctx, "PRIMARY-BLUE")
		require.NoError(t, err)
		lower, err2 := svc.Get(ctx, "primary-blue")
		require.NoError(t, err2)
		assert.Equal(t, lower, upper)
	})

	t.Run("missing token lists the known names", func(t *testing.T) {
		_, err := svc.Get(ctx, "missing")
		require.Error(t, err)
		assert.True(t, errdefs.IsKind(err, errdefs.ResourceNotFound))

		e := errdefs.AsError(err)
		require.NotEmpty(t, e.Suggestions)
		assert.Equal(t, "Available tokens: primary-blue, font-size-large, spacing-sm", e.Suggestions[0])
	})

	t.Run("empty name rejected before the breaker", func(t *testing.T) {
		before := env.breakerStats(t, TokenBreakerName)
		_, err := svc.Get(ctx, "   ")
		require.Error(t, err)
		assert.True(t, errdefs.IsKind(err, errdefs.ValidationFailed))

		after := env.breakerStats(t, TokenBreakerName)
		assert.Equal(t, before.TotalRequests, after.TotalRequests)
	})
}

func TestTokenSearch(t *testing.T) {
	env := newTestEnv(t)
	svc := env.tokens(t)
	ctx := context.Background()

	t.Run("matches name substring", func(t *testing.T) {
		tokens, err := svc.Search(ctx, "large")
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "font-size-large", tokens[0].Name)
	})

	t.Run("matches usage contexts", func(t *testing.T) {
		tokens, err := svc.Search(ctx, "links")
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "primary-blue", tokens[0].Name)
	})

	t.Run("matches aliases", func(t *testing.T) {
		tokens, err := svc.Search(ctx, "text-lg")
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "font-size-large", tokens[0].Name)
	})

	t.Run("matches numeric value rendering", func(t *testing.T) {
		tokens, err := svc.Search(ctx, "24")
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "font-size-large", tokens[0].Name)
	})

	t.Run("no matches yields empty result, not an error", func(t *testing.T) {
		tokens, err := svc.Search(ctx, "no-such-thing")
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})

	t.Run("empty query rejected before the breaker", func(t *testing.T) {
		before := env.breakerStats(t, TokenBreakerName)
		_, err := svc.Search(ctx, "")
		require.Error(t, err)
		assert.True(t, errdefs.IsKind(err, errdefs.ValidationFailed))

		after := env.breakerStats(t, TokenBreakerName)
		assert.Equal(t, before.TotalRequests, after.TotalRequests)
	})
}

func TestTokenQueriesWithoutData(t *testing.T) {
	env := emptyEnv(t)
	svc := env.tokens(t)

	_, err := svc.List(context.Background(), TokenFilter{})
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.InvalidData))

	stats := env.breakerStats(t, TokenBreakerName)
	assert.Equal(t, uint64(1), stats.TotalRequests, "the guarded call itself went through the breaker")
}

func TestFacadesShareOneBreakerPerName(t *testing.T) {
	env := newTestEnv(t)
	s1 := env.tokens(t)
	s2 := env.tokens(t)

	assert.Same(t, s1.breaker, s2.breaker)
}
