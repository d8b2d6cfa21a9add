package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkCodeLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	code, err := issueLinkCode(ctx, rc, 42)
	require.NoError(t, err)
	assert.True(t, IsLinkCode(code))
	assert.Equal(t, LineLinkTTL, mr.TTL(lineLinkPrefix+code))

	id, err := takeLinkCode(ctx, rc, " "+code+" ")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = takeLinkCode(ctx, rc, code)
	assert.ErrorIs(t, err, ErrNotFound, "codes are single use")
}

func TestLinkCodeReissueInvalidatesOld(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	first, err := issueLinkCode(ctx, rc, 7)
	require.NoError(t, err)
	second, err := issueLinkCode(ctx, rc, 7)
	require.NoError(t, err)

	if first != second {
		_, err = takeLinkCode(ctx, rc, first)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	id, err := takeLinkCode(ctx, rc, second)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
}

func TestLinkCodeExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	code, err := issueLinkCode(ctx, rc, 3)
	require.NoError(t, err)
	mr.FastForward(LineLinkTTL + 1)
	_, err = takeLinkCode(ctx, rc, code)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsLinkCode(t *testing.T) {
	assert.True(t, IsLinkCode("012345"))
	assert.False(t, IsLinkCode("12345"))
	assert.False(t, IsLinkCode("12a456"))
	_, err := issueLinkCode(context.Background(), nil, 1)
	assert.ErrorIs(t, err, ErrLinkUnavailable)
}
