package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStore_AgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedisStore(ctx, "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Get(ctx, AccessTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mr.Set("trolley:access_token", "tok-redis"))
	token, err := NewProvider(s).Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-redis", token)

	require.NoError(t, s.Delete(ctx, AccessTokenKey))
	assert.False(t, mr.Exists("trolley:access_token"))
}

func TestRedisStore_TTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedisStore(ctx, "redis://"+mr.Addr(), "shop")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set(ctx, AccessTokenKey, "short-lived", time.Minute))
	got, err := s.Get(ctx, AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "short-lived", got)

	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, AccessTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStore_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewRedisStore(ctx, " ", "")
	assert.Error(t, err)

	_, err = NewRedisStore(ctx, "not a url", "")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisStore(ctx, "redis://"+addr, "")
	assert.Error(t, err)
}
