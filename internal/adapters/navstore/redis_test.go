package navstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerchess/internal/domain"
)

func newTestNavigator(t *testing.T, ttl time.Duration) (*RedisNavigator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "peerchess:history:", "g1", ttl), mr
}

func ply(n string) domain.HistoryFrame {
	return domain.HistoryFrame{Locator: domain.Locator("loc" + n), PGN: "pgn" + n}
}

func TestRedisNavigatorBackForward(t *testing.T) {
	ctx := context.Background()
	nav, _ := newTestNavigator(t, 0)

	f, err := nav.Current(ctx)
	require.NoError(t, err)
	require.Nil(t, f)

	for _, n := range []string{"0", "1", "2"} {
		require.NoError(t, nav.Push(ctx, ply(n)))
	}
	f, err = nav.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, ply("2"), *f)

	f, err = nav.Back(ctx)
	require.NoError(t, err)
	require.Equal(t, ply("1"), *f)
	f, _ = nav.Back(ctx)
	require.Equal(t, ply("0"), *f)
	f, err = nav.Back(ctx)
	require.NoError(t, err)
	require.Nil(t, f)

	f, _ = nav.Forward(ctx)
	require.Equal(t, ply("1"), *f)
	f, _ = nav.Forward(ctx)
	require.Equal(t, ply("2"), *f)
	f, _ = nav.Forward(ctx)
	require.Nil(t, f)
}

func TestRedisNavigatorPushTruncates(t *testing.T) {
	ctx := context.Background()
	nav, _ := newTestNavigator(t, 0)
	for _, n := range []string{"0", "1", "2", "3"} {
		require.NoError(t, nav.Push(ctx, ply(n)))
	}
	_, _ = nav.Back(ctx)
	_, _ = nav.Back(ctx)

	require.NoError(t, nav.Push(ctx, ply("x")))
	n, err := nav.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	f, _ := nav.Forward(ctx)
	require.Nil(t, f)
	f, _ = nav.Back(ctx)
	require.Equal(t, ply("1"), *f)
}

func TestRedisNavigatorTTLAndClear(t *testing.T) {
	ctx := context.Background()
	nav, mr := newTestNavigator(t, time.Hour)
	require.NoError(t, nav.Push(ctx, ply("0")))

	require.Equal(t, time.Hour, mr.TTL(nav.keyFrames()))
	require.Equal(t, time.Hour, mr.TTL(nav.keyCursor()))

	mr.FastForward(2 * time.Hour)
	f, err := nav.Current(ctx)
	require.NoError(t, err)
	require.Nil(t, f)

	require.NoError(t, nav.Push(ctx, ply("1")))
	require.NoError(t, nav.Clear(ctx))
	n, _ := nav.Len(ctx)
	require.Zero(t, n)
}

func TestRedisNavigatorIsolatesGames(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	a := New(rdb, "p:", "a", 0)
	b := New(rdb, "p:", "b", 0)
	require.NoError(t, a.Push(ctx, ply("0")))

	n, _ := b.Len(ctx)
	require.Zero(t, n)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := Open(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	_, err = Open(context.Background(), "")
	require.Error(t, err)
	_, err = Open(context.Background(), "http://nope")
	require.Error(t, err)
}
