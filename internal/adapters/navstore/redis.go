// Package navstore keeps navigation history in Redis so a restarted process
// can walk back through the same plies.
package navstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/domain"
)

// RedisNavigator stores frames in a list and the cursor in a sibling key.
type RedisNavigator struct {
	rdb    *redis.Client
	prefix string
	game   string
	ttl    time.Duration
}

// Open parses a redis:// URL and checks the server is reachable.
func Open(ctx context.Context, rawURL string) (*redis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("redis url required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// New scopes a navigator to one game. A zero ttl keeps keys forever.
func New(rdb *redis.Client, prefix, game string, ttl time.Duration) *RedisNavigator {
	return &RedisNavigator{rdb: rdb, prefix: prefix, game: game, ttl: ttl}
}

func (n *RedisNavigator) keyFrames() string { return n.prefix + n.game + ":frames" }
func (n *RedisNavigator) keyCursor() string { return n.prefix + n.game + ":cursor" }

func (n *RedisNavigator) cursor(ctx context.Context, tx *redis.Tx) (int64, error) {
	v, err := tx.Get(ctx, n.keyCursor()).Int64()
	if err == redis.Nil {
		return -1, nil
	}
	return v, err
}

// Push drops frames past the cursor, appends frame and moves the cursor onto it.
func (n *RedisNavigator) Push(ctx context.Context, frame domain.HistoryFrame) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	frames, cur := n.keyFrames(), n.keyCursor()
	return n.rdb.Watch(ctx, func(tx *redis.Tx) error {
		pos, err := n.cursor(ctx, tx)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if pos < 0 {
				pipe.Del(ctx, frames)
			} else {
				pipe.LTrim(ctx, frames, 0, pos)
			}
			pipe.RPush(ctx, frames, raw)
			pipe.Set(ctx, cur, pos+1, n.ttl)
			if n.ttl > 0 {
				pipe.Expire(ctx, frames, n.ttl)
			}
			return nil
		})
		return err
	}, frames, cur)
}

func (n *RedisNavigator) Back(ctx context.Context) (*domain.HistoryFrame, error) {
	return n.step(ctx, -1)
}

func (n *RedisNavigator) Forward(ctx context.Context) (*domain.HistoryFrame, error) {
	return n.step(ctx, 1)
}

func (n *RedisNavigator) Current(ctx context.Context) (*domain.HistoryFrame, error) {
	return n.step(ctx, 0)
}

// step moves the cursor by delta and returns the frame it lands on, or nil
// when that would leave the list.
func (n *RedisNavigator) step(ctx context.Context, delta int64) (*domain.HistoryFrame, error) {
	frames, cur := n.keyFrames(), n.keyCursor()
	var out *domain.HistoryFrame
	err := n.rdb.Watch(ctx, func(tx *redis.Tx) error {
		out = nil
		pos, err := n.cursor(ctx, tx)
		if err != nil {
			return err
		}
		size, err := tx.LLen(ctx, frames).Result()
		if err != nil {
			return err
		}
		next := pos + delta
		if pos < 0 || next < 0 || next >= size {
			return nil
		}
		raw, err := tx.LIndex(ctx, frames, next).Bytes()
		if err != nil {
			return err
		}
		var f domain.HistoryFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("decode frame %d: %w", next, err)
		}
		if delta != 0 {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, cur, strconv.FormatInt(next, 10), n.ttl)
				return nil
			})
			if err != nil {
				return err
			}
		}
		out = &f
		return nil
	}, frames, cur)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (n *RedisNavigator) Len(ctx context.Context) (int, error) {
	size, err := n.rdb.LLen(ctx, n.keyFrames()).Result()
	return int(size), err
}

func (n *RedisNavigator) Clear(ctx context.Context) error {
	return n.rdb.Del(ctx, n.keyFrames(), n.keyCursor()).Err()
}

var _ core.Navigator = (*RedisNavigator)(nil)
