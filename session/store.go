package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport or server failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// ErrCorrupt is returned when a stored session blob cannot be decoded.
var ErrCorrupt = errors.New("session corrupt")

// maxDropRetries bounds WATCH retries when sessions are saved while a drop
// is in flight.
const maxDropRetries = 8

// ErrContention is returned when DropUser loses the WATCH race maxDropRetries
// times in a row.
var ErrContention = errors.New("session index contention")

// Store persists sessions under {prefix}:{name}:{sessionID} and indexes the
// IDs of each account in the set {prefix}:u:{name}. The name is a Redis hash
// tag, so an account's sessions and its index share one cluster slot.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	idleTTL time.Duration
	sliding bool
	now     func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
// idleTTL bounds the key lifetime between requests; when sliding is true every
// successful Get pushes the idle deadline forward, never past ExpiresAt.
func NewStore(redis redis.UniversalClient, prefix string, idleTTL time.Duration, sliding bool) *Store {
	if prefix == "" {
		prefix = "sess"
	}
	return &Store{
		redis:   redis,
		prefix:  prefix,
		idleTTL: idleTTL,
		sliding: sliding,
		now:     time.Now,
	}
}

func (s *Store) key(name, sessionID string) string {
	return s.prefix + ":{" + name + "}:" + sessionID
}

func (s *Store) userKey(name string) string {
	return s.prefix + ":u:{" + name + "}"
}

// Save persists sess and adds it to the account index. The session key
// expires at the earlier of the idle TTL and sess.ExpiresAt; the index lives
// as long as the newest session can.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	now := s.now()
	ttl := s.keyTTL(sess, now)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	userKey := s.userKey(sess.Name)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.Name, sess.SessionID), data, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		pipe.Expire(ctx, userKey, time.Unix(sess.ExpiresAt, 0).Sub(now))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session. Expired sessions are deleted and reported as ErrNotFound.
func (s *Store) Get(ctx context.Context, name, sessionID string) (*Session, error) {
	key := s.key(name, sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sess.SessionID = sessionID
	if sess.Name != name {
		return nil, ErrCorrupt
	}

	now := s.now()
	if sess.Expired(now) {
		if err := s.Delete(ctx, name, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	if s.sliding {
		if err := s.redis.Expire(ctx, key, s.keyTTL(sess, now)).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return sess, nil
}

// Delete removes one session and its index entry. Deleting a missing session
// is not an error.
func (s *Store) Delete(ctx context.Context, name, sessionID string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(name, sessionID))
		pipe.SRem(ctx, s.userKey(name), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DropUser deletes every session of name together with the index and returns
// how many session keys were removed. The index is WATCHed, so a Save that
// lands between reading the index and deleting forces a retry instead of
// leaving a live session behind.
func (s *Store) DropUser(ctx context.Context, name string) (int, error) {
	if name == "" {
		return 0, errors.New("session drop requires a name")
	}
	userKey := s.userKey(name)

	for attempt := 0; attempt < maxDropRetries; attempt++ {
		var dropped int
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			ids, err := tx.SMembers(ctx, userKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			keys := make([]string, 0, len(ids))
			for _, id := range ids {
				keys = append(keys, s.key(name, id))
			}

			var del *redis.IntCmd
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if len(keys) > 0 {
					del = pipe.Del(ctx, keys...)
				}
				pipe.Del(ctx, userKey)
				return nil
			})
			if err != nil {
				return err
			}
			if del != nil {
				dropped = int(del.Val())
			}
			return nil
		}, userKey)

		if err == nil {
			return dropped, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return 0, fmt.Errorf("%w: %w", ErrRedisUnavailable, ErrContention)
}

// Count returns the number of live sessions of name.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Exists(ctx, s.key(name, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var total int
	for _, cmd := range cmds {
		total += int(cmd.Val())
	}
	return total, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) keyTTL(sess *Session, now time.Time) time.Duration {
	remaining := time.Unix(sess.ExpiresAt, 0).Sub(now)
	if s.idleTTL > 0 && s.idleTTL < remaining {
		return s.idleTTL
	}
	return remaining
}
