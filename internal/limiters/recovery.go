package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRecoveryRateLimited      = errors.New("recovery rate limited")
	ErrRecoveryRedisUnavailable = errors.New("recovery limiter redis unavailable")
)

type RecoveryConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxRequests              int
	Prefix                   string
}

// RecoveryLimiter counts recovery token issuance in fixed windows.
type RecoveryLimiter struct {
	redis  redis.UniversalClient
	config RecoveryConfig
}

func NewRecoveryLimiter(redisClient redis.UniversalClient, cfg RecoveryConfig) *RecoveryLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rrl"
	}
	return &RecoveryLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check increments the identifier and IP windows. The identifier is compared
// case-insensitively so "Forrest" and "forrest" share a budget.
func (l *RecoveryLimiter) Check(ctx context.Context, identifier, ip string) error {
	if l == nil || l.redis == nil || l.config.MaxRequests <= 0 {
		return nil
	}

	if l.config.EnableIdentifierThrottle && identifier != "" {
		if err := l.enforceFixedWindow(ctx, l.identifierKey(identifier)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, l.ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the identifier window, used after a successful redemption.
func (l *RecoveryLimiter) Reset(ctx context.Context, identifier string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.identifierKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryRedisUnavailable, err)
	}
	return nil
}

func (l *RecoveryLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRecoveryRedisUnavailable, err)
		}
	}

	if count > int64(l.config.MaxRequests) {
		return ErrRecoveryRateLimited
	}
	return nil
}

func (l *RecoveryLimiter) identifierKey(identifier string) string {
	return l.config.Prefix + ":id:" + strings.ToLower(identifier)
}

func (l *RecoveryLimiter) ipKey(ip string) string {
	return l.config.Prefix + ":ip:" + ip
}
