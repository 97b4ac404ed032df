package rate

import "errors"

var (
	ErrRateLimited      = errors.New("login rate limited")
	ErrRedisUnavailable = errors.New("login limiter redis unavailable")
)
