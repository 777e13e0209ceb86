package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// AttemptLimiter counts failures per key inside a window. A nil Redis client
// disables it: every check passes and nothing is recorded.
type AttemptLimiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewOTPAttemptLimiter tracks wrong codes entered against one issued OTP
func NewOTPAttemptLimiter(client *redis.Client, max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{client: client, prefix: "otp_attempts:", max: max, window: window}
}

// NewLoginAttemptLimiter tracks failed logins per role and email
func NewLoginAttemptLimiter(client *redis.Client, max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{client: client, prefix: "login_attempts:", max: max, window: window}
}

// Exceeded reports whether key already used up its attempts
func (l *AttemptLimiter) Exceeded(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil {
		return false, nil
	}
	n, err := l.client.Get(ctx, l.prefix+key).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read attempts: %w", err)
	}
	return n >= l.max, nil
}

// Fail records one failure and returns the count so far. The window starts
// at the first failure.
func (l *AttemptLimiter) Fail(ctx context.Context, key string) (int, error) {
	if l == nil || l.client == nil {
		return 0, nil
	}
	k := l.prefix + key

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("record attempt: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return int(n), fmt.Errorf("set attempt window: %w", err)
		}
	}
	return int(n), nil
}

// Reset forgets the failures recorded for key
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

// Max is the number of failures allowed before Exceeded reports true
func (l *AttemptLimiter) Max() int {
	if l == nil {
		return 0
	}
	return l.max
}
