package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/response"
)

const attemptWindow = 15 * time.Minute

// AttemptStore is the counter backend for login throttling (Redis in production)
type AttemptStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
}

// BruteForceProtection locks an IP out of login after repeated failures
type BruteForceProtection struct {
	store AttemptStore
	log   *logger.Logger
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(store AttemptStore, log *logger.Logger) *BruteForceProtection {
	if log == nil {
		log = logger.Nop()
	}
	return &BruteForceProtection{store: store, log: log}
}

func attemptKey(ip string) string { return "brute_force:attempts:" + ip }

func lockKey(ip string) string { return "brute_force:lock:" + ip }

// CheckLockout rejects requests from a locked IP with 429 and Retry-After
func (b *BruteForceProtection) CheckLockout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ttl, err := b.store.TTL(c.UserContext(), lockKey(c.IP()))
		if err != nil {
			// Redis being down must not block logins
			b.log.Warn("lockout check failed", "ip", c.IP(), "error", err)
			return c.Next()
		}
		if ttl <= 0 {
			return c.Next()
		}

		retryAfter := int(ttl.Seconds()) + 1
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
	}
}

// RecordFailedAttempt counts a failure and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(ctx context.Context, ip string) {
	attempts, err := b.store.Increment(ctx, attemptKey(ip), attemptWindow)
	if err != nil {
		b.log.Warn("failed to record login attempt", "ip", ip, "error", err)
		return
	}

	lockFor := lockoutDuration(attempts)
	if lockFor == 0 {
		return
	}
	if err := b.store.Mark(ctx, lockKey(ip), lockFor); err != nil {
		b.log.Warn("failed to lock out ip", "ip", ip, "error", err)
		return
	}
	b.log.Warn("login locked out", "ip", ip, "attempts", attempts, "duration", lockFor.String())
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(ctx context.Context, ip string) {
	if err := b.store.Delete(ctx, attemptKey(ip), lockKey(ip)); err != nil {
		b.log.Warn("failed to clear login attempts", "ip", ip, "error", err)
	}
}

func lockoutDuration(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	}
	return 0
}
