package repository

import (
	"math/rand"
	"strings"
	"time"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/util"
)

// isLockError reports whether err is worth retrying: lock wait timeouts and
// deadlocks under MySQL, "database is locked" under SQLite (used in tests).
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "lock wait timeout") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// WithRetry runs fn up to cfg.MaxAttempts times, backing off exponentially
// with jitter between attempts. Only lock contention is retried; other
// errors surface immediately. Exhausted retries surface as
// util.ErrTransientStorage so callers can map them to a transient-failure
// signal instead of a hard error.
//
// fn must be atomic: it either commits entirely or leaves nothing behind,
// so a retry never observes a half-applied write.
func WithRetry(cfg config.RetryConfig, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isLockError(err) {
			return err
		}
		if i < attempts-1 {
			jitter := time.Duration(rand.Int63n(int64(delay) + 1))
			time.Sleep(delay + jitter/2)
			delay *= 2
		}
	}
	return util.ErrTransientStorage
}
