package middleware

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the steady-state spacing between updates from one user.
	Interval time.Duration
	// Burst is how many updates may arrive back to back.
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// IdleTTL drops limiters for users quiet longer than this; 0 means ten minutes.
	IdleTTL time.Duration
}

type userLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per Telegram user.
type RateLimiter struct {
	opts      RateLimitOptions
	mu        sync.Mutex
	users     map[int64]*userLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter builds a limiter from opts. Burst below one is treated as one.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	return &RateLimiter{opts: opts, users: make(map[int64]*userLimiter), now: time.Now}
}

// Allow reports whether userID may proceed now.
func (l *RateLimiter) Allow(userID int64) bool {
	if l.opts.Interval <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.opts.IdleTTL {
		for id, u := range l.users {
			if now.Sub(u.seen) > l.opts.IdleTTL {
				delete(l.users, id)
			}
		}
		l.lastSweep = now
	}

	u, ok := l.users[userID]
	if !ok {
		u = &userLimiter{lim: rate.NewLimiter(rate.Every(l.opts.Interval), l.opts.Burst)}
		l.users[userID] = u
	}
	u.seen = now
	return u.lim.AllowN(now, 1)
}

// Middleware returns the telebot middleware enforcing the limits.
func (l *RateLimiter) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil || l.opts.Interval <= 0 {
			return next(c)
		}
		if _, skip := l.opts.Exclude[UpdateKind(c.Update())]; skip {
			return next(c)
		}
		if l.Allow(user.ID) {
			return next(c)
		}

		logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
			slog.Bool("rate_limited", true),
		)
		if l.opts.OnLimited != nil {
			_ = l.opts.OnLimited(c)
		}
		return nil
	}
}

// RateLimitMiddleware is a shorthand for NewRateLimiter(opts).Middleware.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	return NewRateLimiter(opts).Middleware
}
