package telegram

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/telegram/middleware"
)

// MiddlewareOptions carries the optional observers for DefaultMiddlewares.
type MiddlewareOptions struct {
	OnLimited tele.HandlerFunc
	// RateLimited is invoked once per dropped update.
	RateLimited func()
	Updates     middleware.UpdateRecorder
}

// DefaultMiddlewares builds the shared middleware chain for bots.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
			}
			onLimited := opts.OnLimited
			if opts.RateLimited != nil {
				onLimited = func(c tele.Context) error {
					opts.RateLimited()
					if opts.OnLimited != nil {
						return opts.OnLimited(c)
					}
					return nil
				}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval:  interval,
					Burst:     cfg.RateLimit.Burst,
					Exclude:   ex,
					OnLimited: onLimited,
				}),
			})
		}
	}

	if opts.Updates != nil {
		mws = append(mws, Middleware{Name: "metrics", Use: middleware.UpdateMetricsMiddleware(opts.Updates)})
	}

	return mws
}
