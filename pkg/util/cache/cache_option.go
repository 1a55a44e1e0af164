package cache

import (
	"time"

	"github.com/lburgazzoli/kpipe/pkg/util"
)

// Option is a generic option for Cache.
type Option = util.Option[Options]

// Options holds cache settings.
type Options struct {
	// TTL is the time-to-live for cache entries.
	TTL time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// ApplyTo applies the non-zero fields of opts to target.
func (opts Options) ApplyTo(target *Options) {
	if opts.TTL > 0 {
		target.TTL = opts.TTL
	}
	if opts.Now != nil {
		target.Now = opts.Now
	}
}

// WithTTL sets the time-to-live for cache entries.
func WithTTL(ttl time.Duration) Option {
	return util.FunctionalOption[Options](func(opts *Options) {
		opts.TTL = ttl
	})
}

// WithClock replaces the time source used to compute expirations.
func WithClock(now func() time.Time) Option {
	return util.FunctionalOption[Options](func(opts *Options) {
		opts.Now = now
	})
}
