// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package protocolcache

import (
	"log"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultIdleTimeout is how long a cache may go without a successful
	// lookup or store before its whole contents are dropped.
	DefaultIdleTimeout = time.Hour

	// DefaultSweepInterval is how often a started cache checks for idleness.
	DefaultSweepInterval = time.Minute
)

var (
	meter = otel.Meter("github.com/cardinalhq/keytoname/internal/protocolcache")

	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
	cacheFetchErrors metric.Int64Counter
	cacheClears      metric.Int64Counter
	cacheItems       metric.Int64ObservableGauge
)

func init() {
	var err error

	cacheHits, err = meter.Int64Counter(
		"keytoname.protocolcache.hits",
		metric.WithDescription("Number of protocol cache hits"),
	)
	if err != nil {
		log.Fatalf("failed to create protocolcache.hits counter: %v", err)
	}

	cacheMisses, err = meter.Int64Counter(
		"keytoname.protocolcache.misses",
		metric.WithDescription("Number of protocol cache misses"),
	)
	if err != nil {
		log.Fatalf("failed to create protocolcache.misses counter: %v", err)
	}

	cacheFetchErrors, err = meter.Int64Counter(
		"keytoname.protocolcache.fetch_errors",
		metric.WithDescription("Number of failed fetches on cache miss"),
	)
	if err != nil {
		log.Fatalf("failed to create protocolcache.fetch_errors counter: %v", err)
	}

	cacheClears, err = meter.Int64Counter(
		"keytoname.protocolcache.clears",
		metric.WithDescription("Number of times a cache was emptied"),
	)
	if err != nil {
		log.Fatalf("failed to create protocolcache.clears counter: %v", err)
	}

	cacheItems, err = meter.Int64ObservableGauge(
		"keytoname.protocolcache.items",
		metric.WithDescription("Current number of entries in the protocol cache"),
	)
	if err != nil {
		log.Fatalf("failed to create protocolcache.items gauge: %v", err)
	}
}

type options struct {
	name          string
	idleTimeout   time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	coalesce      bool
	logger        *slog.Logger
}

func defaultOptions() options {
	return options{
		name:          "default",
		idleTimeout:   DefaultIdleTimeout,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        slog.Default(),
	}
}

// Option configures a Cache.
type Option func(*options)

// WithName labels the cache in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithIdleTimeout sets the inactivity window after which the cache is cleared.
// Non-positive values are ignored.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleTimeout = d
		}
	}
}

// WithSweepInterval sets how often Start checks for idleness.
// Non-positive values are ignored.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sweepInterval = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCoalescedFetches makes concurrent misses for the same key share one
// fetch. The fetch runs with the context of the first caller.
func WithCoalescedFetches(enabled bool) Option {
	return func(o *options) {
		o.coalesce = enabled
	}
}

// WithLogger sets the logger used for expiry messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
