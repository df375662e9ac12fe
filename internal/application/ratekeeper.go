package application

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"carcost-bot/internal/domain"
)

// RateKeeper owns the current ExchangeRates snapshot. Refresh publishes a
// complete new snapshot atomically, so readers never observe a partially
// updated set of rates. Each sub-fetch fails independently: a failed source
// keeps its previous value (zero before the first success).
type RateKeeper struct {
	usdtKrw RateSource
	usdtRub RateSource
	rubKrw  RateSource // optional; nil disables the bank conversion path

	snap       atomic.Pointer[domain.ExchangeRates]
	interval   time.Duration
	retryDelay time.Duration
	clock      Clock
	log        *zap.Logger
}

type RateKeeperOption func(*RateKeeper)

func WithRefreshInterval(d time.Duration) RateKeeperOption {
	return func(k *RateKeeper) { k.interval = d }
}

func WithRetryDelay(d time.Duration) RateKeeperOption {
	return func(k *RateKeeper) { k.retryDelay = d }
}

func WithRateClock(c Clock) RateKeeperOption {
	return func(k *RateKeeper) { k.clock = c }
}

func NewRateKeeper(usdtKrw, usdtRub, rubKrw RateSource, log *zap.Logger, opts ...RateKeeperOption) *RateKeeper {
	k := &RateKeeper{
		usdtKrw:    usdtKrw,
		usdtRub:    usdtRub,
		rubKrw:     rubKrw,
		interval:   time.Hour,
		retryDelay: time.Minute,
		clock:      realClock{},
		log:        log,
	}
	for _, opt := range opts {
		opt(k)
	}
	k.snap.Store(&domain.ExchangeRates{})
	return k
}

// Current returns the last published snapshot. All fields are zero before
// the first successful refresh.
func (k *RateKeeper) Current() domain.ExchangeRates { return *k.snap.Load() }

// Refresh fetches all sources and publishes a new snapshot. The returned
// error joins the individual fetch failures; the snapshot is published
// regardless, carrying previous values for the failed sources.
func (k *RateKeeper) Refresh(ctx context.Context) error {
	prev := k.Current()
	next := domain.ExchangeRates{
		UsdtKrw:   prev.UsdtKrw,
		UsdtRub:   prev.UsdtRub,
		RubKrw:    prev.RubKrw,
		FetchedAt: k.clock.Now(),
	}

	var errs []error
	if v, err := k.usdtKrw.Rate(ctx); err != nil {
		k.log.Warn("usdt/krw fetch failed", zap.Error(err))
		errs = append(errs, err)
	} else {
		next.UsdtKrw = v
	}
	if v, err := k.usdtRub.Rate(ctx); err != nil {
		k.log.Warn("usdt/rub fetch failed", zap.Error(err))
		errs = append(errs, err)
	} else {
		next.UsdtRub = v
	}
	if k.rubKrw != nil {
		if v, err := k.rubKrw.Rate(ctx); err != nil {
			k.log.Warn("rub/krw fetch failed", zap.Error(err))
			errs = append(errs, err)
		} else {
			next.RubKrw = v
		}
	}

	k.snap.Store(&next)
	return errors.Join(errs...)
}

// Fresh re-fetches all sources and returns the resulting snapshot. Quote
// paths call it so every quotation prices on just-fetched rates. A failed
// refresh is tolerated: the snapshot keeps previous values, and the quoter
// rejects a snapshot that never became valid.
func (k *RateKeeper) Fresh(ctx context.Context) domain.ExchangeRates {
	if err := k.Refresh(ctx); err != nil {
		k.log.Warn("pre-quote rate refresh failed", zap.Error(err))
	}
	return k.Current()
}

// Start runs the periodic refresh loop until ctx is canceled. Failed cycles
// are retried after the short retry delay instead of the full interval.
func (k *RateKeeper) Start(ctx context.Context) {
	for {
		delay := k.interval
		if err := k.Refresh(ctx); err != nil {
			delay = k.retryDelay
		} else {
			k.log.Info("rates refreshed",
				zap.Float64("usdt_krw", k.Current().UsdtKrw),
				zap.Float64("usdt_rub", k.Current().UsdtRub),
				zap.Float64("rub_krw", k.Current().RubKrw),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

var _ Worker = (*RateKeeper)(nil)
