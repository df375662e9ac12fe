package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRateKeeper_RefreshPublishesSnapshot(t *testing.T) {
	t.Parallel()
	k := NewRateKeeper(
		&fakeRateSource{v: 1340},
		&fakeRateSource{v: 82},
		&fakeRateSource{v: 16.3},
		zap.NewNop(),
		WithRateClock(fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}),
	)

	require.NoError(t, k.Refresh(context.Background()))
	got := k.Current()
	require.Equal(t, 1340.0, got.UsdtKrw)
	require.Equal(t, 82.0, got.UsdtRub)
	require.Equal(t, 16.3, got.RubKrw)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got.FetchedAt)
}

func TestRateKeeper_FailedSourceKeepsPreviousValue(t *testing.T) {
	t.Parallel()
	krw := &fakeRateSource{v: 1340}
	rub := &fakeRateSource{v: 82}
	k := NewRateKeeper(krw, rub, &fakeRateSource{v: 16.3}, zap.NewNop())
	require.NoError(t, k.Refresh(context.Background()))

	krw.err = errors.New("naver timeout")
	rub.v = 85
	err := k.Refresh(context.Background())
	require.Error(t, err)

	got := k.Current()
	require.Equal(t, 1340.0, got.UsdtKrw, "failed source keeps previous value")
	require.Equal(t, 85.0, got.UsdtRub, "successful sources still update")
}

func TestRateKeeper_FreshRefetchesSources(t *testing.T) {
	t.Parallel()
	krw := &fakeRateSource{v: 1340}
	rub := &fakeRateSource{v: 82}
	k := NewRateKeeper(krw, rub, nil, zap.NewNop())
	require.NoError(t, k.Refresh(context.Background()))

	rub.v = 85
	got := k.Fresh(context.Background())
	require.Equal(t, 85.0, got.UsdtRub, "quotes price on just-fetched rates")
	require.Equal(t, 2, krw.calls)
	require.Equal(t, 2, rub.calls)

	krw.err = errors.New("naver timeout")
	got = k.Fresh(context.Background())
	require.Equal(t, 1340.0, got.UsdtKrw, "failed refresh keeps previous values")
}

func TestRateKeeper_ZeroBeforeFirstRefresh(t *testing.T) {
	t.Parallel()
	k := NewRateKeeper(&fakeRateSource{v: 1}, &fakeRateSource{v: 1}, nil, zap.NewNop())
	got := k.Current()
	require.False(t, got.HasUsdtKrw())
	require.False(t, got.HasUsdtRub())
	require.False(t, got.HasRubKrw())
}

func TestRateKeeper_NilBankSource(t *testing.T) {
	t.Parallel()
	k := NewRateKeeper(&fakeRateSource{v: 1340}, &fakeRateSource{v: 82}, nil, zap.NewNop())
	require.NoError(t, k.Refresh(context.Background()))
	require.False(t, k.Current().HasRubKrw())
}

func TestRateKeeper_StartStopsOnCancel(t *testing.T) {
	t.Parallel()
	krw := &fakeRateSource{v: 1340}
	k := NewRateKeeper(krw, &fakeRateSource{v: 82}, nil, zap.NewNop(),
		WithRefreshInterval(5*time.Millisecond), WithRetryDelay(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return k.Current().HasUsdtKrw() }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keeper did not stop on cancel")
	}
	require.GreaterOrEqual(t, krw.calls, 1)
}
