package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func monthsAgo(n int) (int, int) {
	d := now.AddDate(0, -n, 0)
	return d.Year(), int(d.Month())
}

func TestClassifyAge_Buckets(t *testing.T) {
	t.Parallel()
	cases := []struct {
		months int
		want   AgeBucket
	}{
		{0, AgeUnder3},
		{35, AgeUnder3},
		{36, Age3To5}, // boundary month falls into the older bucket
		{59, Age3To5},
		{60, Age5To7},
		{83, Age5To7},
		{84, AgeOver7},
		{200, AgeOver7},
	}
	for _, c := range cases {
		y, m := monthsAgo(c.months)
		require.Equal(t, c.want, ClassifyAge(y, m, now), "age %d months", c.months)
	}
}

func TestClassifyAge_Monotonic(t *testing.T) {
	t.Parallel()
	order := map[AgeBucket]int{AgeUnder3: 0, Age3To5: 1, Age5To7: 2, AgeOver7: 3}
	prev := 0
	for months := 0; months <= 120; months++ {
		y, m := monthsAgo(months)
		cur := order[ClassifyAge(y, m, now)]
		require.GreaterOrEqual(t, cur, prev, "age %d months", months)
		prev = cur
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()
	for _, bad := range []string{"abc", "12345", "", "+7 (912) abc-45-67"} {
		_, err := NormalizePhone(bad)
		require.ErrorIs(t, err, ErrValidation, "input %q", bad)
	}

	got, err := NormalizePhone("+7 (912) 345-67-89")
	require.NoError(t, err)
	require.Equal(t, "+79123456789", got)

	got, err = NormalizePhone("82107650303")
	require.NoError(t, err)
	require.Equal(t, "82107650303", got)
}
