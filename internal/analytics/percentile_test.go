package analytics_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"navlens/internal/analytics"
)

func TestPercentileByRank(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}

	t.Run("p75 of five values picks the fourth", func(t *testing.T) {
		assert.Equal(t, 40.0, analytics.PercentileByRank(sorted, 75))
	})

	t.Run("p100 picks the maximum", func(t *testing.T) {
		assert.Equal(t, 50.0, analytics.PercentileByRank(sorted, 100))
	})

	t.Run("p50 of five values picks the third", func(t *testing.T) {
		assert.Equal(t, 30.0, analytics.PercentileByRank(sorted, 50))
	})

	t.Run("single element wins every percentile", func(t *testing.T) {
		single := []float64{42}
		assert.Equal(t, 42.0, analytics.PercentileByRank(single, 1))
		assert.Equal(t, 42.0, analytics.PercentileByRank(single, 50))
		assert.Equal(t, 42.0, analytics.PercentileByRank(single, 100))
	})

	t.Run("result is always a member of the sample", func(t *testing.T) {
		for p := 1.0; p <= 100; p++ {
			value := analytics.PercentileByRank(sorted, p)
			assert.Contains(t, sorted, value, "p%.0f", p)
		}
	})

	t.Run("empty sample yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, analytics.PercentileByRank(nil, 75))
	})
}

func TestComputeSampleStats(t *testing.T) {
	stats := analytics.ComputeSampleStats([]float64{10, 20, 30, 40, 50})
	assert.Equal(t, 10.0, stats.Min)
	assert.Equal(t, 50.0, stats.Max)
	assert.Equal(t, 30.0, stats.Avg)
	assert.Equal(t, 5, stats.Count)
}

func TestSortedCopy(t *testing.T) {
	original := []float64{3, 1, 2}
	sorted := analytics.SortedCopy(original)

	assert.Equal(t, []float64{1, 2, 3}, sorted)
	assert.Equal(t, []float64{3, 1, 2}, original, "input must not be mutated")
}

func TestParseTimeframe(t *testing.T) {
	t.Run("parses unix millisecond bounds", func(t *testing.T) {
		from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)

		tf := analytics.ParseTimeframe(
			formatMillis(from),
			formatMillis(to),
		)
		gotFrom, gotTo := tf.Bounds()
		assert.Equal(t, from, gotFrom)
		assert.Equal(t, to, gotTo)
	})

	t.Run("defaults to the last seven days", func(t *testing.T) {
		tf := analytics.ParseTimeframe("", "")
		from, to := tf.Bounds()
		assert.InDelta(t, 7*24*time.Hour, to.Sub(from), float64(time.Minute))
	})

	t.Run("swapped bounds are normalized", func(t *testing.T) {
		from := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

		tf := analytics.ParseTimeframe(formatMillis(from), formatMillis(to))
		gotFrom, gotTo := tf.Bounds()
		assert.True(t, gotFrom.Before(gotTo))
	})
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
