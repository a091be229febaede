package analytics

import (
	"strconv"
	"time"
)

// Timeframe bounds a dashboard query. Zero values fall back to the last
// seven days at query time.
type Timeframe struct {
	From time.Time
	To   time.Time
}

// ParseTimeframe builds a timeframe from unix-millisecond query params.
// Missing or malformed bounds default to the last seven days.
func ParseTimeframe(fromParam, toParam string) Timeframe {
	tf := Timeframe{}
	if ms, err := strconv.ParseInt(fromParam, 10, 64); err == nil && ms > 0 {
		tf.From = time.UnixMilli(ms).UTC()
	}
	if ms, err := strconv.ParseInt(toParam, 10, 64); err == nil && ms > 0 {
		tf.To = time.UnixMilli(ms).UTC()
	}
	return tf.normalized()
}

func (tf Timeframe) normalized() Timeframe {
	if tf.To.IsZero() {
		tf.To = time.Now().UTC()
	}
	if tf.From.IsZero() || !tf.From.Before(tf.To) {
		tf.From = tf.To.AddDate(0, 0, -7)
	}
	return tf
}

// Bounds returns the normalized [from, to] pair for SQL predicates.
func (tf Timeframe) Bounds() (time.Time, time.Time) {
	n := tf.normalized()
	return n.From, n.To
}
