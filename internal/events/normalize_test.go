package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navlens/internal/events"
)

func TestParseKind(t *testing.T) {
	for _, route := range []string{"view", "vital", "error"} {
		kind, ok := events.ParseKind(route)
		require.True(t, ok, "route %q", route)
		assert.Equal(t, events.Kind(route), kind)
	}

	for _, route := range []string{"", "views", "View", "click"} {
		_, ok := events.ParseKind(route)
		assert.False(t, ok, "route %q", route)
	}
}

func TestCleanPath(t *testing.T) {
	t.Run("strips trailing slash", func(t *testing.T) {
		assert.Equal(t, "/pricing", events.CleanPath("/pricing/", ""))
	})

	t.Run("root stays root", func(t *testing.T) {
		assert.Equal(t, "/", events.CleanPath("/", ""))
	})

	t.Run("strips the site base path", func(t *testing.T) {
		assert.Equal(t, "/dashboard", events.CleanPath("/app/dashboard", "/app"))
	})

	t.Run("base stripped down to root", func(t *testing.T) {
		assert.Equal(t, "/", events.CleanPath("/app/", "/app"))
	})

	t.Run("always leads with a slash", func(t *testing.T) {
		assert.Equal(t, "/pricing", events.CleanPath("pricing", ""))
	})
}

func TestNormalizeReferrer(t *testing.T) {
	t.Run("keeps host and path only", func(t *testing.T) {
		got := events.NormalizeReferrer("https://news.ycombinator.com/item?id=1#top", "demo.example.com")
		assert.Equal(t, "news.ycombinator.com/item", got)
	})

	t.Run("drops trailing slash", func(t *testing.T) {
		got := events.NormalizeReferrer("https://duckduckgo.com/", "demo.example.com")
		assert.Equal(t, "duckduckgo.com", got)
	})

	t.Run("same-site referrers are suppressed", func(t *testing.T) {
		got := events.NormalizeReferrer("https://demo.example.com/about", "demo.example.com")
		assert.Equal(t, "", got)
	})

	t.Run("empty and unparsable are suppressed", func(t *testing.T) {
		assert.Equal(t, "", events.NormalizeReferrer("", "demo.example.com"))
		assert.Equal(t, "", events.NormalizeReferrer("not a url", "demo.example.com"))
	})
}

func TestParseVitalValue(t *testing.T) {
	require.NotNil(t, events.ParseVitalValue("812.5"))
	assert.Equal(t, 812.5, *events.ParseVitalValue("812.5"))
	assert.Equal(t, 0.0, *events.ParseVitalValue("0"))

	assert.Nil(t, events.ParseVitalValue(""))
	assert.Nil(t, events.ParseVitalValue("NaN-ish"))
	assert.Nil(t, events.ParseVitalValue("12px"))

	// JS serializes a missing measurement as the literal NaN, which
	// strconv.ParseFloat happily parses; non-finite values must not
	// become observations.
	assert.Nil(t, events.ParseVitalValue("NaN"))
	assert.Nil(t, events.ParseVitalValue("Inf"))
	assert.Nil(t, events.ParseVitalValue("+Inf"))
	assert.Nil(t, events.ParseVitalValue("-Inf"))
}

func TestCanonicalizeErrorMessage(t *testing.T) {
	t.Run("bare URLs collapse to origin and path", func(t *testing.T) {
		canonical, raw := events.CanonicalizeErrorMessage("https://cdn.example.com/app.js?v=123")
		assert.Equal(t, "https://cdn.example.com/app.js", canonical)
		assert.Equal(t, "https://cdn.example.com/app.js?v=123", raw)
	})

	t.Run("already canonical URLs keep no raw copy", func(t *testing.T) {
		canonical, raw := events.CanonicalizeErrorMessage("https://cdn.example.com/app.js")
		assert.Equal(t, "https://cdn.example.com/app.js", canonical)
		assert.Equal(t, "", raw)
	})

	t.Run("plain messages pass through", func(t *testing.T) {
		canonical, raw := events.CanonicalizeErrorMessage("x is not a function")
		assert.Equal(t, "x is not a function", canonical)
		assert.Equal(t, "", raw)
	})
}

func TestValidErrorType(t *testing.T) {
	assert.True(t, events.ValidErrorType("runtime"))
	assert.False(t, events.ValidErrorType("panic"))
	assert.False(t, events.ValidErrorType(""))
}
