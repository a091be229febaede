package analytics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navlens/internal/analytics"
	"navlens/internal/events"
	"navlens/internal/testsupport"
)

func fp(n int) string {
	return fmt.Sprintf("%032x", n)
}

func weekAround(now time.Time) analytics.Timeframe {
	return analytics.Timeframe{From: now.AddDate(0, 0, -7), To: now.Add(time.Hour)}
}

func TestPageRanges(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	site := testsupport.CreateTestSite(t, db, "demo.example.com")
	now := time.Now().UTC()

	// two sessions on /pricing, one of them twice; one session on /
	testsupport.CreateTestView(t, db, site.ID, fp(1), "/pricing", now.Add(-time.Hour))
	testsupport.CreateTestView(t, db, site.ID, fp(1), "/pricing", now.Add(-30*time.Minute))
	testsupport.CreateTestView(t, db, site.ID, fp(2), "/pricing", now.Add(-time.Hour))
	testsupport.CreateTestView(t, db, site.ID, fp(3), "/", now.Add(-time.Hour))

	// outside the timeframe, must not count
	testsupport.CreateTestView(t, db, site.ID, fp(4), "/pricing", now.AddDate(0, 0, -30))

	// LCP observations on /pricing only
	for i, v := range []float64{1000, 2000, 3000, 4000} {
		testsupport.CreateTestVital(t, db, site.ID, fp(i), "/pricing",
			nil, testsupport.Float(v), nil, nil, now.Add(-time.Hour))
	}

	pages, err := analytics.PageRanges(db, site.ID, weekAround(now), 0)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "/pricing", pages[0].Pathname)
	assert.Equal(t, int64(3), pages[0].Views)
	assert.Equal(t, int64(2), pages[0].Sessions)
	require.NotNil(t, pages[0].LCP)
	assert.Equal(t, 2000.0, pages[0].LCP.P50)
	assert.Equal(t, 3000.0, pages[0].LCP.P75)
	assert.Equal(t, 4000.0, pages[0].LCP.P90)
	assert.Equal(t, 4000.0, pages[0].LCP.P99)

	assert.Equal(t, "/", pages[1].Pathname)
	assert.Equal(t, int64(1), pages[1].Views)
	assert.Nil(t, pages[1].LCP, "no vitals means no ranges")

	t.Run("limit caps the result", func(t *testing.T) {
		pages, err := analytics.PageRanges(db, site.ID, weekAround(now), 1)
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, "/pricing", pages[0].Pathname)
	})

	t.Run("other sites are invisible", func(t *testing.T) {
		pages, err := analytics.PageRanges(db, site.ID+1, weekAround(now), 0)
		require.NoError(t, err)
		assert.Empty(t, pages)
	})
}

func TestVitalsRanges(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	site := testsupport.CreateTestSite(t, db, "demo.example.com")
	now := time.Now().UTC()

	// four FCP samples on /pricing; p75 by nearest rank picks the third
	for i, v := range []float64{800, 900, 1000, 2000} {
		testsupport.CreateTestVital(t, db, site.ID, fp(i), "/pricing",
			testsupport.Float(v), testsupport.Float(2000), nil, testsupport.Float(0.05),
			now.Add(-time.Hour))
	}

	pages, err := analytics.VitalsRanges(db, site.ID, weekAround(now), analytics.DefaultPercentile)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	page := pages[0]
	assert.Equal(t, "/pricing", page.Pathname)
	require.NotNil(t, page.FCP)
	assert.Equal(t, 1000.0, *page.FCP)
	require.NotNil(t, page.LCP)
	assert.Equal(t, 2000.0, *page.LCP)
	assert.Nil(t, page.FID, "metric with no samples stays nil")
	assert.Equal(t, 4, page.Samples)

	// FCP 1000 and LCP 2000 sit within good thresholds, CLS 0.05 too;
	// FID missing is tolerated, so a score must be present.
	assert.Greater(t, page.Score, 0.0)

	t.Run("p99 picks the tail sample", func(t *testing.T) {
		pages, err := analytics.VitalsRanges(db, site.ID, weekAround(now), 99)
		require.NoError(t, err)
		require.Len(t, pages, 1)
		require.NotNil(t, pages[0].FCP)
		assert.Equal(t, 2000.0, *pages[0].FCP)
	})
}

func TestSiteVitals(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	site := testsupport.CreateTestSite(t, db, "demo.example.com")
	now := time.Now().UTC()

	testsupport.CreateTestVital(t, db, site.ID, fp(1), "/pricing",
		testsupport.Float(800), testsupport.Float(1500), testsupport.Float(50), testsupport.Float(0.02),
		now.Add(-time.Hour))
	testsupport.CreateTestVital(t, db, site.ID, fp(2), "/",
		testsupport.Float(1200), testsupport.Float(2500), nil, testsupport.Float(0.08),
		now.Add(-time.Hour))

	summary, err := analytics.SiteVitals(db, site.ID, weekAround(now), analytics.DefaultPercentile)
	require.NoError(t, err)

	assert.Equal(t, "*", summary.Pathname)
	require.NotNil(t, summary.FCP)
	assert.Equal(t, 1200.0, *summary.FCP, "p75 of two samples is the larger one")
	assert.Equal(t, 2, summary.Samples)
	assert.Greater(t, summary.Score, 0.0)

	t.Run("empty site keeps nil metrics", func(t *testing.T) {
		summary, err := analytics.SiteVitals(db, site.ID+1, weekAround(now), analytics.DefaultPercentile)
		require.NoError(t, err)
		assert.Nil(t, summary.FCP)
		assert.Equal(t, 0.0, summary.Score)
	})
}

func TestErrorGroups(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	site := testsupport.CreateTestSite(t, db, "demo.example.com")
	now := time.Now().UTC()

	insertError := func(fingerprint, name, message string, resolved bool, ts time.Time) {
		require.NoError(t, db.Create(&events.ErrorEvent{
			SiteID:      site.ID,
			Fingerprint: fingerprint,
			Pathname:    "/checkout",
			Type:        "runtime",
			Name:        name,
			Message:     message,
			Resolved:    resolved,
			Timestamp:   ts,
			CreatedAt:   ts,
		}).Error)
	}

	insertError(fp(1), "TypeError", "x is not a function", false, now.Add(-2*time.Hour))
	insertError(fp(2), "TypeError", "x is not a function", false, now.Add(-time.Hour))
	insertError(fp(1), "RangeError", "out of bounds", false, now.Add(-time.Hour))
	insertError(fp(3), "TypeError", "x is not a function", true, now.Add(-time.Hour))

	groups, err := analytics.ErrorGroups(db, site.ID, weekAround(now), 0)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	top := groups[0]
	assert.Equal(t, "runtime", top.ErrorType)
	assert.Equal(t, "TypeError", top.Name)
	assert.Equal(t, int64(2), top.Count, "resolved occurrences are excluded")
	assert.Equal(t, int64(2), top.Sessions)
	assert.WithinDuration(t, now.Add(-time.Hour), top.LastSeen, time.Minute)

	assert.Equal(t, "RangeError", groups[1].Name)
	assert.Equal(t, int64(1), groups[1].Count)
}

func TestTrend(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	site := testsupport.CreateTestSite(t, db, "demo.example.com")

	to := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	tf := analytics.Timeframe{From: to.AddDate(0, 0, -3), To: to}

	testsupport.CreateTestView(t, db, site.ID, fp(1), "/", time.Date(2026, 8, 8, 9, 0, 0, 0, time.UTC))
	testsupport.CreateTestView(t, db, site.ID, fp(2), "/", time.Date(2026, 8, 8, 10, 0, 0, 0, time.UTC))
	testsupport.CreateTestView(t, db, site.ID, fp(1), "/", time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC))

	points, err := analytics.Trend(db, site.ID, tf)
	require.NoError(t, err)
	require.Len(t, points, 4, "every day in the window gets a bucket")

	byDay := map[string]analytics.TrendPoint{}
	for _, p := range points {
		byDay[p.Day] = p
	}
	assert.Equal(t, int64(2), byDay["2026-08-08"].Views)
	assert.Equal(t, int64(2), byDay["2026-08-08"].Sessions)
	assert.Equal(t, int64(0), byDay["2026-08-09"].Views, "quiet days are zero-filled")
	assert.Equal(t, int64(1), byDay["2026-08-10"].Views)
}

func TestSessionCount(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	site := testsupport.CreateTestSite(t, db, "demo.example.com")
	now := time.Now().UTC()

	testsupport.CreateTestView(t, db, site.ID, fp(1), "/", now.Add(-time.Hour))
	testsupport.CreateTestView(t, db, site.ID, fp(1), "/pricing", now.Add(-30*time.Minute))
	testsupport.CreateTestView(t, db, site.ID, fp(2), "/", now.Add(-time.Hour))

	count, err := analytics.SessionCount(db, site.ID, weekAround(now))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAggregateSamples(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	site := testsupport.CreateTestSite(t, db, "demo.example.com")
	now := time.Now().UTC()

	testsupport.CreateTestVital(t, db, site.ID, fp(1), "/a", testsupport.Float(100), nil, nil, nil, now.Add(-time.Hour))
	testsupport.CreateTestVital(t, db, site.ID, fp(2), "/a", testsupport.Float(300), nil, nil, nil, now.Add(-time.Hour))
	testsupport.CreateTestVital(t, db, site.ID, fp(3), "/b", testsupport.Float(200), nil, nil, nil, now.Add(-time.Hour))
	// a row without the metric is skipped entirely
	testsupport.CreateTestVital(t, db, site.ID, fp(4), "/a", nil, testsupport.Float(900), nil, nil, now.Add(-time.Hour))

	groups, err := analytics.AggregateSamples(db, site.ID, analytics.MetricFCP, weekAround(now), analytics.GroupByPathname)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	byGroup := map[string][]float64{}
	for _, g := range groups {
		byGroup[g.Group] = g.Values
	}
	assert.ElementsMatch(t, []float64{100, 300}, byGroup["/a"])
	assert.ElementsMatch(t, []float64{200}, byGroup["/b"])

	t.Run("unknown metric key errors", func(t *testing.T) {
		_, err := analytics.AggregateSamples(db, site.ID, "bogus", weekAround(now), analytics.GroupByPathname)
		assert.Error(t, err)
	})
}
