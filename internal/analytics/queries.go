package analytics

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"navlens/internal/vitals"
)

// PageVitals holds one percentile of every web vital observed on a
// pathname plus the composite experience score derived from them.
// Metrics without observations stay nil.
type PageVitals struct {
	Pathname string   `json:"pathname"`
	CLS      *float64 `json:"cls"`
	FCP      *float64 `json:"fcp"`
	FID      *float64 `json:"fid"`
	LCP      *float64 `json:"lcp"`
	TTFB     *float64 `json:"ttfb"`
	Score    float64  `json:"score"`
	Samples  int      `json:"samples"`
}

// DefaultPercentile is the rank used when a dashboard query does not ask
// for a specific one.
const DefaultPercentile = 75

// ValidPercentile reports whether p is one of the selectable summary ranks.
func ValidPercentile(p float64) bool {
	switch p {
	case 50, 75, 90, 95, 99:
		return true
	}
	return false
}

// VitalsRanges computes per-pathname summaries of every vital metric at
// the requested percentile. Pages with no vitals rows at all are omitted.
func VitalsRanges(db *gorm.DB, siteID uint, tf Timeframe, p float64) ([]PageVitals, error) {
	byPath := make(map[string]*PageVitals)
	order := []string{}

	metrics := []string{MetricCLS, MetricFCP, MetricFID, MetricLCP, MetricTTFB}
	for _, metric := range metrics {
		groups, err := AggregateSamples(db, siteID, metric, tf, GroupByPathname)
		if err != nil {
			return nil, err
		}
		summaries := PercentileForGroups(groups, p)
		for _, g := range groups {
			summary := summaries[g.Group]
			page, ok := byPath[g.Group]
			if !ok {
				page = &PageVitals{Pathname: g.Group}
				byPath[g.Group] = page
				order = append(order, g.Group)
			}
			value := summary.Value
			switch metric {
			case MetricCLS:
				page.CLS = &value
			case MetricFCP:
				page.FCP = &value
			case MetricFID:
				page.FID = &value
			case MetricLCP:
				page.LCP = &value
			case MetricTTFB:
				page.TTFB = &value
			}
			if summary.Stats.Count > page.Samples {
				page.Samples = summary.Stats.Count
			}
		}
	}

	result := make([]PageVitals, 0, len(order))
	for _, pathname := range order {
		page := byPath[pathname]
		score, ok := vitals.ComputeNES(deref(page.FCP), deref(page.LCP), deref(page.FID), deref(page.CLS))
		if ok {
			page.Score = score
		}
		result = append(result, *page)
	}
	return result, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// SiteVitals computes the site-wide summary across all pages at the
// requested percentile.
func SiteVitals(db *gorm.DB, siteID uint, tf Timeframe, p float64) (PageVitals, error) {
	from, to := tf.Bounds()
	summary := PageVitals{Pathname: "*"}

	metrics := map[string]**float64{
		MetricCLS:  &summary.CLS,
		MetricFCP:  &summary.FCP,
		MetricFID:  &summary.FID,
		MetricLCP:  &summary.LCP,
		MetricTTFB: &summary.TTFB,
	}
	for metric, target := range metrics {
		column := vitalMetricColumns[metric]
		var values []float64
		err := db.Table("vitals").
			Select(column).
			Where(fmt.Sprintf("site_id = ? AND %s IS NOT NULL AND timestamp >= ? AND timestamp <= ?", column), siteID, from, to).
			Scan(&values).Error
		if err != nil {
			return PageVitals{}, fmt.Errorf("failed to load %s values: %w", metric, err)
		}
		if len(values) == 0 {
			continue
		}
		sorted := SortedCopy(values)
		value := PercentileByRank(sorted, p)
		*target = &value
		if len(values) > summary.Samples {
			summary.Samples = len(values)
		}
	}

	score, ok := vitals.ComputeNES(deref(summary.FCP), deref(summary.LCP), deref(summary.FID), deref(summary.CLS))
	if ok {
		summary.Score = score
	}
	return summary, nil
}

// LCPRanges holds the largest-contentful-paint percentiles attached to a
// pages row.
type LCPRanges struct {
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}

// PageTraffic is the per-pathname traffic summary for the pages table.
// LCP stays nil for pathnames without vitals observations.
type PageTraffic struct {
	Pathname string     `json:"pathname"`
	Views    int64      `json:"views"`
	Sessions int64      `json:"sessions"`
	LCP      *LCPRanges `json:"lcp"`
}

// PageRanges lists pathnames by view count with distinct-session counts
// and the LCP percentile spread observed on each pathname.
func PageRanges(db *gorm.DB, siteID uint, tf Timeframe, limit int) ([]PageTraffic, error) {
	from, to := tf.Bounds()
	if limit <= 0 {
		limit = 50
	}

	var pages []PageTraffic
	err := db.Table("views").
		Select("pathname, COUNT(*) AS views, COUNT(DISTINCT fingerprint) AS sessions").
		Where("site_id = ? AND timestamp >= ? AND timestamp <= ?", siteID, from, to).
		Group("pathname").
		Order("views DESC").
		Limit(limit).
		Scan(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load page traffic: %w", err)
	}
	if len(pages) == 0 {
		return pages, nil
	}

	groups, err := AggregateSamples(db, siteID, MetricLCP, tf, GroupByPathname)
	if err != nil {
		return nil, err
	}
	lcpByPath := make(map[string][]float64, len(groups))
	for _, g := range groups {
		lcpByPath[g.Group] = g.Values
	}
	for i := range pages {
		values, ok := lcpByPath[pages[i].Pathname]
		if !ok {
			continue
		}
		sorted := SortedCopy(values)
		pages[i].LCP = &LCPRanges{
			P50: PercentileByRank(sorted, 50),
			P75: PercentileByRank(sorted, 75),
			P90: PercentileByRank(sorted, 90),
			P99: PercentileByRank(sorted, 99),
		}
	}
	return pages, nil
}

// ErrorGroup is one distinct error identity with its occurrence summary.
type ErrorGroup struct {
	ErrorType string    `json:"error_type"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Count     int64     `json:"count"`
	Sessions  int64     `json:"sessions"`
	LastSeen  time.Time `json:"last_seen"`
}

// ErrorGroups groups error events by type, name and canonical message.
func ErrorGroups(db *gorm.DB, siteID uint, tf Timeframe, limit int) ([]ErrorGroup, error) {
	from, to := tf.Bounds()
	if limit <= 0 {
		limit = 50
	}

	var groups []ErrorGroup
	err := db.Table("error_events").
		Select("error_type, name, message, COUNT(*) AS count, COUNT(DISTINCT fingerprint) AS sessions, MAX(timestamp) AS last_seen").
		Where("site_id = ? AND resolved = ? AND timestamp >= ? AND timestamp <= ?", siteID, false, from, to).
		Group("error_type, name, message").
		Order("count DESC").
		Limit(limit).
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load error groups: %w", err)
	}
	return groups, nil
}

// TrendPoint is one daily bucket of traffic volume.
type TrendPoint struct {
	Day      string `json:"day"`
	Views    int64  `json:"views"`
	Sessions int64  `json:"sessions"`
}

// Trend buckets views per calendar day across the timeframe. Days with no
// traffic are filled in with zero counts so charts render a continuous axis.
func Trend(db *gorm.DB, siteID uint, tf Timeframe) ([]TrendPoint, error) {
	from, to := tf.Bounds()

	var rows []TrendPoint
	err := db.Table("views").
		Select("strftime('%Y-%m-%d', timestamp) AS day, COUNT(*) AS views, COUNT(DISTINCT fingerprint) AS sessions").
		Where("site_id = ? AND timestamp >= ? AND timestamp <= ?", siteID, from, to).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load traffic trend: %w", err)
	}

	byDay := make(map[string]TrendPoint, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row
	}

	var points []TrendPoint
	for day := from.Truncate(24 * time.Hour); !day.After(to); day = day.Add(24 * time.Hour) {
		key := day.UTC().Format("2006-01-02")
		if row, ok := byDay[key]; ok {
			points = append(points, row)
		} else {
			points = append(points, TrendPoint{Day: key})
		}
	}
	return points, nil
}

// LocationStat is traffic volume from one country. Country is the
// lowercase ISO code as stored on sessions, empty when geolocation
// failed; Name is filled in by the presentation layer.
type LocationStat struct {
	Country  string `json:"country"`
	Name     string `json:"name"`
	Views    int64  `json:"views"`
	Sessions int64  `json:"sessions"`
}

// Locations groups views by the country of their session.
func Locations(db *gorm.DB, siteID uint, tf Timeframe) ([]LocationStat, error) {
	from, to := tf.Bounds()

	var stats []LocationStat
	err := db.Table("views").
		Select("COALESCE(sessions.location, '') AS country, COUNT(*) AS views, COUNT(DISTINCT views.fingerprint) AS sessions").
		Joins("LEFT JOIN sessions ON sessions.fingerprint = views.fingerprint").
		Where("views.site_id = ? AND views.timestamp >= ? AND views.timestamp <= ?", siteID, from, to).
		Group("country").
		Order("views DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load location stats: %w", err)
	}
	return stats, nil
}

// SessionCount counts distinct fingerprints that produced any view.
func SessionCount(db *gorm.DB, siteID uint, tf Timeframe) (int64, error) {
	from, to := tf.Bounds()
	var count int64
	err := db.Table("views").
		Where("site_id = ? AND timestamp >= ? AND timestamp <= ?", siteID, from, to).
		Distinct("fingerprint").
		Count(&count).Error
	return count, err
}
