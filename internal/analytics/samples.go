package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// Vital metric keys accepted by the sample aggregator. They map directly
// onto columns of the vitals table.
const (
	MetricCLS  = "cls"
	MetricFCP  = "fcp"
	MetricFID  = "fid"
	MetricLCP  = "lcp"
	MetricTTFB = "ttfb"
)

var vitalMetricColumns = map[string]string{
	MetricCLS:  "cls",
	MetricFCP:  "fcp",
	MetricFID:  "fid",
	MetricLCP:  "lcp",
	MetricTTFB: "ttfb",
}

// Grouping dimensions accepted by the sample aggregator.
const (
	GroupByPathname    = "pathname"
	GroupByFingerprint = "fingerprint"
)

var sampleGroupColumns = map[string]string{
	GroupByPathname:    "pathname",
	GroupByFingerprint: "fingerprint",
}

// SampleGroup is one grouping key with its raw, unsorted observations.
// Groups are ephemeral: produced per dashboard query, consumed by the
// percentile extractor, never persisted.
type SampleGroup struct {
	Group  string
	Values []float64
}

// AggregateSamples materializes the per-group numeric observations of one
// vital metric within a timeframe. Rows where the metric was not observed
// (NULL) are excluded, so empty groups never appear in the result.
func AggregateSamples(db *gorm.DB, siteID uint, metricKey string, tf Timeframe, groupBy string) ([]SampleGroup, error) {
	column, ok := vitalMetricColumns[metricKey]
	if !ok {
		return nil, fmt.Errorf("unsupported metric key: %s", metricKey)
	}
	groupColumn, ok := sampleGroupColumns[groupBy]
	if !ok {
		return nil, fmt.Errorf("unsupported grouping dimension: %s", groupBy)
	}

	from, to := tf.Bounds()

	type sampleRow struct {
		Grp   string
		Value float64
	}
	var rows []sampleRow
	err := db.Table("vitals").
		Select(fmt.Sprintf("%s AS grp, %s AS value", groupColumn, column)).
		Where(fmt.Sprintf("site_id = ? AND %s IS NOT NULL AND timestamp >= ? AND timestamp <= ?", column), siteID, from, to).
		Order("grp ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s samples: %w", metricKey, err)
	}

	var groups []SampleGroup
	for _, row := range rows {
		if len(groups) == 0 || groups[len(groups)-1].Group != row.Grp {
			groups = append(groups, SampleGroup{Group: row.Grp})
		}
		last := &groups[len(groups)-1]
		last.Values = append(last.Values, row.Value)
	}
	return groups, nil
}

// PercentileForGroups sorts each group and extracts its nearest-rank
// percentile plus companion stats. Input groups must be non-empty, which
// AggregateSamples guarantees.
func PercentileForGroups(groups []SampleGroup, p float64) map[string]GroupPercentile {
	result := make(map[string]GroupPercentile, len(groups))
	for _, g := range groups {
		sorted := SortedCopy(g.Values)
		result[g.Group] = GroupPercentile{
			Value: PercentileByRank(sorted, p),
			Stats: ComputeSampleStats(sorted),
		}
	}
	return result
}

// GroupPercentile is the percentile value and companion stats of one group.
type GroupPercentile struct {
	Value float64     `json:"value"`
	Stats SampleStats `json:"stats"`
}
