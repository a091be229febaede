package http

import (
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"navlens/internal/analytics"
	"navlens/internal/sessions"
	"navlens/internal/sites"
)

var errInvalidSiteID = errors.New("invalid site id")

// resolveMetricsRequest pulls the site and timeframe every metrics
// endpoint shares out of the request.
func resolveMetricsRequest(ctx *cartridge.Context) (*sites.Site, analytics.Timeframe, error) {
	publicID := ctx.Params("id")
	if !sites.ValidatePublicID(publicID) {
		return nil, analytics.Timeframe{}, errInvalidSiteID
	}

	db := ctx.DBManager.GetConnection()
	site, err := sites.GetSiteByPublicID(db, publicID)
	if err != nil {
		return nil, analytics.Timeframe{}, err
	}

	tf := analytics.ParseTimeframe(ctx.Query("from"), ctx.Query("to"))
	return site, tf, nil
}

func metricsError(ctx *cartridge.Context, err error) error {
	var notFound *sites.SiteNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, errInvalidSiteID) {
		return ctx.Status(http.StatusNotFound).SendString("site not found")
	}
	ctx.Logger.Error("Metrics query failed", slog.Any("error", err))
	return ctx.SendStatus(http.StatusInternalServerError)
}

// MetricsPagesAction lists pathnames ranked by views with distinct
// session counts.
func MetricsPagesAction(ctx *cartridge.Context) error {
	site, tf, err := resolveMetricsRequest(ctx)
	if err != nil {
		return metricsError(ctx, err)
	}

	db := ctx.DBManager.GetConnection()
	pages, err := analytics.PageRanges(db, site.ID, tf, ctx.QueryInt("limit"))
	if err != nil {
		return metricsError(ctx, err)
	}
	if pages == nil {
		pages = []analytics.PageTraffic{}
	}
	return ctx.JSON(pages)
}

// queryPercentile reads the optional percentile parameter, falling back
// to the default rank when it is absent or not a selectable one.
func queryPercentile(ctx *cartridge.Context) float64 {
	p := float64(ctx.QueryInt("percentile", analytics.DefaultPercentile))
	if !analytics.ValidPercentile(p) {
		return analytics.DefaultPercentile
	}
	return p
}

// MetricsVitalsAction reports per-pathname web vitals percentiles with
// the composite score.
func MetricsVitalsAction(ctx *cartridge.Context) error {
	site, tf, err := resolveMetricsRequest(ctx)
	if err != nil {
		return metricsError(ctx, err)
	}

	db := ctx.DBManager.GetConnection()
	ranges, err := analytics.VitalsRanges(db, site.ID, tf, queryPercentile(ctx))
	if err != nil {
		return metricsError(ctx, err)
	}
	if ranges == nil {
		ranges = []analytics.PageVitals{}
	}
	return ctx.JSON(ranges)
}

// MetricsVitalsSummaryAction reports the site-wide vitals summary at the
// requested percentile.
func MetricsVitalsSummaryAction(ctx *cartridge.Context) error {
	site, tf, err := resolveMetricsRequest(ctx)
	if err != nil {
		return metricsError(ctx, err)
	}

	db := ctx.DBManager.GetConnection()
	summary, err := analytics.SiteVitals(db, site.ID, tf, queryPercentile(ctx))
	if err != nil {
		return metricsError(ctx, err)
	}
	return ctx.JSON(summary)
}

// MetricsErrorsAction lists unresolved errors grouped by identity.
func MetricsErrorsAction(ctx *cartridge.Context) error {
	site, tf, err := resolveMetricsRequest(ctx)
	if err != nil {
		return metricsError(ctx, err)
	}

	db := ctx.DBManager.GetConnection()
	groups, err := analytics.ErrorGroups(db, site.ID, tf, ctx.QueryInt("limit"))
	if err != nil {
		return metricsError(ctx, err)
	}
	if groups == nil {
		groups = []analytics.ErrorGroup{}
	}
	return ctx.JSON(groups)
}

// MetricsTrendAction reports daily view/session buckets for charts.
func MetricsTrendAction(ctx *cartridge.Context) error {
	site, tf, err := resolveMetricsRequest(ctx)
	if err != nil {
		return metricsError(ctx, err)
	}

	db := ctx.DBManager.GetConnection()
	points, err := analytics.Trend(db, site.ID, tf)
	if err != nil {
		return metricsError(ctx, err)
	}
	return ctx.JSON(points)
}

// MetricsLocationAction reports traffic per country with display names
// resolved from the stored ISO codes.
func MetricsLocationAction(ctx *cartridge.Context) error {
	site, tf, err := resolveMetricsRequest(ctx)
	if err != nil {
		return metricsError(ctx, err)
	}

	db := ctx.DBManager.GetConnection()
	stats, err := analytics.Locations(db, site.ID, tf)
	if err != nil {
		return metricsError(ctx, err)
	}
	return ctx.JSON(resolveCountryNames(stats))
}

func resolveCountryNames(stats []analytics.LocationStat) []analytics.LocationStat {
	caser := cases.Upper(language.AmericanEnglish)
	countries := gountries.New()

	result := make([]analytics.LocationStat, len(stats))
	for i, stat := range stats {
		if stat.Country == "" {
			stat.Name = "Unknown"
		} else if country, err := countries.FindCountryByAlpha(strings.ToUpper(stat.Country)); err == nil {
			stat.Name = country.Name.Common
		} else {
			stat.Name = caser.String(stat.Country)
		}
		result[i] = stat
	}
	return result
}

// MetricsSessionAction fetches one session by fingerprint.
func MetricsSessionAction(ctx *cartridge.Context) error {
	site, _, err := resolveMetricsRequest(ctx)
	if err != nil {
		return metricsError(ctx, err)
	}

	fp := ctx.Params("fp")
	if len(fp) != 32 {
		return ctx.Status(http.StatusBadRequest).SendString("invalid fingerprint")
	}

	db := ctx.DBManager.GetConnection()
	session, err := sessions.GetByFingerprint(db, site.ID, fp)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.JSON(map[string]any{})
		}
		return metricsError(ctx, err)
	}
	return ctx.JSON(session)
}
