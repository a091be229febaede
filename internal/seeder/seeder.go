package seeder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"navlens/internal/events"
	"navlens/internal/sessions"
	"navlens/internal/sites"
	"navlens/internal/visitors"
)

// Seeder populates a site with realistic demo traffic: sessions with
// parsed client profiles, page views with referrers, web-vitals reports
// and a sprinkling of browser errors.
type Seeder struct {
	DBManager    cartridge.DBManager
	Logger       *slog.Logger
	SessionCount int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, sessionCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionCount <= 0 {
		sessionCount = 200
	}
	return &Seeder{
		DBManager:    dbManager,
		Logger:       logger,
		SessionCount: sessionCount,
	}
}

// SeedDemoSite ensures a demo site exists and fills it with traffic.
func (s *Seeder) SeedDemoSite(ctx context.Context) error {
	db := s.DBManager.GetConnection()

	site, err := sites.GetSiteByDomain(db, "demo.example.com")
	if err != nil {
		var notFound *sites.SiteNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to look up demo site: %w", err)
		}
		site = &sites.Site{Name: "Demo", Domain: "demo.example.com"}
		if err := sites.CreateSite(db, site); err != nil {
			return fmt.Errorf("failed to create demo site: %w", err)
		}
		s.Logger.Info("Created demo site", slog.String("publicId", site.PublicID))
	}

	return s.SeedDomain(ctx, site.Domain)
}

// SeedDomain seeds an existing domain with demo traffic.
func (s *Seeder) SeedDomain(ctx context.Context, domain string) error {
	start := time.Now()
	s.Logger.Info("Seeding domain...",
		slog.String("domain", domain),
		slog.Int("sessionCount", s.SessionCount))

	db := s.DBManager.GetConnection()
	site, err := sites.GetSiteByDomain(db, domain)
	if err != nil {
		return fmt.Errorf("failed to find site: %w", err)
	}

	for i := 0; i < s.SessionCount; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.seedSession(db, site); err != nil {
			return fmt.Errorf("failed to seed session %d: %w", i, err)
		}
	}

	s.Logger.Info("Seeding completed",
		slog.String("domain", domain),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

var seedUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
}

var seedPaths = []string{"/", "/posts/a", "/posts/b", "/pricing", "/about", "/docs/getting-started"}

var seedReferrers = []string{"", "", "https://news.ycombinator.com/item", "https://www.google.com/", "https://t.co/abc123"}

var seedScreens = []string{"1920x1080", "2560x1440", "390x844", "412x915", "1440x900"}

var seedLanguages = []string{"en-us", "en-gb", "de-de", "zh-cn", "fr-fr"}

func (s *Seeder) seedSession(db *gorm.DB, site *sites.Site) error {
	meta := visitors.BuildSessionMeta(site.PublicID, visitors.Signals{
		UserAgent:  seedUserAgents[rand.IntN(len(seedUserAgents))],
		IPAddress:  fmt.Sprintf("93.184.%d.%d", rand.IntN(240)+1, rand.IntN(254)+1),
		Screen:     seedScreens[rand.IntN(len(seedScreens))],
		Language:   seedLanguages[rand.IntN(len(seedLanguages))],
		CanvasHash: fmt.Sprintf("%08x", rand.Uint32()),
	})

	if err := sessions.Upsert(db, s.Logger, site.ID, meta); err != nil {
		return err
	}

	sessionStart := time.Now().UTC().AddDate(0, 0, -rand.IntN(30))
	pageCount := rand.IntN(4) + 1

	for p := 0; p < pageCount; p++ {
		path := seedPaths[rand.IntN(len(seedPaths))]
		timestamp := sessionStart.Add(time.Duration(p) * time.Minute)

		if err := s.insertAt(db, timestamp, &events.View{
			SiteID:      site.ID,
			Fingerprint: meta.Fingerprint,
			Pathname:    path,
			Title:       "Demo page",
			Referrer:    pickReferrer(p),
		}); err != nil {
			return err
		}

		if err := s.insertAt(db, timestamp, &events.Vital{
			SiteID:      site.ID,
			Fingerprint: meta.Fingerprint,
			Pathname:    path,
			CLS:         randomVital(0.02, 0.4),
			FCP:         randomVital(600, 3600),
			FID:         randomVital(10, 420),
			LCP:         randomVital(900, 5200),
			TTFB:        randomVital(80, 1500),
		}); err != nil {
			return err
		}

		// Roughly one session in twelve hits an error
		if rand.IntN(12) == 0 {
			if err := s.insertAt(db, timestamp, &events.ErrorEvent{
				SiteID:      site.ID,
				Fingerprint: meta.Fingerprint,
				Pathname:    path,
				Type:        events.ErrorTypeRuntime,
				Name:        "TypeError",
				Message:     "Cannot read properties of undefined (reading 'length')",
				Stack:       "TypeError: Cannot read properties of undefined\n    at render (app.js:42:13)",
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) insertAt(db *gorm.DB, timestamp time.Time, row interface{}) error {
	switch r := row.(type) {
	case *events.View:
		r.Timestamp = timestamp
		r.CreatedAt = timestamp
	case *events.Vital:
		r.Timestamp = timestamp
		r.CreatedAt = timestamp
	case *events.ErrorEvent:
		r.Timestamp = timestamp
		r.CreatedAt = timestamp
	}
	return sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
}

// pickReferrer only attaches a referrer to entrance views.
func pickReferrer(pageIndex int) string {
	if pageIndex > 0 {
		return ""
	}
	raw := seedReferrers[rand.IntN(len(seedReferrers))]
	if raw == "" {
		return ""
	}
	return events.NormalizeReferrer(raw, "demo.example.com")
}

// randomVital leaves some measurements unobserved, as real beacons do.
func randomVital(min, max float64) *float64 {
	if rand.IntN(10) == 0 {
		return nil
	}
	value := min + rand.Float64()*(max-min)
	return &value
}
