// Package sessions persists the anonymous visitor sessions resolved by
// the collector.
package sessions

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"navlens/internal/pkg/geoip"
	"navlens/internal/visitors"
)

// Session represents one anonymous visitor context, addressed uniquely by
// its fingerprint. Repeated resolution of the same fingerprint upserts
// the row; it is never duplicated.
type Session struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Fingerprint  string    `gorm:"uniqueIndex;size:32;not null" json:"fingerprint"`
	SiteID       uint      `gorm:"index;not null" json:"site_id"`
	IP           string    `json:"ip,omitempty"`
	Browser      string    `json:"browser,omitempty"`
	Version      string    `json:"version,omitempty"`
	System       string    `json:"system,omitempty"`
	Platform     string    `json:"platform,omitempty"` // desktop, mobile, tablet, console, smarttv, wearable, embedded
	Model        string    `json:"model,omitempty"`
	Architecture string    `json:"architecture,omitempty"`
	Screen       string    `json:"screen,omitempty"`
	Language     string    `json:"language,omitempty"`
	Location     string    `json:"location,omitempty"` // ISO country code
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Upsert writes a session row for the resolved client meta, creating it
// on first contact and refreshing it afterwards. Existing values are only
// overwritten when the new meta actually supplies them, so a later
// request with fewer signals never erases what an earlier one stored.
// The geolocation lookup is best-effort: on failure the field is simply
// left alone.
func Upsert(db *gorm.DB, logger *slog.Logger, siteID uint, meta visitors.SessionMeta) error {
	if meta.Fingerprint == "" {
		return errors.New("session fingerprint cannot be empty")
	}

	location := geoip.CountryCode(meta.IPAddress)
	now := time.Now().UTC()

	// COALESCE(NULLIF(excluded.x, ''), sessions.x) keeps the stored value
	// whenever the incoming one is empty.
	query := `
		INSERT INTO sessions (fingerprint, site_id, ip, browser, version, system, platform, model, architecture, screen, language, location, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET
			site_id = excluded.site_id,
			ip = COALESCE(NULLIF(excluded.ip, ''), sessions.ip),
			browser = COALESCE(NULLIF(excluded.browser, ''), sessions.browser),
			version = COALESCE(NULLIF(excluded.version, ''), sessions.version),
			system = COALESCE(NULLIF(excluded.system, ''), sessions.system),
			platform = COALESCE(NULLIF(excluded.platform, ''), sessions.platform),
			model = COALESCE(NULLIF(excluded.model, ''), sessions.model),
			architecture = COALESCE(NULLIF(excluded.architecture, ''), sessions.architecture),
			screen = COALESCE(NULLIF(excluded.screen, ''), sessions.screen),
			language = COALESCE(NULLIF(excluded.language, ''), sessions.language),
			location = COALESCE(NULLIF(excluded.location, ''), sessions.location),
			updated_at = excluded.updated_at
	`
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Exec(query,
			meta.Fingerprint, siteID, meta.IPAddress, meta.Browser, meta.Version,
			meta.System, meta.Platform, meta.Model, meta.Arch, meta.Screen,
			meta.Language, location, now, now).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// GetByFingerprint retrieves a session row for the dashboard session
// detail view.
func GetByFingerprint(db *gorm.DB, siteID uint, fingerprint string) (*Session, error) {
	var session Session
	err := db.Where("site_id = ? AND fingerprint = ?", siteID, fingerprint).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CountForSite returns the number of distinct sessions recorded for a site.
func CountForSite(db *gorm.DB, siteID uint) (int64, error) {
	var count int64
	err := db.Model(&Session{}).Where("site_id = ?", siteID).Count(&count).Error
	return count, err
}
