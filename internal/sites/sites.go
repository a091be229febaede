// Package sites manages the registry of tracked sites.
package sites

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// SiteNotFoundError represents an error when a site is not found
type SiteNotFoundError struct {
	PublicID string
}

func (e *SiteNotFoundError) Error() string {
	return fmt.Sprintf("site not found for id: %s", e.PublicID)
}

// NewSiteNotFoundError creates a new SiteNotFoundError
func NewSiteNotFoundError(publicID string) *SiteNotFoundError {
	return &SiteNotFoundError{PublicID: publicID}
}

// Site represents a tracked website
type Site struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID  string    `gorm:"uniqueIndex;size:24;not null" json:"public_id"` // opaque id embedded in the tracking snippet
	Name      string    `gorm:"not null" json:"name"`
	Domain    string    `gorm:"uniqueIndex;not null" json:"domain"` // e.g. "example.com"
	BaseURL   string    `gorm:"default:'/'" json:"base_url"`        // path prefix stripped from collected hrefs
	CreatedAt time.Time `json:"created_at"`
}

var publicIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

// ValidatePublicID reports whether a string is a well-formed site id.
func ValidatePublicID(id string) bool {
	return publicIDPattern.MatchString(id)
}

var domainPattern = regexp.MustCompile(`^[^.][.a-z0-9-]+[a-z]{2,}$`)

// ValidateDomain reports whether a string is a plausible site domain.
func ValidateDomain(domain string) bool {
	return domainPattern.MatchString(domain) || domain == "localhost"
}

// newPublicID generates a random 24-char hex site id.
func newPublicID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("sites: failed to generate public id: %v", err))
	}
	return hex.EncodeToString(buf)
}

// GetSiteByPublicID retrieves a site by its public tracking id. Returns a
// SiteNotFoundError when no site matches.
func GetSiteByPublicID(db *gorm.DB, publicID string) (*Site, error) {
	var site Site
	if err := db.Where("public_id = ?", publicID).First(&site).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewSiteNotFoundError(publicID)
		}
		return nil, fmt.Errorf("unexpected error querying site: %w", err)
	}
	return &site, nil
}

// GetSiteByDomain retrieves a site by exact domain match.
func GetSiteByDomain(db *gorm.DB, domain string) (*Site, error) {
	var site Site
	if err := db.Where("domain = ?", domain).First(&site).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewSiteNotFoundError(domain)
		}
		return nil, fmt.Errorf("unexpected error querying site: %w", err)
	}
	return &site, nil
}

// ListSites returns all registered sites ordered by creation time.
func ListSites(db *gorm.DB) ([]Site, error) {
	var all []Site
	if err := db.Order("created_at ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	return all, nil
}

// GetFirstSite retrieves the first site from the database.
func GetFirstSite(db *gorm.DB) (*Site, error) {
	var site Site
	if err := db.First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// CreateSite registers a new site, assigning its public tracking id.
func CreateSite(db *gorm.DB, site *Site) error {
	if site.Name == "" {
		return errors.New("site name cannot be empty")
	}
	if !ValidateDomain(site.Domain) {
		return fmt.Errorf("invalid site domain: %s", site.Domain)
	}
	if site.PublicID == "" {
		site.PublicID = newPublicID()
	}
	if site.BaseURL == "" {
		site.BaseURL = "/"
	}

	logger := slog.Default()
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(site).Error
	})
}
