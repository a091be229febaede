package events

import "time"

// Kind discriminates the three collected event shapes.
type Kind string

const (
	KindView  Kind = "view"
	KindVital Kind = "vital"
	KindError Kind = "error"
)

// ParseKind maps a request route to an event kind. ok is false for
// unknown routes.
func ParseKind(route string) (Kind, bool) {
	switch Kind(route) {
	case KindView, KindVital, KindError:
		return Kind(route), true
	}
	return "", false
}

// Error types reported by the browser script.
const (
	ErrorTypeRuntime  = "runtime"
	ErrorTypePromise  = "promise"
	ErrorTypeResource = "resource"
)

// ValidErrorType reports whether t is one of the known error types.
func ValidErrorType(t string) bool {
	return t == ErrorTypeRuntime || t == ErrorTypePromise || t == ErrorTypeResource
}

// View is one page view. Events are append-only; replaying the same
// payload creates a new row each time.
type View struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	SiteID      uint      `gorm:"index:idx_views_site_timestamp;not null"`
	Fingerprint string    `gorm:"index;size:32;not null"`
	Pathname    string    `gorm:"index;not null"`
	Title       string
	Referrer    string    `gorm:"index"` // external host+path, empty for direct or same-site
	Timestamp   time.Time `gorm:"index:idx_views_site_timestamp;not null"`
	CreatedAt   time.Time
}

// Vital is one web-vitals report. A measurement the browser did not
// observe is NULL, never zero.
type Vital struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	SiteID      uint      `gorm:"index:idx_vitals_site_timestamp;not null"`
	Fingerprint string    `gorm:"index;size:32;not null"`
	Pathname    string    `gorm:"index;not null"`
	CLS         *float64
	FCP         *float64
	FID         *float64
	LCP         *float64
	TTFB        *float64
	Timestamp   time.Time `gorm:"index:idx_vitals_site_timestamp;not null"`
	CreatedAt   time.Time
}

// ErrorEvent is one captured browser error. Message is canonicalized
// (URL messages reduced to origin+path); RawMessage keeps the original
// when canonicalization changed it.
type ErrorEvent struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	SiteID      uint      `gorm:"index:idx_errors_site_timestamp;not null"`
	Fingerprint string    `gorm:"index;size:32;not null"`
	Pathname    string    `gorm:"index;not null"`
	Type        string    `gorm:"column:error_type;index;not null"` // runtime, promise or resource
	Name        string    `gorm:"index;not null"`
	Message     string    `gorm:"not null"`
	RawMessage  string
	Stack       string    `gorm:"type:text"`
	Resolved    bool      `gorm:"default:false"`
	Timestamp   time.Time `gorm:"index:idx_errors_site_timestamp;not null"`
	CreatedAt   time.Time
}
