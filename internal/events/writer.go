package events

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Payload is the tagged union over the three event shapes. Exactly one
// concrete payload reaches the writer per ingestion request.
type Payload interface {
	Kind() Kind
}

// ViewPayload carries the view-specific fields, already normalized.
type ViewPayload struct {
	Title    string
	Referrer string
}

func (ViewPayload) Kind() Kind { return KindView }

// VitalPayload carries up to five optional measurements.
type VitalPayload struct {
	CLS  *float64
	FCP  *float64
	FID  *float64
	LCP  *float64
	TTFB *float64
}

func (VitalPayload) Kind() Kind { return KindVital }

// ErrorPayload carries a captured browser error.
type ErrorPayload struct {
	Type       string
	Name       string
	Message    string
	RawMessage string
	Stack      string
}

func (ErrorPayload) Kind() Kind { return KindError }

// Insert appends one event row for a resolved session context. The match
// over payload kinds is exhaustive; an unknown payload type is a
// programming error.
func Insert(db *gorm.DB, logger *slog.Logger, siteID uint, fingerprint, pathname string, payload Payload) error {
	now := time.Now().UTC()

	var write func(tx *gorm.DB) error
	switch p := payload.(type) {
	case ViewPayload:
		write = func(tx *gorm.DB) error {
			return tx.Create(&View{
				SiteID:      siteID,
				Fingerprint: fingerprint,
				Pathname:    pathname,
				Title:       p.Title,
				Referrer:    p.Referrer,
				Timestamp:   now,
				CreatedAt:   now,
			}).Error
		}
	case VitalPayload:
		write = func(tx *gorm.DB) error {
			return tx.Create(&Vital{
				SiteID:      siteID,
				Fingerprint: fingerprint,
				Pathname:    pathname,
				CLS:         p.CLS,
				FCP:         p.FCP,
				FID:         p.FID,
				LCP:         p.LCP,
				TTFB:        p.TTFB,
				Timestamp:   now,
				CreatedAt:   now,
			}).Error
		}
	case ErrorPayload:
		write = func(tx *gorm.DB) error {
			name := p.Name
			if name == "" {
				name = "Error"
			}
			return tx.Create(&ErrorEvent{
				SiteID:      siteID,
				Fingerprint: fingerprint,
				Pathname:    pathname,
				Type:        p.Type,
				Name:        name,
				Message:     p.Message,
				RawMessage:  p.RawMessage,
				Stack:       p.Stack,
				Resolved:    false,
				Timestamp:   now,
				CreatedAt:   now,
			}).Error
		}
	default:
		return fmt.Errorf("unsupported event payload type %T", payload)
	}

	if err := sqlite.PerformWrite(logger, db, write); err != nil {
		logger.Error("Failed to store event",
			slog.String("kind", string(payload.Kind())),
			slog.Any("error", err))
		return fmt.Errorf("failed to store %s event: %w", payload.Kind(), err)
	}
	return nil
}
