// Package collector implements the ingestion pipeline behind the public
// collect endpoint: it resolves site and session context from either a
// replayed cache token or fresh client signals, routes the request to the
// matching event writer and, on first contact, issues the cache token the
// browser uses from then on.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/karloscodes/cartridge"

	"navlens/internal/config"
	"navlens/internal/events"
	"navlens/internal/pkg/async"
	"navlens/internal/sessions"
	"navlens/internal/sites"
	"navlens/internal/tokens"
	"navlens/internal/visitors"
)

// RequestError marks a client-side validation failure. Handlers map it to
// a 400 with the reason as a plain-text body.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string {
	return e.Reason
}

// ErrBotRejected is returned for requests identified as automated
// traffic. Handlers map it to a 403.
var ErrBotRejected = errors.New("bot traffic rejected")

// State describes how the session context was resolved.
type State string

const (
	// StateFresh means no valid cache token was supplied: the session was
	// derived from client signals and a new token was issued.
	StateFresh State = "fresh"
	// StateCached means a valid cache token resolved the session without
	// touching the database.
	StateCached State = "cached"
)

// Input is one decoded ingestion request. All payload fields arrive as
// raw strings from the query string or form body.
type Input struct {
	SiteID     string // public site id, required without a cache token
	CacheToken string // signed session-cache token, optional
	Route      string // view, vital or error
	Origin     string // Origin header of the request
	Href       string // page location the event happened on

	// view fields
	Title    string
	Referrer string

	// vital fields
	CLS  string
	FCP  string
	FID  string
	LCP  string
	TTFB string

	// error fields
	ErrorType    string
	ErrorName    string
	ErrorMessage string
	ErrorStack   string

	Signals visitors.Signals
}

// Outcome is the result of a processed ingestion request. Token is only
// set in the fresh state.
type Outcome struct {
	State State
	Token string
}

// Collect processes one ingestion request end to end. In the fresh state
// the session upsert and the event write run concurrently and both
// complete before Collect returns; there is no shared transaction between
// them and no compensation if one fails after the other succeeded.
func Collect(ctx context.Context, dbManager cartridge.DBManager, logger *slog.Logger, input Input) (*Outcome, error) {
	kind, ok := events.ParseKind(input.Route)
	if !ok {
		logger.Error("Invalid request route", slog.String("route", input.Route))
		return nil, &RequestError{Reason: "invalid request route"}
	}

	originHost, err := parseOriginHost(input.Origin)
	if err != nil {
		logger.Error("Invalid request origin", slog.String("origin", input.Origin))
		return nil, &RequestError{Reason: "invalid request origin"}
	}

	if input.Href == "" {
		return nil, &RequestError{Reason: "invalid request href"}
	}
	hrefPath, err := parseHrefPath(input.Href)
	if err != nil {
		logger.Error("Invalid request href", slog.String("href", input.Href))
		return nil, &RequestError{Reason: "invalid request href"}
	}

	db := dbManager.GetConnection()

	// Resolve site and session context. A valid cache token is trusted
	// outright; otherwise the site is looked up and the fingerprint
	// derived from the client signals.
	cache := readCache(input.CacheToken)

	var (
		siteRef  uint
		publicID string
		base     string
		fp       string
		meta     visitors.SessionMeta
	)
	if cache != nil {
		siteRef = cache.SiteRef
		publicID = cache.SiteID
		base = cache.Base
		fp = cache.Fingerprint
	} else {
		if !sites.ValidatePublicID(input.SiteID) {
			logger.Error("Invalid site id", slog.String("id", input.SiteID))
			return nil, &RequestError{Reason: "invalid site id"}
		}
		site, err := sites.GetSiteByPublicID(db, input.SiteID)
		if err != nil {
			var notFound *sites.SiteNotFoundError
			if errors.As(err, &notFound) {
				logger.Error("Invalid site id", slog.String("id", input.SiteID))
				return nil, &RequestError{Reason: "invalid site id"}
			}
			return nil, fmt.Errorf("failed to resolve site: %w", err)
		}
		siteRef = site.ID
		publicID = site.PublicID
		base = site.BaseURL

		meta = visitors.BuildSessionMeta(publicID, input.Signals)
		if rejectBot(input.Signals.UserAgent, meta.Bot) {
			logger.Info("Rejected bot traffic", slog.String("userAgent", input.Signals.UserAgent))
			return nil, ErrBotRejected
		}
		fp = meta.Fingerprint
	}

	path := events.CleanPath(hrefPath, base)

	payload, err := buildPayload(kind, input, originHost)
	if err != nil {
		return nil, err
	}

	tasks := []async.Task{
		{
			Name: "event",
			Execute: func() (interface{}, error) {
				return nil, events.Insert(db, logger, siteRef, fp, path, payload)
			},
		},
	}
	if cache == nil {
		sessionMeta := meta
		tasks = append(tasks, async.Task{
			Name: "session",
			Execute: func() (interface{}, error) {
				return nil, sessions.Upsert(db, logger, siteRef, sessionMeta)
			},
		})
	}

	results := async.NewPool(len(tasks)).Execute(ctx, tasks)
	for _, task := range tasks {
		result, ok := results[task.Name]
		if !ok {
			return nil, fmt.Errorf("%s write did not complete: %w", task.Name, ctx.Err())
		}
		if result.Err != nil {
			return nil, fmt.Errorf("%s write failed: %w", task.Name, result.Err)
		}
	}

	if cache != nil {
		return &Outcome{State: StateCached}, nil
	}

	token, err := tokens.IssueSessionCache(tokens.SessionCache{
		SiteID:      publicID,
		SiteRef:     siteRef,
		Fingerprint: fp,
		Base:        base,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue cache token: %w", err)
	}
	return &Outcome{State: StateFresh, Token: token}, nil
}

// readCache verifies the replayed token. Any verification failure is a
// cache miss, never a hard error.
func readCache(token string) *tokens.SessionCache {
	if token == "" {
		return nil
	}
	return tokens.ReadSessionCache(token)
}

// rejectBot drops requests with no user agent at all, and in production
// anything the parser classifies as a crawler.
func rejectBot(userAgent string, parsedBot bool) bool {
	if userAgent == "" {
		return true
	}
	return parsedBot && config.GetConfig().Environment == config.Production
}

func parseOriginHost(origin string) (string, error) {
	if origin == "" {
		return "", errors.New("missing origin")
	}
	originURL, err := url.Parse(origin)
	if err != nil || originURL.Hostname() == "" {
		return "", errors.New("unparsable origin")
	}
	return originURL.Hostname(), nil
}

// parseHrefPath extracts the pathname from an href that may be a bare
// path, a path with query/fragment, or a full URL. Unparsable hrefs are
// rejected so nothing but a path ever reaches the views table.
func parseHrefPath(href string) (string, error) {
	hrefURL, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if hrefURL.Path == "" {
		return "/", nil
	}
	return hrefURL.Path, nil
}

func buildPayload(kind events.Kind, input Input, originHost string) (events.Payload, error) {
	switch kind {
	case events.KindView:
		return events.ViewPayload{
			Title:    input.Title,
			Referrer: events.NormalizeReferrer(input.Referrer, originHost),
		}, nil

	case events.KindVital:
		return events.VitalPayload{
			CLS:  events.ParseVitalValue(input.CLS),
			FCP:  events.ParseVitalValue(input.FCP),
			FID:  events.ParseVitalValue(input.FID),
			LCP:  events.ParseVitalValue(input.LCP),
			TTFB: events.ParseVitalValue(input.TTFB),
		}, nil

	case events.KindError:
		if !events.ValidErrorType(input.ErrorType) {
			return nil, &RequestError{Reason: "invalid error type"}
		}
		if input.ErrorMessage == "" {
			return nil, &RequestError{Reason: "invalid error message"}
		}
		message, rawMessage := events.CanonicalizeErrorMessage(input.ErrorMessage)
		return events.ErrorPayload{
			Type:       input.ErrorType,
			Name:       input.ErrorName,
			Message:    message,
			RawMessage: rawMessage,
			Stack:      input.ErrorStack,
		}, nil
	}
	return nil, &RequestError{Reason: "invalid request route"}
}
