package events

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// CleanPath strips the trailing slash and the site's configured base path
// from a collected pathname, always yielding a leading-slash path.
func CleanPath(path, base string) string {
	if base == "" {
		base = "/"
	}
	if len(path) > 2 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	path = strings.Replace(path, base, "", 1)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// NormalizeReferrer reduces a raw referrer to host+path with the query,
// fragment and trailing slash dropped. Unparsable referrers and same-site
// referrers (host matching siteHost) come back empty: they carry no
// acquisition signal.
func NormalizeReferrer(raw, siteHost string) string {
	if raw == "" {
		return ""
	}
	refURL, err := url.Parse(raw)
	if err != nil || refURL.Host == "" {
		return ""
	}
	if siteHost != "" && refURL.Hostname() == siteHost {
		return ""
	}
	ref := refURL.Host + refURL.Path
	ref = strings.TrimSuffix(ref, "/")
	return ref
}

// ParseVitalValue parses one optional numeric measurement. Absent or
// non-numeric values yield nil so they are stored as NULL, never as zero.
func ParseVitalValue(raw string) *float64 {
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	return &value
}

// CanonicalizeErrorMessage collapses messages that are bare URLs (typical
// for resource load errors) to origin+path, so the same asset failing
// under different query strings groups as one error. The second return
// value is the original message when it was rewritten, empty otherwise.
func CanonicalizeErrorMessage(message string) (string, string) {
	u, err := url.Parse(message)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return message, ""
	}
	canonical := u.Scheme + "://" + u.Host + u.Path
	if canonical == message {
		return message, ""
	}
	return canonical, message
}
