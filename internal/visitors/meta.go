package visitors

import (
	"strings"

	"navlens/internal/pkg/useragent"
)

// Signals are the raw per-request client inputs used to resolve a
// session. The override fields come from the browser script and take
// precedence over what the User-Agent parse yields, because reduced UA
// strings generalize exactly those values.
type Signals struct {
	UserAgent   string
	IPAddress   string
	FullVersion string // uafv override
	DeviceModel string // device override
	CPUArch     string // arch override
	Screen      string
	Language    string
	CanvasHash  string // cvsfp
}

// SessionMeta is the resolved client context for one session, including
// its fingerprint.
type SessionMeta struct {
	Fingerprint string
	UserAgent   string
	IPAddress   string
	Browser     string
	Version     string
	System      string
	Platform    string
	Model       string
	Arch        string
	Screen      string
	Language    string
	Bot         bool
}

// BuildSessionMeta parses the client signals and derives the session
// fingerprint for a site.
func BuildSessionMeta(siteID string, sig Signals) SessionMeta {
	parsed := useragent.Parse(sig.UserAgent)

	meta := SessionMeta{
		UserAgent: sig.UserAgent,
		IPAddress: sig.IPAddress,
		Browser:   parsed.Browser,
		System:    parsed.OS,
		Platform:  parsed.Device,
		Screen:    sig.Screen,
		Language:  strings.ToLower(sig.Language),
		Bot:       parsed.Bot,
	}
	if meta.Platform == "" {
		meta.Platform = useragent.DeviceDesktop
	}

	meta.Version = strings.ToLower(firstNonEmpty(sig.FullVersion, parsed.Version))
	meta.Model = strings.ToLower(firstNonEmpty(sig.DeviceModel, parsed.Model))
	meta.Arch = strings.ToLower(firstNonEmpty(sig.CPUArch, parsed.Arch))

	meta.Fingerprint = BuildFingerprint(
		siteID,
		meta.IPAddress,
		meta.UserAgent,
		meta.Version,
		meta.Model,
		meta.Arch,
		strings.ToLower(sig.CanvasHash),
	)
	return meta
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
