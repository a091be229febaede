package visitors_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"navlens/internal/visitors"
)

const (
	testSiteID = "aaaabbbbccccddddeeeeffff"
	chromeUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func TestBuildFingerprint(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		a := visitors.BuildFingerprint(testSiteID, "93.184.216.34", chromeUA, "120.0.6099.71", "", "x86", "cafe0123")
		b := visitors.BuildFingerprint(testSiteID, "93.184.216.34", chromeUA, "120.0.6099.71", "", "x86", "cafe0123")
		assert.Equal(t, a, b)
	})

	t.Run("is a 32-char hex digest", func(t *testing.T) {
		fp := visitors.BuildFingerprint(testSiteID, "93.184.216.34", chromeUA, "", "", "", "")
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), fp)
	})

	t.Run("every input field discriminates", func(t *testing.T) {
		base := visitors.BuildFingerprint(testSiteID, "93.184.216.34", chromeUA, "120.0", "pixel 8", "arm64", "cafe0123")

		variants := []string{
			visitors.BuildFingerprint("000011112222333344445555", "93.184.216.34", chromeUA, "120.0", "pixel 8", "arm64", "cafe0123"),
			visitors.BuildFingerprint(testSiteID, "10.1.2.3", chromeUA, "120.0", "pixel 8", "arm64", "cafe0123"),
			visitors.BuildFingerprint(testSiteID, "93.184.216.34", "other-agent", "120.0", "pixel 8", "arm64", "cafe0123"),
			visitors.BuildFingerprint(testSiteID, "93.184.216.34", chromeUA, "121.0", "pixel 8", "arm64", "cafe0123"),
			visitors.BuildFingerprint(testSiteID, "93.184.216.34", chromeUA, "120.0", "pixel 9", "arm64", "cafe0123"),
			visitors.BuildFingerprint(testSiteID, "93.184.216.34", chromeUA, "120.0", "pixel 8", "x86", "cafe0123"),
			visitors.BuildFingerprint(testSiteID, "93.184.216.34", chromeUA, "120.0", "pixel 8", "arm64", "deadbeef"),
		}
		for i, variant := range variants {
			assert.NotEqual(t, base, variant, "variant %d collided with base", i)
		}
	})
}

func TestBuildSessionMeta(t *testing.T) {
	t.Run("parses client profile from the user agent", func(t *testing.T) {
		meta := visitors.BuildSessionMeta(testSiteID, visitors.Signals{
			UserAgent: chromeUA,
			IPAddress: "93.184.216.34",
			Screen:    "1920x1080",
			Language:  "EN-US",
		})

		assert.Equal(t, "Chrome", meta.Browser)
		assert.Equal(t, "Windows", meta.System)
		assert.Equal(t, "desktop", meta.Platform)
		assert.Equal(t, "1920x1080", meta.Screen)
		assert.Equal(t, "en-us", meta.Language)
		assert.False(t, meta.Bot)
		assert.Len(t, meta.Fingerprint, 32)
	})

	t.Run("signal overrides beat parsed values", func(t *testing.T) {
		meta := visitors.BuildSessionMeta(testSiteID, visitors.Signals{
			UserAgent:   chromeUA,
			IPAddress:   "93.184.216.34",
			FullVersion: "120.0.6099.71",
			DeviceModel: "Pixel 8",
			CPUArch:     "ARM64",
		})

		assert.Equal(t, "120.0.6099.71", meta.Version)
		assert.Equal(t, "pixel 8", meta.Model)
		assert.Equal(t, "arm64", meta.Arch)
	})

	t.Run("platform defaults to desktop", func(t *testing.T) {
		meta := visitors.BuildSessionMeta(testSiteID, visitors.Signals{
			UserAgent: "some unrecognized agent",
			IPAddress: "93.184.216.34",
		})
		assert.Equal(t, "desktop", meta.Platform)
	})

	t.Run("flags crawler agents", func(t *testing.T) {
		meta := visitors.BuildSessionMeta(testSiteID, visitors.Signals{
			UserAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			IPAddress: "93.184.216.34",
		})
		assert.True(t, meta.Bot)
	})
}
