// Package useragent parses User-Agent strings against an embedded YAML
// ruleset. Rules use PCRE patterns, compiled lazily and cached.
package useragent

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Device types reported by Parse.
const (
	DeviceDesktop  = "desktop"
	DeviceMobile   = "mobile"
	DeviceTablet   = "tablet"
	DeviceConsole  = "console"
	DeviceSmartTV  = "smarttv"
	DeviceWearable = "wearable"
	DeviceEmbedded = "embedded"
)

// UserAgent holds the parsed client attributes of a User-Agent string.
type UserAgent struct {
	UserAgent string
	Browser   string
	Version   string
	OS        string
	Device    string // one of the Device* constants
	Model     string
	Arch      string
	Bot       bool
}

//go:embed rules/browsers.yml
//go:embed rules/oss.yml
//go:embed rules/devices.yml
//go:embed rules/bots.yml
var ruleFiles embed.FS

// BrowserEntry matches a browser family and extracts its version.
type BrowserEntry struct {
	Regex   string `yaml:"regex"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// OSEntry matches an operating system family.
type OSEntry struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
	Arch  string `yaml:"arch"`
}

// DeviceEntry matches a device class, optionally extracting a model.
type DeviceEntry struct {
	Regex  string `yaml:"regex"`
	Device string `yaml:"device"`
	Model  string `yaml:"model"`
}

// BotEntry matches crawler and automation user agents.
type BotEntry struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *regexCache {
	return &regexCache{compiled: make(map[string]*pcre.Regexp)}
}

func (rc *regexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

var (
	parser *ruleParser
	once   sync.Once
)

type ruleParser struct {
	browsers []BrowserEntry
	oss      []OSEntry
	devices  []DeviceEntry
	bots     []BotEntry
	cache    *regexCache
}

func getParser() *ruleParser {
	once.Do(func() {
		parser = &ruleParser{cache: newRegexCache()}

		if data, err := ruleFiles.ReadFile("rules/browsers.yml"); err == nil {
			if err := yaml.Unmarshal(data, &parser.browsers); err != nil {
				fmt.Printf("Error parsing browsers.yml: %v\n", err)
			}
		}
		if data, err := ruleFiles.ReadFile("rules/oss.yml"); err == nil {
			if err := yaml.Unmarshal(data, &parser.oss); err != nil {
				fmt.Printf("Error parsing oss.yml: %v\n", err)
			}
		}
		if data, err := ruleFiles.ReadFile("rules/devices.yml"); err == nil {
			if err := yaml.Unmarshal(data, &parser.devices); err != nil {
				fmt.Printf("Error parsing devices.yml: %v\n", err)
			}
		}
		if data, err := ruleFiles.ReadFile("rules/bots.yml"); err == nil {
			if err := yaml.Unmarshal(data, &parser.bots); err != nil {
				fmt.Printf("Error parsing bots.yml: %v\n", err)
			}
		}
	})
	return parser
}

// expandPlaceholders substitutes $1, $2, ... with capture groups.
func expandPlaceholders(template string, matches []string) string {
	result := template
	for i, match := range matches[1:] {
		placeholder := fmt.Sprintf("$%d", i+1)
		result = strings.ReplaceAll(result, placeholder, match)
	}
	return strings.TrimSpace(result)
}

func (p *ruleParser) parseBot(userAgent string) *BotEntry {
	for i := range p.bots {
		if regex, err := p.cache.get(p.bots[i].Regex); err == nil {
			if regex.MatchString(userAgent) {
				return &p.bots[i]
			}
		}
	}
	return nil
}

func (p *ruleParser) parseBrowser(userAgent string) (string, string) {
	for _, entry := range p.browsers {
		if regex, err := p.cache.get(entry.Regex); err == nil {
			if matches := regex.FindStringSubmatch(userAgent); len(matches) > 0 {
				version := ""
				if entry.Version != "" && len(matches) > 1 {
					version = expandPlaceholders(entry.Version, matches)
				}
				return entry.Name, version
			}
		}
	}
	return "", ""
}

func (p *ruleParser) parseOS(userAgent string) (string, string) {
	for _, entry := range p.oss {
		if regex, err := p.cache.get(entry.Regex); err == nil {
			if regex.MatchString(userAgent) {
				return entry.Name, entry.Arch
			}
		}
	}
	return "", ""
}

func (p *ruleParser) parseDevice(userAgent string) (string, string) {
	for _, entry := range p.devices {
		if regex, err := p.cache.get(entry.Regex); err == nil {
			if matches := regex.FindStringSubmatch(userAgent); len(matches) > 0 {
				model := ""
				if entry.Model != "" {
					model = expandPlaceholders(entry.Model, matches)
				}
				return entry.Device, model
			}
		}
	}
	return DeviceDesktop, ""
}

// archPatterns maps substrings in the UA to a CPU architecture. Checked
// after the ruleset since most UA strings carry the arch inline.
var archPatterns = []struct {
	needle string
	arch   string
}{
	{"aarch64", "arm64"},
	{"arm64", "arm64"},
	{"x86_64", "amd64"},
	{"x64", "amd64"},
	{"win64", "amd64"},
	{"wow64", "amd64"},
	{"amd64", "amd64"},
	{"i686", "386"},
	{"i386", "386"},
	{"armv7", "arm"},
	{"armv6", "arm"},
	{"arm", "arm"},
}

func parseArch(userAgent string) string {
	lower := strings.ToLower(userAgent)
	for _, p := range archPatterns {
		if strings.Contains(lower, p.needle) {
			return p.arch
		}
	}
	return ""
}

// Parse extracts browser, OS, device and architecture details from a
// User-Agent string. Unmatched fields come back empty, never "unknown"
// placeholders - callers decide their own fallbacks.
func Parse(userAgent string) UserAgent {
	p := getParser()

	if bot := p.parseBot(userAgent); bot != nil {
		return UserAgent{
			UserAgent: userAgent,
			Browser:   bot.Name,
			Bot:       true,
		}
	}

	browser, version := p.parseBrowser(userAgent)
	os, osArch := p.parseOS(userAgent)
	device, model := p.parseDevice(userAgent)

	arch := parseArch(userAgent)
	if arch == "" {
		arch = osArch
	}

	return UserAgent{
		UserAgent: userAgent,
		Browser:   browser,
		Version:   version,
		OS:        os,
		Device:    device,
		Model:     model,
		Arch:      arch,
	}
}
