// Package classifier derives device, browser and automation hints from a
// User-Agent header. Matching is case-insensitive substring search.
package classifier

import (
	"strings"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"

	BrowserChrome  = "chrome"
	BrowserFirefox = "firefox"
	BrowserSafari  = "safari"
	BrowserEdge    = "edge"
	BrowserOpera   = "opera"
	BrowserOther   = "other"
)

var (
	botPatterns = []string{
		"bot", "crawler", "spider", "scraper",
		"googlebot", "bingbot", "facebookexternalhit",
		"twitterbot", "linkedinbot", "whatsapp",
		"telegram", "curl", "wget", "python-requests",
	}

	mobilePatterns = []string{
		"mobile", "android", "iphone", "ipod",
		"blackberry", "windows phone", "opera mini",
	}

	tabletPatterns = []string{"tablet", "ipad", "kindle", "silk"}
)

var deviceNames = map[string]string{
	DeviceDesktop: "حاسوب مكتبي",
	DeviceMobile:  "هاتف محمول",
	DeviceTablet:  "جهاز لوحي",
	DeviceUnknown: "غير محدد",
}

var browserNames = map[string]string{
	BrowserChrome:  "جوجل كروم",
	BrowserFirefox: "فايرفوكس",
	BrowserSafari:  "سفاري",
	BrowserEdge:    "مايكروسوفت إيدج",
	BrowserOpera:   "أوبرا",
	BrowserOther:   "أخرى",
}

// Result is the classification of a single User-Agent
type Result struct {
	Device    string
	Browser   string
	Automated bool
}

// Classify runs every detector over userAgent
func Classify(userAgent string) Result {
	return Result{
		Device:    Device(userAgent),
		Browser:   Browser(userAgent),
		Automated: IsAutomated(userAgent),
	}
}

// IsAutomated reports whether userAgent looks like a bot or scripted client.
// An empty User-Agent is not treated as automated.
func IsAutomated(userAgent string) bool {
	return containsAny(strings.ToLower(userAgent), botPatterns)
}

// Device classifies userAgent as mobile, tablet or desktop. Phones are
// checked first, so an Android tablet reporting "mobile" counts as mobile.
func Device(userAgent string) string {
	if userAgent == "" {
		return DeviceUnknown
	}

	ua := strings.ToLower(userAgent)
	switch {
	case containsAny(ua, mobilePatterns):
		return DeviceMobile
	case containsAny(ua, tabletPatterns):
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}

// Browser picks the browser family. Order matters: Edge and Chrome both
// carry "safari" in their User-Agent.
func Browser(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case ua == "":
		return BrowserOther
	case strings.Contains(ua, "edg"):
		return BrowserEdge
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "chromium"):
		return BrowserChrome
	case strings.Contains(ua, "firefox"):
		return BrowserFirefox
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		return BrowserSafari
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		return BrowserOpera
	default:
		return BrowserOther
	}
}

// DeviceName is the Arabic display label for a device class
func DeviceName(device string) string {
	if name, ok := deviceNames[device]; ok {
		return name
	}
	return deviceNames[DeviceUnknown]
}

// BrowserName is the Arabic display label for a browser family
func BrowserName(browser string) string {
	if name, ok := browserNames[browser]; ok {
		return name
	}
	return browserNames[BrowserOther]
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
