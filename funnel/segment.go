package funnel

import (
	"net/url"
	"strings"

	"funnelscope/api/models"
)

var (
	searchEngines = []string{"google.", "bing.", "duckduckgo.", "yahoo.", "ecosia.", "baidu."}
	socialSites   = []string{"facebook.", "linkedin.", "twitter.", "t.co", "x.com", "instagram.", "reddit.", "youtube."}
)

// deviceTypeFor classifies the device from an explicit deviceType hint or the user agent.
func deviceTypeFor(event models.FunnelEvent) string {
	switch hint := strings.ToLower(event.MetadataString("deviceType")); hint {
	case models.DeviceMobile, models.DeviceTablet, models.DeviceDesktop:
		return hint
	}

	ua := strings.ToLower(event.MetadataString("userAgent"))
	switch {
	case ua == "":
		return models.DeviceUnknown
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") ||
		(strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")):
		return models.DeviceTablet
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return models.DeviceMobile
	default:
		return models.DeviceDesktop
	}
}

// trafficSourceFor prefers utm_source, then classifies the referrer host.
func trafficSourceFor(event models.FunnelEvent) string {
	if src := strings.TrimSpace(event.MetadataString("utm_source")); src != "" {
		return strings.ToLower(src)
	}

	ref := strings.TrimSpace(event.MetadataString("referrer"))
	if ref == "" {
		return "direct"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "referral"
	}
	host := strings.ToLower(u.Host)
	for _, s := range searchEngines {
		if strings.Contains(host, s) {
			return "organic"
		}
	}
	for _, s := range socialSites {
		if strings.Contains(host, s) {
			return "social"
		}
	}
	return "referral"
}
