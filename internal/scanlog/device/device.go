// Package device derives scan-analytics device fields from a User-Agent.
package device

import (
	"strings"

	"github.com/mssola/useragent"

	"provenant/internal/scanlog/models"
)

const unknown = "Unknown"

// Parse extracts browser, OS and mobile flag. Empty input yields Unknown fields.
func Parse(userAgent string) models.Device {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return models.Device{Browser: unknown, OS: unknown}
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	if ua.Bot() {
		browser = "Bot"
	}
	if browser == "" {
		browser = unknown
	}

	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = unknown
	}

	return models.Device{
		Browser: browser,
		OS:      os,
		Mobile:  ua.Mobile(),
	}
}

// DisplayName renders a device as "Browser on OS".
func DisplayName(d models.Device) string {
	if d.Browser == unknown && d.OS == unknown {
		return "Unknown Device"
	}
	return strings.TrimSpace(d.Browser + " on " + d.OS)
}
