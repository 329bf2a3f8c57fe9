// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"github.com/mileusna/useragent"

	"github.com/olegiv/sitecms/internal/model"
)

// ParsedUA holds parsed user agent information.
type ParsedUA struct {
	Browser    string
	OS         string
	DeviceType string
}

// parseUserAgent extracts browser, OS, and device type from a user agent string.
func parseUserAgent(uaString string) ParsedUA {
	ua := useragent.Parse(uaString)

	result := ParsedUA{
		Browser: ua.Name,
		OS:      ua.OS,
	}

	// Handle empty/unknown values
	if result.Browser == "" {
		result.Browser = "Unknown"
	}
	if result.OS == "" {
		result.OS = "Unknown"
	}

	switch {
	case ua.Bot:
		result.DeviceType = model.DeviceBot
	case ua.Tablet:
		result.DeviceType = model.DeviceTablet
	case ua.Mobile:
		result.DeviceType = model.DeviceMobile
	default:
		result.DeviceType = model.DeviceDesktop
	}

	return result
}

// Screen width breakpoints in CSS pixels.
const (
	mobileMaxWidth = 768
	tabletMaxWidth = 1024
)

// deviceFromScreen classifies a device by viewport width. Zero means unknown.
func deviceFromScreen(width int) string {
	switch {
	case width <= 0:
		return ""
	case width < mobileMaxWidth:
		return model.DeviceMobile
	case width < tabletMaxWidth:
		return model.DeviceTablet
	default:
		return model.DeviceDesktop
	}
}
