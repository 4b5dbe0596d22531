// Package geotime resolves loosely written timezone names to IANA zones.
package geotime

import (
	"strings"
	"time"
	_ "time/tzdata" // job ids must render the same on hosts without a zoneinfo database

	"github.com/teranos/mangasync/errors"
)

var locationKeywordTimezones = map[string]string{
	"jakarta":      "Asia/Jakarta",
	"bandung":      "Asia/Jakarta",
	"surabaya":     "Asia/Jakarta",
	"indonesia":    "Asia/Jakarta",
	"bali":         "Asia/Makassar",
	"makassar":     "Asia/Makassar",
	"jayapura":     "Asia/Jayapura",
	"singapore":    "Asia/Singapore",
	"kuala lumpur": "Asia/Kuala_Lumpur",
	"malaysia":     "Asia/Kuala_Lumpur",
	"bangkok":      "Asia/Bangkok",
	"thailand":     "Asia/Bangkok",
	"manila":       "Asia/Manila",
	"philippines":  "Asia/Manila",
	"hanoi":        "Asia/Ho_Chi_Minh",
	"vietnam":      "Asia/Ho_Chi_Minh",
	"hong kong":    "Asia/Hong_Kong",
	"seoul":        "Asia/Seoul",
	"korea":        "Asia/Seoul",
	"tokyo":        "Asia/Tokyo",
	"japan":        "Asia/Tokyo",
	"london":       "Europe/London",
	"amsterdam":    "Europe/Amsterdam",
	"berlin":       "Europe/Berlin",
	"new york":     "America/New_York",
	"los angeles":  "America/Los_Angeles",
	"sydney":       "Australia/Sydney",
}

var countryCodeTimezones = map[string]string{
	"id": "Asia/Jakarta",
	"sg": "Asia/Singapore",
	"my": "Asia/Kuala_Lumpur",
	"th": "Asia/Bangkok",
	"ph": "Asia/Manila",
	"vn": "Asia/Ho_Chi_Minh",
	"hk": "Asia/Hong_Kong",
	"kr": "Asia/Seoul",
	"jp": "Asia/Tokyo",
	"gb": "Europe/London",
	"uk": "Europe/London",
	"nl": "Europe/Amsterdam",
	"de": "Europe/Berlin",
	"us": "America/New_York",
	"au": "Australia/Sydney",
}

var timezoneByAbbreviation = map[string]string{
	"wib":  "Asia/Jakarta",
	"wita": "Asia/Makassar",
	"wit":  "Asia/Jayapura",
	"sgt":  "Asia/Singapore",
	"ict":  "Asia/Bangkok",
	"hkt":  "Asia/Hong_Kong",
	"kst":  "Asia/Seoul",
	"jst":  "Asia/Tokyo",
	"utc":  "UTC",
	"gmt":  "UTC",
	"bst":  "Europe/London",
	"cet":  "Europe/Berlin",
	"cest": "Europe/Berlin",
	"est":  "America/New_York",
	"edt":  "America/New_York",
	"pst":  "America/Los_Angeles",
	"pdt":  "America/Los_Angeles",
	"aest": "Australia/Sydney",
}

// NormalizeTimezone attempts to resolve user input into a valid IANA timezone.
func NormalizeTimezone(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("timezone cannot be empty")
	}

	// First, check if the input is already a valid timezone
	if isValidTimezone(trimmed) {
		// For valid timezones, always canonicalize to ensure proper IANA format
		// This handles cases like "america/New_york" which may be parseable but not canonical
		canonicalized := canonicalizeValidTimezone(trimmed)
		if canonicalized != "" {
			return canonicalized, nil
		}
		// If canonicalization fails but timezone is valid, return as-is
		// This preserves properly formatted names like "America/Port_of_Spain"
		return trimmed, nil
	}

	// Try sanitizing only if the raw input isn't valid
	candidate := sanitizeTimezone(trimmed)
	if isValidTimezone(candidate) {
		return candidate, nil
	}

	lower := strings.ToLower(trimmed)
	if tz, ok := timezoneByAbbreviation[lower]; ok {
		return tz, nil
	}

	if tz := GuessTimezoneFromLocation(lower); tz != "" {
		return tz, nil
	}

	if tz, ok := countryCodeTimezones[lower]; ok {
		return tz, nil
	}

	return "", errors.Newf("unknown timezone: %s", input)
}

// GuessTimezoneFromLocation uses keyword heuristics to derive a timezone.
func GuessTimezoneFromLocation(location string) string {
	lower := strings.ToLower(strings.TrimSpace(location))
	for keyword, timezone := range locationKeywordTimezones {
		if strings.Contains(lower, keyword) {
			return timezone
		}
	}
	return ""
}

func sanitizeTimezone(tz string) string {
	trimmed := strings.TrimSpace(tz)
	trimmed = strings.Trim(trimmed, "\"'")
	trimmed = strings.ReplaceAll(trimmed, " ", "_")
	if strings.Contains(trimmed, "/") {
		parts := strings.Split(trimmed, "/")
		for i, part := range parts {
			parts[i] = title(part)
		}
		return strings.Join(parts, "/")
	}
	return title(trimmed)
}

func title(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func isValidTimezone(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// canonicalizeValidTimezone attempts to return the canonical IANA name for a valid timezone
// This ensures proper formatting for cases like "america/New_york" -> "America/New_York"
// but preserves properly formatted names like "America/Port_of_Spain"
func canonicalizeValidTimezone(tz string) string {
	// Only canonicalize if the timezone appears to have incorrect capitalization
	// Check if it's all lowercase or has clear formatting issues
	if strings.ToLower(tz) == tz || hasIncorrectCapitalization(tz) {
		candidate := sanitizeTimezone(tz)
		if isValidTimezone(candidate) && candidate != tz {
			return candidate
		}
	}
	// For properly formatted timezones, return empty to preserve original
	return ""
}

// hasIncorrectCapitalization detects timezones that need case correction
// but aren't already properly formatted IANA names
func hasIncorrectCapitalization(tz string) bool {
	// If it's all lowercase, it needs correction
	if strings.ToLower(tz) == tz {
		return true
	}

	// If it starts with lowercase after a slash, it needs correction
	// e.g., "america/New_York" should be "America/New_York"
	if strings.Contains(tz, "/") {
		parts := strings.Split(tz, "/")
		for _, part := range parts {
			if len(part) > 0 && part[0] >= 'a' && part[0] <= 'z' {
				return true
			}
		}
	}

	return false
}
