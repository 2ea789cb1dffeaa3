package utils

import (
	"strings"
	"time"
)

// ParseProviderDate accepts every date format the providers have been seen
// to return. A zero time and false are returned when nothing matches.
func ParseProviderDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	layouts := []string{time.RFC3339, MOT_DATE_LAYOUT, DATE_LAYOUT, UK_DATE_LAYOUT, "2006.01.02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// KilometresToMiles rounds a kilometre reading to whole miles
func KilometresToMiles(km int) int {
	return int(float64(km)*KM_TO_MILES + 0.5)
}
