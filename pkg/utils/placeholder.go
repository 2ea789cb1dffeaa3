package utils

import "strings"

// Values the data providers (and older records) use when they have nothing
var placeholderValues = map[string]struct{}{
	"":              {},
	"unknown":       {},
	"null":          {},
	"undefined":     {},
	"n/a":           {},
	"na":            {},
	"not available": {},
	"-":             {},
}

// Bare fuel labels. A variant that is only one of these was derived from the
// fuel type and carries no trim information.
var fuelTypeLabels = map[string]struct{}{
	"petrol":          {},
	"diesel":          {},
	"electric":        {},
	"hybrid":          {},
	"petrol hybrid":   {},
	"diesel hybrid":   {},
	"plug-in hybrid":  {},
	"petrol/electric": {},
	"diesel/electric": {},
	"lpg":             {},
	"bi-fuel":         {},
}

// IsPlaceholder reports whether a stored value should never block a concrete
// incoming value from replacing it.
func IsPlaceholder(value string) bool {
	_, ok := placeholderValues[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// IsFuelTypeLabel reports whether value is a bare fuel-type label such as
// "Petrol" or "Diesel Hybrid".
func IsFuelTypeLabel(value string) bool {
	_, ok := fuelTypeLabels[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// FirstNonPlaceholder returns the first candidate that is not a placeholder,
// or "" when all of them are.
func FirstNonPlaceholder(candidates ...string) string {
	for _, c := range candidates {
		if !IsPlaceholder(c) {
			return strings.TrimSpace(c)
		}
	}
	return ""
}

// PreferString returns incoming when current is a placeholder and incoming
// is not; otherwise current is kept.
func PreferString(current, incoming string) string {
	if IsPlaceholder(incoming) {
		return current
	}
	if IsPlaceholder(current) {
		return strings.TrimSpace(incoming)
	}
	return current
}
