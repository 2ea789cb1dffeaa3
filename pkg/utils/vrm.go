package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// VRM_MAX_LENGTH is the longest registration mark issued in the UK
const VRM_MAX_LENGTH = 8

var vrmPattern = regexp.MustCompile(`^[A-Z0-9]{2,8}$`)

// NormalizeVRM uppercases a registration mark and removes all whitespace,
// including whitespace inside the mark ("ab12 cde" -> "AB12CDE").
func NormalizeVRM(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// IsValidVRM reports whether an already normalized mark looks like a plate
func IsValidVRM(vrm string) bool {
	return vrmPattern.MatchString(vrm)
}
