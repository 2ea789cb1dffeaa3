package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVRM(t *testing.T) {
	tests := map[string]string{
		" ab12 cde ": "AB12CDE",
		"AB12CDE":    "AB12CDE",
		"yd17\tavu":  "YD17AVU",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeVRM(in), "input %q", in)
	}
}

func TestIsValidVRM(t *testing.T) {
	assert.True(t, IsValidVRM("AB12CDE"))
	assert.True(t, IsValidVRM("A1"))
	assert.False(t, IsValidVRM(""))
	assert.False(t, IsValidVRM("A"))
	assert.False(t, IsValidVRM("ab12cde"))
	assert.False(t, IsValidVRM("AB-12"))
	assert.False(t, IsValidVRM("ABCDEFGHI"))
}

func TestPreferString(t *testing.T) {
	assert.Equal(t, "Blue", PreferString("Blue", "Red"))
	assert.Equal(t, "Red", PreferString("", " Red "))
	assert.Equal(t, "Red", PreferString("Unknown", "Red"))
	assert.Equal(t, "Blue", PreferString("Blue", "N/A"))
	assert.Equal(t, "", PreferString("", "null"))
}

func TestIsFuelTypeLabel(t *testing.T) {
	assert.True(t, IsFuelTypeLabel("Petrol"))
	assert.True(t, IsFuelTypeLabel(" diesel hybrid "))
	assert.False(t, IsFuelTypeLabel("XCeed GT-Line"))
}

func TestFirstNonPlaceholder(t *testing.T) {
	assert.Equal(t, "x", FirstNonPlaceholder("", "unknown", " x ", "y"))
	assert.Equal(t, "", FirstNonPlaceholder("-", "n/a"))
}

func TestParseProviderDate(t *testing.T) {
	want := time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2023-05-02", "2023.05.02 00:00:00", "02/05/2023", "2023-05-02T00:00:00Z"} {
		got, ok := ParseProviderDate(raw)
		assert.True(t, ok, raw)
		assert.True(t, want.Equal(got), raw)
	}

	_, ok := ParseProviderDate("next tuesday")
	assert.False(t, ok)
	_, ok = ParseProviderDate("  ")
	assert.False(t, ok)
}

func TestKilometresToMiles(t *testing.T) {
	assert.Equal(t, 6214, KilometresToMiles(10000))
	assert.Equal(t, 0, KilometresToMiles(0))
	assert.Equal(t, 1, KilometresToMiles(1))
}
