package provider

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexInt decodes a number that may arrive as a JSON number or a string.
// Empty strings and null leave it unset.
type flexInt struct {
	Value int
	Valid bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := unquote(data)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		// Non-numeric labels such as "UNREADABLE" are treated as missing
		return nil
	}
	f.Value = int(n)
	f.Valid = true
	return nil
}

// Ptr returns nil when the value was missing or zero
func (f flexInt) Ptr() *int {
	if !f.Valid || f.Value == 0 {
		return nil
	}
	v := f.Value
	return &v
}

// flexFloat decodes a number that may arrive as a JSON number or a string,
// with an optional currency sign.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	raw := unquote(data)
	raw = strings.TrimLeft(raw, "£$")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	f.Value = n
	f.Valid = true
	return nil
}

// Ptr returns nil when the value was missing or zero
func (f flexFloat) Ptr() *float64 {
	if !f.Valid || f.Value == 0 {
		return nil
	}
	v := f.Value
	return &v
}

// flexBool decodes true/false, "Yes"/"No", "Y"/"N" and 0/1
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(unquote(data)) {
	case "true", "yes", "y", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

func unquote(data []byte) string {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ""
	}
	if len(data) >= 2 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return string(data)
}

func intPtr(v int) *int {
	return &v
}
