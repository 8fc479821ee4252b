// Package utils holds input validation shared by the API layer.
package utils

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Size limits
const (
	MaxBodySize        = 10 * 1024 * 1024 // 10MB - /v1 request body, postData included
	MaxSessionIDLength = 128
)

// ValidateString checks length and rejects control characters
func ValidateString(value, fieldName string, maxLen int) error {
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("Request parameter '%s' must not exceed %d characters.", fieldName, maxLen)
	}
	if strings.IndexFunc(value, unicode.IsControl) >= 0 {
		return fmt.Errorf("Request parameter '%s' contains invalid characters.", fieldName)
	}
	return nil
}

// ValidateSessionID validates a caller supplied session id. Empty is allowed.
func ValidateSessionID(id string) error {
	return ValidateString(id, "session", MaxSessionIDLength)
}

// ValidateTargetURL requires an absolute http or https URL
func ValidateTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("Request parameter 'url' = '%s' is not a valid http(s) URL.", raw)
	}
	return nil
}
