package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID(""))
	assert.NoError(t, ValidateSessionID("my session 1"))
	assert.NoError(t, ValidateSessionID(strings.Repeat("a", MaxSessionIDLength)))

	err := ValidateSessionID(strings.Repeat("a", MaxSessionIDLength+1))
	assert.EqualError(t, err, "Request parameter 'session' must not exceed 128 characters.")

	err = ValidateSessionID("bad\x00id")
	assert.EqualError(t, err, "Request parameter 'session' contains invalid characters.")
}

func TestValidateTargetURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://example.com", true},
		{"http://example.com:8080/path?q=1", true},
		{"example.com", false},
		{"ftp://example.com", false},
		{"javascript:alert(1)", false},
		{"https://", false},
		{"http://%zz", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateTargetURL(tt.url)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
