package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		message string
	}{
		{name: "https", url: "https://cdn.example.com/poster.png"},
		{name: "http with port", url: "http://example.com:8080/a.jpg"},
		{name: "empty allowed", url: ""},
		{name: "missing scheme", url: "example.com/a.png", message: "URL must include a host"},
		{name: "ftp", url: "ftp://example.com/a.png", message: "URL scheme must be http or https"},
		{name: "javascript", url: "javascript:alert(1)", message: "URL must include a host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url, "imageUrl")
			if tt.message == "" {
				require.NoError(t, err)
				return
			}
			var urlErr URLValidationError
			require.True(t, errors.As(err, &urlErr))
			require.Equal(t, "imageUrl", urlErr.Field)
			require.Equal(t, tt.message, urlErr.Message)
		})
	}
}
