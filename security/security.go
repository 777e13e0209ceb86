package security

import (
	"mime"
	"net/http"
)

var sensitiveHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"X-CSRF-Token",
}

// SanitizeHeaders removes credentials from headers before they are logged.
// It modifies and returns headers, so pass a clone of live request headers.
func SanitizeHeaders(headers http.Header) http.Header {
	for _, header := range sensitiveHeaders {
		headers.Del(header)
	}
	return headers
}

// ValidateContentType reports whether a request body type is one the API accepts
func ValidateContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/json", "application/x-www-form-urlencoded", "multipart/form-data":
		return true
	}
	return false
}
