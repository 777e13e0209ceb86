// utils/valid.go
package utils

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneCharRegex = regexp.MustCompile(`[^\d+]`)
)

// SanitizeInput trims free text and strips control characters. Text is
// stored as typed; escaping belongs to whatever renders it.
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
}

// SanitizeEmail lowercases and validates an email address
func SanitizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return "", errors.New("invalid email format")
	}
	return email, nil
}

// SanitizePhone normalizes a phone number to +digits. Empty input is allowed.
func SanitizePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", nil
	}

	phone = phoneCharRegex.ReplaceAllString(phone, "")
	phone = "+" + strings.TrimLeft(phone, "+")

	if len(phone) < 8 || len(phone) > 16 {
		return "", errors.New("invalid phone number length")
	}
	return phone, nil
}

// MaskEmail partially masks an email address for display, e.g. al***@example.com
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" {
		return email
	}

	name, domain := parts[0], parts[1]
	if len(name) <= 2 {
		return name[:1] + "***@" + domain
	}
	return name[:2] + strings.Repeat("*", len(name)-2) + "@" + domain
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// ValidateImageFile checks the extension and size of an uploaded image
func ValidateImageFile(filename string, size int64) error {
	if size > maxImageSize {
		return errors.New("file too large. Maximum size is 5MB")
	}
	if !allowedImageExts[strings.ToLower(filepath.Ext(filename))] {
		return errors.New("unsupported image format. Allowed formats: jpg, jpeg, png, gif")
	}
	return nil
}
