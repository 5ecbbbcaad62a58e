// Package licensekey generates and canonicalizes formatted license keys.
package licensekey

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const (
	charset    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	groupCount = 5
	groupLen   = 4
)

// Pattern matches a canonical license key: five dash-separated groups of
// four uppercase alphanumerics.
var Pattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Generate returns a new random key in canonical form.
func Generate() (string, error) {
	groups := make([]string, groupCount)
	for i := range groups {
		group, err := randomGroup()
		if err != nil {
			return "", err
		}
		groups[i] = group
	}
	return strings.Join(groups, "-"), nil
}

func randomGroup() (string, error) {
	buf := make([]byte, groupLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	out := make([]byte, groupLen)
	for i, b := range buf {
		out[i] = charset[int(b)%len(charset)]
	}
	return string(out), nil
}

// Normalize uppercases and trims raw input. Keys compare and store in
// canonical form; lowercase input is accepted at the boundary.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// IsValid reports whether the normalized input is a well-formed key.
func IsValid(raw string) bool {
	return Pattern.MatchString(Normalize(raw))
}
