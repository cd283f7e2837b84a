// Package safeid normalizes externally supplied identifiers and names before
// they are embedded in request paths, object keys, or file names: backend
// paper identifiers, uploaded file names, and configured endpoint URLs.
package safeid

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// MaxIdentifierLen bounds identifiers accepted from the backend or the user.
const MaxIdentifierLen = 256

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("safeid: only http and https schemes are allowed")

// ErrEmptyIdentifier is returned for blank identifiers.
var ErrEmptyIdentifier = errors.New("safeid: identifier must not be empty")

// Sanitize replaces path separators in an identifier with dashes so the
// result is safe to embed in a URL path segment or a file name. Legacy
// arXiv identifiers ("math/0211159") carry a slash and must pass through
// here before being used as a path element.
func Sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\':
			return '-'
		}
		return r
	}, id)
}

// ValidateIdentifier rejects identifiers unsuitable for URL path segments or
// file names. Allows alphanumeric, underscore, hyphen, and dot; identifiers
// containing separators must be passed through Sanitize first.
func ValidateIdentifier(s string) error {
	if s == "" {
		return ErrEmptyIdentifier
	}
	if len(s) > MaxIdentifierLen {
		return fmt.Errorf("safeid: identifier too long (max %d)", MaxIdentifierLen)
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("safeid: invalid character %q in identifier", r)
		}
	}
	return nil
}

// ObjectName builds the remote object key for an uploaded artifact:
// a UTC timestamp prefix, the sanitized base of the original file name, and
// a normalized ".pdf" extension regardless of the input extension.
func ObjectName(ts time.Time, originalName string) string {
	base := filepath.Base(originalName)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	lastDash := false
	for _, r := range base {
		if isIdentChar(r) && r != '.' {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "document"
	}
	return ts.UTC().Format("20060102T150405Z") + "-" + name + ".pdf"
}

// ValidateURL checks that rawURL parses, uses http or https, and has a host.
// Loopback hosts are allowed; the backend commonly runs locally.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("safeid: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	if u.Hostname() == "" {
		return fmt.Errorf("safeid: URL has no host")
	}
	return nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}
