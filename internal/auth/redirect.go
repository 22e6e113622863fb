package auth

import (
	"net/url"
	"strings"
	"unicode"
)

// SafeReturnURL returns raw when it points back at this site, either as a
// rooted relative path or as an absolute http(s) URL on host. Anything else
// (protocol-relative URLs, backslash tricks, other hosts, other schemes)
// yields fallback.
func SafeReturnURL(raw, host, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsRune(raw, '\\') {
		return fallback
	}
	if strings.IndexFunc(raw, unicode.IsControl) >= 0 {
		return fallback
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if u.Scheme == "" && u.Host == "" {
		if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
			return raw
		}
		return fallback
	}

	if (u.Scheme == "http" || u.Scheme == "https") && host != "" && strings.EqualFold(u.Host, host) && u.User == nil {
		return raw
	}
	return fallback
}
