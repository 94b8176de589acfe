package websearch

import (
	"net/url"
	"strings"
)

// NormalizeURL returns the dedup key for a result URL. Scheme, host case,
// a leading "www.", default ports, fragments and trailing slashes are
// ignored. Strings that do not parse as absolute URLs are lowercased.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	port := u.Port()
	scheme := strings.ToLower(u.Scheme)
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	key := host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}

// dedupKey keys a result by its normalized URL, or by its normalized
// snippet when it has no URL.
func dedupKey(title, snippet, rawURL string) string {
	if strings.TrimSpace(rawURL) != "" {
		return "u:" + NormalizeURL(rawURL)
	}
	return "s:" + strings.ToLower(strings.Join(strings.Fields(title+" "+snippet), " "))
}
