// Package mirror rewrites download URLs so they go through a mirror prefix.
package mirror

import (
	"net/url"
	"strings"
)

// DefaultGatedHost is the upstream host whose downloads are routed through the mirror.
const DefaultGatedHost = "github.com"

// DefaultPrefix is the mirror prefix used when none is configured.
const DefaultPrefix = "https://gh-proxy.org/"

// Download source tags.
const (
	// SourceCN is the source for which archive and external file downloads get rewritten.
	SourceCN = "cn"

	// SourceGlobal downloads directly from the published URLs.
	SourceGlobal = "global"
)

// Rewrite returns prefix+rawURL if the URL points to the gated host, the prefix
// isn't empty and the URL isn't already prefixed. Otherwise rawURL is returned as is.
func Rewrite(rawURL string, prefix string, gatedHost string) string {
	if prefix == "" || strings.HasPrefix(rawURL, prefix) {
		return rawURL
	}

	if !isGated(rawURL, gatedHost) {
		return rawURL
	}

	return prefix + rawURL
}

// ForSource applies Rewrite only for downloads coming from the source that requires it.
func ForSource(rawURL string, source string, prefix string, gatedHost string) string {
	if source != SourceCN {
		return rawURL
	}

	return Rewrite(rawURL, prefix, gatedHost)
}

func isGated(rawURL string, gatedHost string) bool {
	if gatedHost == "" {
		gatedHost = DefaultGatedHost
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	gatedHost = strings.ToLower(gatedHost)

	return host == gatedHost || host == "www."+gatedHost
}
