package utils

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var linkRegex = regexp.MustCompile(`https?://(?:www\.)?([a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+)`)

type Link struct {
	URL  string
	Host string
}

// ExtractLinks returns every http(s) link in content with its host component,
// in order of appearance.
func ExtractLinks(content string) []Link {
	matches := linkRegex.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	links := make([]Link, 0, len(matches))
	for _, match := range matches {
		links = append(links, Link{URL: match[0], Host: match[1]})
	}
	return links
}

// NormalizeDomain turns user input like "HTTPS://Bad.Example/path" into a
// lower-case ASCII domain. Unicode domains are converted to punycode.
func NormalizeDomain(raw string) string {
	domain := strings.ToLower(strings.TrimSpace(raw))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	if idx := strings.IndexAny(domain, "/?#"); idx >= 0 {
		domain = domain[:idx]
	}
	domain = strings.Trim(domain, ".")
	if domain == "" {
		return ""
	}
	if ascii, err := idna.ToASCII(domain); err == nil {
		domain = ascii
	}
	return domain
}

// HostContains reports the first domain that host contains, ignoring case.
func HostContains(host string, domains []string) (string, bool) {
	host = strings.ToLower(host)
	for _, domain := range domains {
		if domain == "" {
			continue
		}
		if strings.Contains(host, strings.ToLower(domain)) {
			return domain, true
		}
	}
	return "", false
}
