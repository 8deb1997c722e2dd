package extract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Validation is the outcome of checking a raw URL before extraction.
type Validation int

const (
	// NoURL means the input was empty.
	NoURL Validation = iota
	// AskConfirm means the hostname failed the domain-shape check.
	AskConfirm
	// ValidURL means the input may proceed to extraction.
	ValidURL
)

const httpPrefix = "http://"

var (
	protocolPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	hostnamePattern = regexp.MustCompile(`^([-a-zA-Z0-9@:%_+~#=]{2,256}\.)+[a-z]{2,6}$`)
)

// ignoredQueryParams are tracking-style parameters stripped during
// canonicalization so cosmetic variants of the same destination collapse
// onto one cache key.
var ignoredQueryParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"ref", "fbclid", "gclid", "mc_cid", "mc_eid", "igshid",
}

// HasProtocol reports whether the raw URL carries an explicit scheme.
func HasProtocol(raw string) bool {
	return protocolPattern.MatchString(raw)
}

// EnsureProtocol prefixes http:// when no scheme is present.
func EnsureProtocol(raw string) string {
	if HasProtocol(raw) {
		return raw
	}
	return httpPrefix + raw
}

// Validate checks a raw URL string. Empty input yields NoURL; a hostname
// that fails the strict domain-label pattern yields AskConfirm; everything
// else is ValidURL. Hostnames are case-insensitive, so the host is lowercased
// before the check. Only ValidURL proceeds to extraction.
func Validate(raw string) Validation {
	if raw == "" {
		return NoURL
	}
	u, err := url.Parse(EnsureProtocol(raw))
	if err != nil {
		return AskConfirm
	}
	if !hostnamePattern.MatchString(strings.ToLower(u.Hostname())) {
		return AskConfirm
	}
	return ValidURL
}

// CleanURL removes ignored query parameters, rebuilding the URL with only
// the kept ones, and lowercases the host so case variants of one destination
// share a canonical form. Whether a protocol was present on input is
// preserved: a synthetic http:// is injected for parsing and stripped back
// out. The result is deterministic and idempotent.
func CleanURL(raw string) string {
	hadProtocol := HasProtocol(raw)
	u, err := url.Parse(EnsureProtocol(raw))
	if err != nil {
		return raw
	}
	u.Host = strings.ToLower(u.Host)

	q := u.Query()
	for _, key := range ignoredQueryParams {
		q.Del(key)
	}
	u.RawQuery = q.Encode()

	cleaned := u.String()
	if !hadProtocol {
		cleaned = strings.TrimPrefix(cleaned, httpPrefix)
	}
	return cleaned
}

// CacheKey derives the store identity from a canonical URL: the protocol and
// any leading or trailing slashes are removed. Two URLs that normalize to
// the same key resolve to the same stored result.
func CacheKey(canonical string) string {
	key := protocolPattern.ReplaceAllString(canonical, "")
	return strings.Trim(key, "/")
}

// DeriveTitleFromKey produces a human-readable label from a cache key's path
// segments: the last non-empty segment with dashes and underscores replaced
// by spaces and each word title-cased. A key with no path falls back to the
// host itself.
func DeriveTitleFromKey(key string) string {
	segments := strings.Split(key, "/")
	segment := segments[0]
	for i := len(segments) - 1; i > 0; i-- {
		if segments[i] != "" {
			segment = segments[i]
			break
		}
	}
	// Drop any query string left in the segment.
	if idx := strings.IndexAny(segment, "?#"); idx >= 0 {
		segment = segment[:idx]
	}

	words := strings.FieldsFunc(segment, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
