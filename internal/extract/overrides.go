package extract

// FieldValue is an override field that is either a literal string or a
// marker meaning "compute from the cache key at lookup time".
type FieldValue struct {
	value   string
	derived bool
}

// Literal wraps a fixed override field value.
func Literal(value string) FieldValue {
	return FieldValue{value: value}
}

// DeriveFromKey marks an override field to be resolved at lookup time: the
// url becomes the caller's canonical URL, the title is derived from the
// cache key's path segments.
func DeriveFromKey() FieldValue {
	return FieldValue{derived: true}
}

// OverrideEntry is a hand-curated extraction result bypassing live
// rendering. Entries are immutable input data and are never written to the
// result store.
type OverrideEntry struct {
	URL         FieldValue
	Title       FieldValue
	Image       string
	Favicon     string
	ExtractedDT int64
}

// OverrideTable maps cache keys to curated entries.
type OverrideTable map[string]OverrideEntry

// Lookup resolves the entry for key, if any. Derived fields are filled in
// from the caller-supplied canonical URL and the key itself. Overrides
// always take precedence over the persistent store.
func (t OverrideTable) Lookup(key, canonicalURL string) (ExtractedResult, bool) {
	entry, ok := t[key]
	if !ok {
		return ExtractedResult{}, false
	}

	result := ExtractedResult{
		URL:         entry.URL.value,
		Status:      StatusOK,
		Title:       entry.Title.value,
		Image:       entry.Image,
		Favicon:     entry.Favicon,
		ExtractedDT: entry.ExtractedDT,
	}
	if entry.URL.derived {
		result.URL = canonicalURL
	}
	if entry.Title.derived {
		result.Title = DeriveTitleFromKey(key)
	}
	return result, true
}

// DefaultOverrides carries the curated results for sites that block or
// mangle live rendering.
var DefaultOverrides = OverrideTable{
	"www.wsj.com": {
		URL:         Literal("https://www.wsj.com"),
		Title:       Literal("The Wall Street Journal - Breaking News, Business, Financial & Economic News, World News and Video"),
		Image:       "https://storage.googleapis.com/bracekit-static-files/tQHZLQf118qdEW6ZQccpqXdFGiXjaJJYw9E51h3JM52mmAPN.png",
		Favicon:     "https://www.wsj.com/favicon.ico",
		ExtractedDT: 1632721185359,
	},
	"www.newstatesman.com": {
		URL:         Literal("https://www.newstatesman.com"),
		Title:       Literal("The New Statesman - Global Current Affairs, Politics & Culture"),
		Image:       "https://storage.googleapis.com/bracekit-static-files/T9FBbGYYm79APz4ta47GdUAuia5qyFByROWCYU5ZhgVQSYPp.png",
		Favicon:     "https://www.newstatesman.com/favicon.ico",
		ExtractedDT: 1632721185359,
	},
}
