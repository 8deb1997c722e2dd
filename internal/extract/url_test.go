package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want Validation
	}{
		{name: "empty", raw: "", want: NoURL},
		{name: "bare domain", raw: "example.com", want: ValidURL},
		{name: "with scheme", raw: "https://example.com/page", want: ValidURL},
		{name: "subdomain and query", raw: "http://news.example.co.uk/a?b=1", want: ValidURL},
		{name: "uppercase host", raw: "HTTP://EXAMPLE.COM", want: ValidURL},
		{name: "mixed case host", raw: "Example.Com/page", want: ValidURL},
		{name: "no tld", raw: "localhost", want: AskConfirm},
		{name: "single label with scheme", raw: "http://example", want: AskConfirm},
		{name: "numeric tld", raw: "192.168.0.1", want: AskConfirm},
		{name: "space in host", raw: "exa mple.com", want: AskConfirm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Validate(tt.raw))
		})
	}
}

func TestEnsureProtocol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://example.com", EnsureProtocol("example.com"))
	assert.Equal(t, "https://example.com", EnsureProtocol("https://example.com"))
	assert.Equal(t, "ftp://example.com", EnsureProtocol("ftp://example.com"))
}

func TestCleanURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "strips tracking params",
			raw:  "https://example.com/page?utm_source=x&utm_medium=y&id=1",
			want: "https://example.com/page?id=1",
		},
		{
			name: "keeps protocol absence",
			raw:  "example.com/page?fbclid=abc",
			want: "example.com/page",
		},
		{
			name: "no query untouched",
			raw:  "https://example.com/page",
			want: "https://example.com/page",
		},
		{
			name: "only tracking params",
			raw:  "example.com?gclid=1&ref=foo",
			want: "example.com",
		},
		{
			name: "lowercases host but not path",
			raw:  "Example.COM/Page?id=1",
			want: "example.com/Page?id=1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CleanURL(tt.raw)
			assert.Equal(t, tt.want, got)
			// A second pass must not change the result.
			assert.Equal(t, got, CleanURL(got))
		})
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com/page", CacheKey("https://example.com/page"))
	assert.Equal(t, "example.com/page", CacheKey("http://example.com/page/"))
	assert.Equal(t, "example.com", CacheKey("example.com"))

	// Scheme and trailing-slash variants collapse onto one key.
	variants := []string{
		"http://example.com/a",
		"https://example.com/a",
		"example.com/a",
		"https://example.com/a/",
	}
	for _, v := range variants {
		assert.Equal(t, "example.com/a", CacheKey(v), "variant %q", v)
	}
}

func TestCacheKeyHostCaseVariantsCollapse(t *testing.T) {
	t.Parallel()

	upper := CacheKey(CleanURL("Example.com/page"))
	lower := CacheKey(CleanURL("example.com/page"))
	assert.Equal(t, lower, upper)
	assert.Equal(t, "example.com/page", upper)
}

func TestDeriveTitleFromKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{key: "example.com/my-cool_page", want: "My Cool Page"},
		{key: "example.com/posts/hello-world", want: "Hello World"},
		{key: "example.com", want: "Example.com"},
		{key: "example.com/article?id=3", want: "Article"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveTitleFromKey(tt.key), "key %q", tt.key)
	}
}
