package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "one two three", CleanText("  one\n two\t\tthree "))
	assert.Equal(t, "", CleanText("   \n\t "))
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "pipe separator", title: "The Article Name | The Site", want: "The Article Name"},
		{name: "dash separator", title: "The Article Name - The Site", want: "The Article Name"},
		{name: "em dash", title: "The Article Name— The Site", want: "The Article Name"},
		{name: "guillemet", title: "The Article Name « The Site", want: "The Article Name"},
		{name: "no separator", title: "Just a Title", want: "Just a Title"},
		{name: "hyphen without spaces kept", title: "Well-known Facts", want: "Well-known Facts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CleanTitle(tt.title))
		})
	}
}

func TestChooseTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		h1       string
		h2       string
		docTitle string
		want     string
	}{
		{
			name:     "h1 long enough wins",
			h1:       "A Headline Long Enough",
			h2:       "Another Long Subheading",
			docTitle: "Doc Title That Is Long",
			want:     "A Headline Long Enough",
		},
		{
			name:     "short h1 falls through to h2",
			h1:       "Short",
			h2:       "A Subheading Long Enough",
			docTitle: "Doc Title That Is Long",
			want:     "A Subheading Long Enough",
		},
		{
			name:     "headings short, cleaned doc title wins",
			h1:       "Hi",
			h2:       "Yo",
			docTitle: "The Article Name | The Site",
			want:     "The Article Name",
		},
		{
			name:     "everything short returns doc title verbatim",
			h1:       "",
			h2:       "",
			docTitle: "Hi",
			want:     "Hi",
		},
		{
			name:     "whitespace in h1 is normalized before measuring",
			h1:       "  broken\nacross   lines  ",
			h2:       "",
			docTitle: "x",
			want:     "broken across lines",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ChooseTitle(tt.h1, tt.h2, tt.docTitle))
		})
	}
}

func TestQualifiesAsPreview(t *testing.T) {
	t.Parallel()

	const viewport = 1280

	tests := []struct {
		name          string
		width, height int
		want          bool
	}{
		{name: "banner shaped and wide", width: 800, height: 420, want: true},
		{name: "exactly 16:10 at lower bound", width: 640, height: 400, want: true},
		{name: "square", width: 1000, height: 1000, want: false},
		{name: "too narrow", width: 400, height: 230, want: false},
		{name: "ratio at upper bound excluded", width: 970, height: 500, want: false},
		{name: "zero height", width: 800, height: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, QualifiesAsPreview(tt.width, tt.height, viewport))
		})
	}
}

func TestLargestCandidate(t *testing.T) {
	t.Parallel()

	_, ok := LargestCandidate(nil)
	assert.False(t, ok)

	candidates := []ImageCandidate{
		{Src: "a", Width: 100, Height: 100},
		{Src: "b", Width: 800, Height: 420},
		{Src: "c", Width: 300, Height: 300},
	}
	got, ok := LargestCandidate(candidates)
	assert.True(t, ok)
	assert.Equal(t, "b", got.Src)

	// The input slice keeps its original order.
	assert.Equal(t, "a", candidates[0].Src)
}
