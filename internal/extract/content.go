package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// minTitleLength is the threshold a cleaned title candidate must reach
// before it wins over lower-priority candidates.
const minTitleLength = 10

// previewRatioMin and previewRatioMax bound the aspect-ratio window
// [1.6, 1.94) that discriminates banner-like preview images from icons,
// avatars and square thumbnails (~16:9 up to ~1.91:1).
const (
	previewRatioMin      = 1.6
	previewRatioMax      = 1.94
	previewMinWidthShare = 0.4
)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// CleanText collapses line breaks and runs of whitespace into single spaces
// and trims both ends.
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(text, " "))
}

// titleSeparators are the conventional patterns sites use to glue the page
// name to the site name in a document title.
var titleSeparators = []string{" | ", " _ ", " - ", "«", "»", "—"}

// CleanTitle keeps only the segment before the first separator pattern,
// applying each separator in turn against the running result.
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range titleSeparators {
		parts := strings.Split(title, sep)
		if len(parts) > 1 {
			title = strings.TrimSpace(parts[0])
		}
	}
	return title
}

// ChooseTitle applies the title heuristics in priority order: the first h1,
// then the first h2, then the cleaned document title; the first candidate
// whose cleaned text reaches minTitleLength wins. If none does, the
// whitespace-normalized document title is returned verbatim, even if short.
func ChooseTitle(h1, h2, docTitle string) string {
	for _, candidate := range []string{h1, h2} {
		if text := CleanText(candidate); utf8.RuneCountInString(text) >= minTitleLength {
			return text
		}
	}
	if cleansed := CleanText(CleanTitle(docTitle)); utf8.RuneCountInString(cleansed) >= minTitleLength {
		return cleansed
	}
	return CleanText(docTitle)
}

// ImageCandidate describes an img element with its rendered dimensions.
type ImageCandidate struct {
	Src    string
	Width  int
	Height int
}

// QualifiesAsPreview reports whether an image of the given rendered size is
// acceptable as the preview image: its width must exceed 40% of the viewport
// width and its aspect ratio must fall inside the preview window.
func QualifiesAsPreview(width, height, viewportWidth int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	ratio := float64(width) / float64(height)
	return float64(width) > float64(viewportWidth)*previewMinWidthShare &&
		ratio >= previewRatioMin && ratio < previewRatioMax
}

// LargestCandidate returns the candidate with the greatest rendered area, or
// false when the slice is empty. The input slice is left untouched.
func LargestCandidate(candidates []ImageCandidate) (ImageCandidate, bool) {
	if len(candidates) == 0 {
		return ImageCandidate{}, false
	}
	sorted := append([]ImageCandidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Width*sorted[i].Height > sorted[j].Width*sorted[j].Height
	})
	return sorted[0], true
}
