// Package preview shapes raw result bodies for list display: markup is
// stripped, whitespace collapsed, and long text cut at a word boundary.
package preview

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/rhuss/coursesearch/pkg/api"
)

// Lengths used when rendering result lists.
const (
	// TitleLength bounds titles composed from raw content.
	TitleLength = 50
	// BodyLength bounds body previews below each result.
	BodyLength = 200
)

// Ellipsis marks a truncated preview.
const Ellipsis = "..."

// policy is safe for concurrent use once built.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	// Adjacent block elements must not glue words together ("<p>a</p><p>b</p>").
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// maxDecodePasses bounds how many levels of entity encoding Strip unwraps.
const maxDecodePasses = 4

// Strip removes all markup from content and returns plain text with entities
// decoded and runs of whitespace collapsed to single spaces. Script and style
// bodies are dropped entirely.
//
// Decoding entities can surface markup that was escaped in the source
// ("&lt;b&gt;"), so stripping repeats until the text stops changing. Text
// still changing after maxDecodePasses is returned in escaped form.
func Strip(content string) string {
	if content == "" {
		return ""
	}
	text := content
	for range maxDecodePasses {
		next := html.UnescapeString(policy.Sanitize(text))
		if next == text {
			return collapse(text)
		}
		text = next
	}
	return collapse(policy.Sanitize(text))
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Text returns the stripped form of content cut to at most maxLength
// characters. When a cut is needed it falls on the last word boundary inside
// the limit, if there is one, and Ellipsis is appended. maxLength <= 0
// disables truncation.
func Text(content string, maxLength int) string {
	text := Strip(content)
	if maxLength <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	cut := runes[:maxLength]
	// If the limit lands inside a word, back up to the previous space.
	if !unicode.IsSpace(runes[maxLength]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + Ellipsis
}

// Result returns the preview of a result's body.
func Result(r api.Result, maxLength int) string {
	return Text(r.Content, maxLength)
}

// View converts a result into its client-facing form, resolving the link
// against base and attaching a body preview of BodyLength characters.
func View(r api.Result, base string) api.ResultView {
	return api.ResultView{
		Title:   r.Title,
		Type:    r.Type,
		Content: r.Content,
		Preview: Result(r, BodyLength),
		URL:     r.URL.String(),
		Href:    r.URL.Resolve(base),
		Source:  r.Source,
	}
}

// Views converts a result list with View, preserving order.
func Views(results []api.Result, base string) []api.ResultView {
	views := make([]api.ResultView, len(results))
	for i, r := range results {
		views[i] = View(r, base)
	}
	return views
}
