// Package normalize turns free-text model output into the shapes the API
// serves: shortened chat replies, search results and news items. Everything
// here is pure and deterministic given its inputs.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	shortenThreshold  = 500
	truncateThreshold = 1000
	minSentenceLength = 10
	bulletPrefix      = "• "
)

// TruncationNote is appended to replies cut at the truncation threshold.
const TruncationNote = "\n\n(Note: I've provided a concise summary. If you'd like more details on any specific point, please ask.)"

var sentenceBoundary = regexp.MustCompile(`\.\s+`)

// Shorten makes long chat replies easier to read. Replies under 500
// characters pass through. Longer replies without bullet markup and with
// more than three sentences become one bullet per sentence (sentences of ten
// characters or fewer are dropped) and are returned as is. Anything else
// over 1000 characters is cut at the last full stop before that offset and
// gets TruncationNote appended.
func Shorten(text string) string {
	length := utf8.RuneCountInString(text)
	if length < shortenThreshold {
		return text
	}

	if !strings.Contains(text, "•") && !strings.Contains(text, "- ") {
		sentences := sentenceBoundary.Split(text, -1)
		if len(sentences) > 3 {
			bullets := make([]string, 0, len(sentences))
			for _, s := range sentences {
				s = strings.TrimSpace(s)
				if utf8.RuneCountInString(s) > minSentenceLength {
					bullets = append(bullets, bulletPrefix+s)
				}
			}
			return strings.Join(bullets, "\n")
		}
	}

	if length > truncateThreshold {
		head := string([]rune(text)[:truncateThreshold])
		if cut := strings.LastIndex(head, "."); cut > 0 {
			return head[:cut+1] + TruncationNote
		}
	}

	return text
}
