package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultNewsDate    = "Recent"
	DefaultNewsSummary = "No additional details available."
	minNewsItemLength  = 10
)

// NewsItem is one legal news entry derived from model output.
type NewsItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Summary string `json:"summary"`
}

const datePattern = `\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}\s+[A-Za-z]+\s+\d{2,4}|[A-Za-z]+\s+\d{1,2},\s+\d{2,4}`

var (
	titleDate = regexp.MustCompile(`\(([^)]+)\)$|(` + datePattern + `)`)
	lineDate  = regexp.MustCompile(`Date:?\s*(.+)|(` + datePattern + `)`)
)

// ExtractNewsItems splits raw into news items, one per blank-line separated
// paragraph. The first line of a paragraph is its title; a date is taken
// from the end of that line or from a second line. When nothing usable is
// found a single item carrying the whole text is returned.
func ExtractNewsItems(raw, category string, now time.Time) []NewsItem {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)

	var items []NewsItem
	for _, section := range paragraphBreak.Split(raw, -1) {
		if utf8.RuneCountInString(strings.TrimSpace(section)) < minNewsItemLength {
			continue
		}

		title, date, summary := parseNewsSection(section)
		if title == "" {
			continue
		}
		if date == "" {
			date = DefaultNewsDate
		}
		if summary == "" {
			summary = DefaultNewsSummary
		}
		items = append(items, NewsItem{
			ID:      stamp + strconv.Itoa(len(items)),
			Title:   title,
			Date:    date,
			Summary: summary,
		})
	}

	if len(items) == 0 {
		title := "Recent Legal Updates"
		if category != "" {
			title = "Recent " + category + " Updates"
		}
		items = []NewsItem{{
			ID:      stamp,
			Title:   title,
			Date:    DefaultNewsDate,
			Summary: raw,
		}}
	}
	return items
}

func parseNewsSection(section string) (title, date, summary string) {
	lines := strings.Split(section, "\n")

	firstLine := strings.TrimSpace(lines[0])
	if m := titleDate.FindString(firstLine); m != "" {
		date = strings.TrimSpace(strings.NewReplacer("(", "", ")", "").Replace(m))
		title = strings.TrimSpace(strings.Replace(firstLine, m, "", 1))
	} else {
		title = firstLine
	}

	if date == "" && len(lines) > 1 {
		secondLine := strings.TrimSpace(lines[1])
		if m := lineDate.FindStringSubmatch(secondLine); m != nil {
			switch {
			case m[1] != "":
				date = m[1]
			case m[2] != "":
				date = m[2]
			default:
				date = m[0]
			}
			lines = append(lines[:1], lines[2:]...)
		}
	}

	summary = strings.TrimSpace(strings.Join(lines[1:], "\n"))
	return title, date, summary
}
