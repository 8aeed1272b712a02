package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCategory = "Legal Information"
	summaryPreview  = 150
)

// SearchResult is one law search hit derived from model output.
type SearchResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
	Content  string `json:"content"`

	// Fields holds the object the model returned when it answered in JSON.
	// It is served verbatim in place of the typed fields.
	Fields map[string]any `json:"-"`
}

func (r SearchResult) MarshalJSON() ([]byte, error) {
	if r.Fields != nil {
		return json.Marshal(r.Fields)
	}
	type plain SearchResult
	return json.Marshal(plain(r))
}

// Kind tags a SearchParse.
type Kind int

const (
	KindEmpty Kind = iota
	KindStructured
	KindUnstructured
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindUnstructured:
		return "unstructured"
	default:
		return "empty"
	}
}

// SearchParse is the outcome of reading a search answer. Fields is set for
// KindStructured; Title, Summary and Content for KindUnstructured.
type SearchParse struct {
	Kind    Kind
	Fields  map[string]any
	Title   string
	Summary string
	Content string
}

var (
	paragraphBreak = regexp.MustCompile(`\n\n|\r\n\r\n`)
	titleLabel     = regexp.MustCompile(`(?i)^(Title|Topic|Law):?\s*`)
	summaryLabel   = regexp.MustCompile(`(?i)Summary:?\s*`)
	sectionLabel   = regexp.MustCompile(`(?i)Content|Key Provisions|References|Exceptions`)
)

// ParseSearchText classifies raw model output. A JSON object spanning the
// first "{" to the last "}" wins; when it is absent or does not parse, the
// text is read as labelled paragraphs.
func ParseSearchText(raw string) SearchParse {
	if strings.TrimSpace(raw) == "" {
		return SearchParse{Kind: KindEmpty}
	}

	if fields, ok := parseJSONObject(raw); ok {
		return SearchParse{Kind: KindStructured, Fields: fields}
	}

	title := extractTitle(raw)
	summary := extractSummary(raw)
	content := strings.Replace(raw, title, "", 1)
	content = strings.TrimSpace(strings.Replace(content, summary, "", 1))

	return SearchParse{
		Kind:    KindUnstructured,
		Title:   title,
		Summary: summary,
		Content: content,
	}
}

func parseJSONObject(raw string) (map[string]any, bool) {
	if !strings.Contains(raw, "{") || !strings.Contains(raw, "}") {
		return nil, false
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if end < start {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func extractTitle(raw string) string {
	for _, section := range paragraphBreak.Split(raw, -1) {
		trimmed := strings.TrimSpace(section)
		if trimmed == "" || strings.HasPrefix(trimmed, "•") || strings.HasPrefix(trimmed, "-") {
			continue
		}
		return titleLabel.ReplaceAllString(trimmed, "")
	}
	return ""
}

func extractSummary(raw string) string {
	loc := summaryLabel.FindStringIndex(raw)
	if loc == nil {
		return ""
	}
	rest := raw[loc[1]:]
	if end := sectionLabel.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	return strings.TrimSpace(rest)
}

// ExtractSearchResult builds the search result served for raw. fallbackTitle
// is used when no title can be read, and category defaults to
// DefaultCategory.
func ExtractSearchResult(raw, fallbackTitle, category string, now time.Time) SearchResult {
	parsed := ParseSearchText(raw)

	if parsed.Kind == KindStructured {
		return SearchResult{
			ID:       stringField(parsed.Fields, "id"),
			Title:    stringField(parsed.Fields, "title"),
			Category: stringField(parsed.Fields, "category"),
			Summary:  stringField(parsed.Fields, "summary"),
			Content:  stringField(parsed.Fields, "content"),
			Fields:   parsed.Fields,
		}
	}

	result := SearchResult{
		ID:       strconv.FormatInt(now.UnixMilli(), 10),
		Title:    parsed.Title,
		Category: category,
		Summary:  parsed.Summary,
		Content:  parsed.Content,
	}
	if result.Title == "" {
		result.Title = fallbackTitle
	}
	if result.Category == "" {
		result.Category = DefaultCategory
	}
	if result.Summary == "" {
		result.Summary = prefix(raw, summaryPreview) + "..."
	}
	if result.Content == "" {
		result.Content = raw
	}
	return result
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
