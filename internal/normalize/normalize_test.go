package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestShortenLeavesShortTextAlone(t *testing.T) {
	inputs := []string{
		"",
		"A lease is a contract. It has terms. It ends. It renews.",
		strings.Repeat("x", 499),
	}
	for _, in := range inputs {
		if got := Shorten(in); got != in {
			t.Fatalf("Shorten changed short input %q to %q", in, got)
		}
	}
}

func TestShortenBulletsLongProse(t *testing.T) {
	sentences := []string{
		"A residential lease is a binding contract between a landlord and a tenant for the use of property",
		"The landlord must keep the premises habitable and make repairs within a reasonable time",
		"Yes",
		"The tenant must pay rent on time and avoid causing damage beyond normal wear and tear",
		"Security deposits are usually capped by state law and must be returned after move out",
		"Either party may end a periodic tenancy by giving written notice as required by statute",
		"Retaliatory eviction is prohibited in most jurisdictions when a tenant reports code violations.",
	}
	text := strings.Join(sentences, ". ")
	if utf8.RuneCountInString(text) < 500 {
		t.Fatalf("fixture too short: %d", len(text))
	}

	got := Shorten(text)
	lines := strings.Split(got, "\n")

	var want []string
	for _, s := range sentences {
		if len(s) > minSentenceLength {
			want = append(want, "• "+s)
		}
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestShortenTruncatesBulletedText(t *testing.T) {
	text := "- " + strings.Repeat("This clause applies to every tenant. ", 40)

	got := Shorten(text)
	if !strings.HasSuffix(got, TruncationNote) {
		t.Fatalf("expected truncation note, got %q", got)
	}
	head := strings.TrimSuffix(got, TruncationNote)
	if !strings.HasSuffix(head, ".") {
		t.Fatalf("truncated text should end on a full stop: %q", head)
	}
	if utf8.RuneCountInString(head) > truncateThreshold {
		t.Fatalf("truncated text too long: %d", utf8.RuneCountInString(head))
	}
	if !strings.HasPrefix(text, head) {
		t.Fatal("truncated text is not a prefix of the input")
	}
}

func TestShortenKeepsMidLengthFewSentences(t *testing.T) {
	text := strings.Repeat("a", 600) + ". The end."
	if got := Shorten(text); got != text {
		t.Fatalf("expected unchanged text, got %q", got)
	}

	noStop := "• " + strings.Repeat("b", 1200)
	if got := Shorten(noStop); got != noStop {
		t.Fatal("text without a full stop should not be truncated")
	}
}

func TestExtractSearchResultLabelled(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	raw := "Title: Noise Ordinance\n\nSummary: Restricts noise after 10pm.\n\nContent: Applies to residential zones and carries fines."

	got := ExtractSearchResult(raw, "noise rules", "", now)

	if got.Title != "Noise Ordinance" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.Summary != "Restricts noise after 10pm." {
		t.Fatalf("summary = %q", got.Summary)
	}
	if strings.TrimSpace(got.Content) == "" {
		t.Fatal("content should not be empty")
	}
	if got.Category != DefaultCategory {
		t.Fatalf("category = %q", got.Category)
	}
	if got.ID != "1700000000123" {
		t.Fatalf("id = %q", got.ID)
	}
}

func TestExtractSearchResultStructured(t *testing.T) {
	raw := "Here is the result:\n{\"title\":\"GDPR\",\"summary\":\"EU data protection law\",\"extra\":1}\nHope this helps."

	parsed := ParseSearchText(raw)
	if parsed.Kind != KindStructured {
		t.Fatalf("kind = %v, want structured", parsed.Kind)
	}

	got := ExtractSearchResult(raw, "gdpr", "Privacy", time.Now())
	if got.Title != "GDPR" || got.Summary != "EU data protection law" {
		t.Fatalf("typed fields not filled: %+v", got)
	}

	encoded, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["extra"]; !ok {
		t.Fatalf("structured result should be served verbatim: %s", encoded)
	}
	if _, ok := decoded["category"]; ok {
		t.Fatalf("structured result should not gain fields: %s", encoded)
	}
}

func TestParseSearchTextBrokenJSONFallsThrough(t *testing.T) {
	raw := "Law: Fair Housing Act {draft}\n\nSummary: Bars discrimination in housing.\n\nReferences: 42 U.S.C. 3601"

	parsed := ParseSearchText(raw)
	if parsed.Kind != KindUnstructured {
		t.Fatalf("kind = %v, want unstructured", parsed.Kind)
	}
	if parsed.Title != "Fair Housing Act {draft}" {
		t.Fatalf("title = %q", parsed.Title)
	}
	if parsed.Summary != "Bars discrimination in housing." {
		t.Fatalf("summary = %q", parsed.Summary)
	}
}

func TestExtractSearchResultDefaults(t *testing.T) {
	raw := "- a bullet first\n\nTopic: Lease Law\n\n" + strings.Repeat("Leases define rights. ", 10)

	got := ExtractSearchResult(raw, "lease", "Housing", time.Now())
	if got.Title != "Lease Law" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.Category != "Housing" {
		t.Fatalf("category = %q", got.Category)
	}
	want := string([]rune(raw)[:summaryPreview]) + "..."
	if got.Summary != want {
		t.Fatalf("summary = %q, want %q", got.Summary, want)
	}

	empty := ExtractSearchResult("", "lease", "", time.Now())
	if empty.Title != "lease" || empty.Summary != "..." {
		t.Fatalf("unexpected empty result: %+v", empty)
	}
	if ParseSearchText("  \n").Kind != KindEmpty {
		t.Fatal("blank text should parse as empty")
	}
}

func TestExtractNewsItemsTwoParagraphs(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	raw := "Supreme Court rules on privacy (March 3, 2024)\nThe court held that warrantless phone searches are unlawful.\n\n" +
		"New tenant protection law\nDate: January 2024\nLandlords must now provide 60 days notice."

	items := ExtractNewsItems(raw, "", now)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}

	first, second := items[0], items[1]
	if first.Title != "Supreme Court rules on privacy" || first.Date != "March 3, 2024" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.Summary != "The court held that warrantless phone searches are unlawful." {
		t.Fatalf("first summary = %q", first.Summary)
	}
	if second.Title != "New tenant protection law" || second.Date != "January 2024" {
		t.Fatalf("unexpected second item: %+v", second)
	}
	if second.Summary != "Landlords must now provide 60 days notice." {
		t.Fatalf("second summary = %q", second.Summary)
	}

	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	if first.ID != stamp+"0" || second.ID != stamp+"1" {
		t.Fatalf("unexpected ids %q %q", first.ID, second.ID)
	}
}

func TestExtractNewsItemsDefaults(t *testing.T) {
	items := ExtractNewsItems("Court update on zoning\n12/05/2024", "", time.Now())
	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Date != "12/05/2024" {
		t.Fatalf("date = %q", items[0].Date)
	}
	if items[0].Summary != DefaultNewsSummary {
		t.Fatalf("summary = %q", items[0].Summary)
	}

	items = ExtractNewsItems("Legislature passes budget bill", "", time.Now())
	if items[0].Date != DefaultNewsDate {
		t.Fatalf("date = %q, want %q", items[0].Date, DefaultNewsDate)
	}
}

func TestExtractNewsItemsFallback(t *testing.T) {
	raw := "Too short\n\nNope"

	items := ExtractNewsItems(raw, "Housing", time.Now())
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Summary != raw {
		t.Fatalf("summary = %q, want raw input", items[0].Summary)
	}
	if items[0].Title != "Recent Housing Updates" || items[0].Date != DefaultNewsDate {
		t.Fatalf("unexpected fallback item: %+v", items[0])
	}

	if got := ExtractNewsItems("", "", time.Now()); got[0].Title != "Recent Legal Updates" {
		t.Fatalf("unexpected generic fallback title %q", got[0].Title)
	}
}
