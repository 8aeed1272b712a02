package core

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chakravarthigit/law-backend/internal/llm"
	"github.com/chakravarthigit/law-backend/internal/normalize"
)

const (
	searchSystemPrompt = "You are CARA, a Legal Assistant providing factual legal information. " +
		"You provide direct, concise information about laws and legal topics in a structured format suitable for search results. " +
		"Always cite legal standards or sources when available. " +
		"If information is not reliable or available, clearly state this rather than making assumptions."

	newsSystemPrompt = "You are CARA, a Legal Assistant providing factual legal information. " +
		"You provide recent, factual news about laws and legal developments. " +
		"Always include approximate dates when possible. " +
		"If recent information is not available, clearly state this rather than making up details."

	allCategories  = "All"
	minQueryLength = 2
)

// ResearchService answers law search and law news requests.
type ResearchService struct {
	client llm.Client
	now    func() time.Time
}

func NewResearchService(client llm.Client) *ResearchService {
	return &ResearchService{client: client, now: time.Now}
}

// SearchLaws asks the model about query and returns the parsed result.
func (s *ResearchService) SearchLaws(ctx context.Context, query, category string) ([]normalize.SearchResult, error) {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < minQueryLength {
		return nil, invalid("Please provide a valid search query (at least 2 characters)")
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: searchSystemPrompt},
		{Role: llm.RoleUser, Content: searchPrompt(query, category)},
	}
	raw := s.client.Complete(ctx, messages, llm.WithTemperature(0.3), llm.WithMaxTokens(1200))

	result := normalize.ExtractSearchResult(raw, query, category, s.now())
	return []normalize.SearchResult{result}, nil
}

func searchPrompt(query, category string) string {
	var b strings.Builder
	b.WriteString(`Provide factual information about the following legal topic or law: "` + query + `"`)
	if category != "" && category != allCategories {
		b.WriteString(" in the context of " + category + ".")
	}
	b.WriteString(" Include only verified, factual information, focusing on:")
	b.WriteString("\n1. Brief, factual definition and purpose of the law")
	b.WriteString("\n2. Key provisions, rights, or requirements")
	b.WriteString("\n3. Relevant legal references or citations")
	b.WriteString("\n4. Any important exceptions or limitations")
	b.WriteString("\nFormat as a structured search result with title, summary, and content sections. ")
	b.WriteString("If you cannot find reliable information, state this clearly.")
	return b.String()
}

// LawsNews asks the model for recent legal developments, optionally within
// category.
func (s *ResearchService) LawsNews(ctx context.Context, category string) ([]normalize.NewsItem, error) {
	if category == allCategories {
		category = ""
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: newsSystemPrompt},
		{Role: llm.RoleUser, Content: newsPrompt(category)},
	}
	raw := s.client.Complete(ctx, messages, llm.WithTemperature(0.3), llm.WithMaxTokens(1000))

	return normalize.ExtractNewsItems(raw, category, s.now()), nil
}

func newsPrompt(category string) string {
	var b strings.Builder
	b.WriteString("Provide the latest news and updates about laws and legal developments")
	if category != "" {
		b.WriteString(" related to " + category)
	}
	b.WriteString(". Include information about recent legislative changes, court decisions, or legal trends. For each news item, provide:")
	b.WriteString("\n1. A descriptive title")
	b.WriteString("\n2. Approximate date of the development")
	b.WriteString("\n3. A brief summary (2-3 sentences)")
	b.WriteString("\nLimit to 3-5 most relevant and recent items. If you cannot find reliable recent information, state this clearly.")
	return b.String()
}
