package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chakravarthigit/law-backend/internal/observability"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-1.5-flash-latest"

// GeminiClient serves completions from Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	params Params
}

// NewGeminiClient returns a client that only ever falls back when apiKey is
// empty.
func NewGeminiClient(ctx context.Context, apiKey string, params Params) (*GeminiClient, error) {
	if params.Model == "" || params.Model == DefaultModel {
		params.Model = DefaultGeminiModel
	}
	if apiKey == "" {
		return &GeminiClient{params: params}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, params: params}, nil
}

func (s *GeminiClient) Name() string { return "gemini" }

func (s *GeminiClient) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		} else {
			log.Println("GenAI client closed.")
		}
	}
}

func (s *GeminiClient) Complete(ctx context.Context, messages []Message, opts ...Option) string {
	start := time.Now()
	callCtx, cancel := withDefaultDeadline(ctx, DefaultRequestTimeout)
	defer cancel()

	text, err := s.complete(callCtx, messages, Resolve(s.params, opts...))
	if err != nil {
		log.Printf("Gemini completion error: %v", err)
		if callerTimedOut(ctx) {
			return FallbackResponse()
		}
		observability.ObserveCompletion(s.Name(), observability.OutcomeFallback, time.Since(start))
		return FallbackResponse()
	}
	observability.ObserveCompletion(s.Name(), observability.OutcomeOK, time.Since(start))
	return text
}

func (s *GeminiClient) complete(ctx context.Context, messages []Message, p Params) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("gemini API key is not configured")
	}

	system, history, last, err := splitForGemini(messages)
	if err != nil {
		return "", err
	}

	model := s.client.GenerativeModel(p.Model)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	maxTokens := int32(p.MaxTokens)
	temp := float32(p.Temperature)
	topP := float32(p.TopP)
	topK := int32(p.TopK)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
		TopP:            &topP,
		TopK:            &topK,
	}

	chatSession := model.StartChat()
	chatSession.History = history

	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response was empty or had no valid candidates")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}
	if responseText.Len() == 0 {
		return "", fmt.Errorf("gemini response had no text parts")
	}
	return responseText.String(), nil
}

// splitForGemini folds system messages into one instruction and maps the
// remaining turns onto Gemini's user/model roles. The final turn must come
// from the user.
func splitForGemini(messages []Message) (string, []*genai.Content, *genai.Content, error) {
	var system []string
	var turns []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	if len(turns) == 0 {
		return "", nil, nil, fmt.Errorf("prompt history is empty for chat completion")
	}
	last := turns[len(turns)-1]
	if last.Role != "user" {
		return "", nil, nil, fmt.Errorf("last message in history is not from 'user'")
	}
	return strings.Join(system, "\n\n"), turns[:len(turns)-1], last, nil
}
