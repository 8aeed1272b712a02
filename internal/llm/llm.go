package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/chakravarthigit/law-backend/internal/observability"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client produces assistant text for a message list. Implementations never
// return an error: upstream failures degrade to a fallback text.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts ...Option) string
	Name() string
}

const DefaultModel = "mistralai/Mixtral-8x7B-Instruct-v0.1"

// Params is the sampling configuration sent with every completion request.
type Params struct {
	Model             string
	MaxTokens         int
	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
}

func DefaultParams() Params {
	return Params{
		Model:             DefaultModel,
		MaxTokens:         1000,
		Temperature:       0.6,
		TopP:              0.9,
		TopK:              40,
		RepetitionPenalty: 1.1,
	}
}

// Option overrides a single key of Params.
type Option func(*Params)

func WithModel(model string) Option {
	return func(p *Params) { p.Model = model }
}

func WithMaxTokens(n int) Option {
	return func(p *Params) { p.MaxTokens = n }
}

func WithTemperature(t float64) Option {
	return func(p *Params) { p.Temperature = t }
}

func WithTopP(v float64) Option {
	return func(p *Params) { p.TopP = v }
}

func WithTopK(k int) Option {
	return func(p *Params) { p.TopK = k }
}

func WithRepetitionPenalty(v float64) Option {
	return func(p *Params) { p.RepetitionPenalty = v }
}

// Resolve applies opts over base, key by key.
func Resolve(base Params, opts ...Option) Params {
	p := base
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	return p
}

var fallbackResponses = []string{
	"I apologize, but I'm currently experiencing technical difficulties. Please try again in a moment.",
	"I'm having trouble connecting to my knowledge base. Could you please repeat your question later?",
	"Sorry, there seems to be a temporary issue with my service. Please try again shortly.",
	"My systems are currently experiencing high traffic. Please try your question again in a few minutes.",
}

// TimeoutResponse is returned when a completion does not settle in time.
const TimeoutResponse = "I apologize, but I'm having some trouble processing your request right now. Please try again shortly."

// FallbackResponse picks one of the apology texts at random.
func FallbackResponse() string {
	return fallbackResponses[rand.IntN(len(fallbackResponses))]
}

// FallbackResponses returns a copy of the apology texts.
func FallbackResponses() []string {
	out := make([]string, len(fallbackResponses))
	copy(out, fallbackResponses)
	return out
}

// DefaultRequestTimeout bounds a provider call when the caller's context has
// no deadline of its own.
const DefaultRequestTimeout = 30 * time.Second

func withDefaultDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// callerTimedOut reports whether the caller's own deadline ended the call.
// Such calls are counted as timeouts by CompleteWithTimeout, not as
// provider fallbacks.
func callerTimedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// CompleteWithTimeout bounds a completion by timeout. The deadline is carried
// by the context handed to the client, so the outbound request is cancelled
// when it fires, and the caller receives TimeoutResponse.
func CompleteWithTimeout(ctx context.Context, client Client, messages []Message, timeout time.Duration, opts ...Option) string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		done <- client.Complete(ctx, messages, opts...)
	}()

	select {
	case text := <-done:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			observability.CompletionOutcomes.WithLabelValues(client.Name(), observability.OutcomeTimeout).Inc()
			return TimeoutResponse
		}
		return text
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			observability.CompletionOutcomes.WithLabelValues(client.Name(), observability.OutcomeTimeout).Inc()
			return TimeoutResponse
		}
		return FallbackResponse()
	}
}
