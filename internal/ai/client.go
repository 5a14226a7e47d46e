package ai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// Client generates text from a prompt, either in one piece or as a stream of
// fragments.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	// GenerateStream returns a lazy, single-use sequence of fragments. A non-nil
	// error ends the sequence; breaking out of the loop stops generation.
	GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Request is a single generation call. Credentials travel with the request
// since every user supplies their own key.
type Request struct {
	APIKey string
	Model  string
	Prompt string
}

// Provider is enumeration of supported AI providers
type Provider string

const (
	ProviderGemini   Provider = "gemini"
	ProviderVertexAI Provider = "vertexai"
	ProviderOpenAI   Provider = "openai"
	ProviderStub     Provider = "stub"
)

// ClientConfig holds configuration for AI clients
type ClientConfig struct {
	Provider        Provider
	ProjectID       string
	Location        string
	BaseURL         string
	Temperature     *float32
	MaxOutputTokens int32
}

// ProviderError is a failure reported by the provider with a structured status.
type ProviderError struct {
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewClient creates a new AI client based on configuration
func NewClient(config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	switch config.Provider {
	case ProviderGemini, ProviderVertexAI:
		return NewGeminiClient(config)
	case ProviderOpenAI:
		return NewOpenAIClient(config), nil
	case ProviderStub:
		return NewStubClient(), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}

// ParseProvider maps user-facing provider names onto a Provider.
func ParseProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini", "google":
		return ProviderGemini, nil
	case "vertexai", "vertex":
		return ProviderVertexAI, nil
	case "openai":
		return ProviderOpenAI, nil
	case "stub":
		return ProviderStub, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", name)
	}
}

// StubClient is an offline Client for local development and tests. It answers
// with the tail of the prompt.
type StubClient struct{}

// NewStubClient creates a new StubClient
func NewStubClient() *StubClient {
	return &StubClient{}
}

// Generate implements the generation functionality
func (s *StubClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "[" + req.Model + "] " + echo(lastParagraph(req.Prompt)), nil
}

// GenerateStream yields the Generate answer one word at a time
func (s *StubClient) GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		text, err := s.Generate(ctx, req)
		if err != nil {
			yield("", err)
			return
		}
		words := strings.Fields(text)
		for i, w := range words {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if i < len(words)-1 {
				w += " "
			}
			if !yield(w, nil) {
				return
			}
		}
	}
}

// lastParagraph returns the last non-empty blank-line separated block of s
func lastParagraph(s string) string {
	parts := strings.Split(strings.TrimSpace(s), "\n\n")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}

// stubEchoRunes caps how much of the prompt the stub echoes back.
const stubEchoRunes = 240

// echo collapses whitespace in s and clips it, marking a clipped reply with "...".
func echo(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > stubEchoRunes {
		return string(r[:stubEchoRunes]) + "..."
	}
	return s
}
