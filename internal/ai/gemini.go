package ai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

type GeminiClient struct {
	config *ClientConfig
	dial   func(context.Context, *genai.ClientConfig) (*genai.Client, error)
}

// defaultVertexLocation is used when a Vertex AI project is configured
// without a location.
const defaultVertexLocation = "us-central1"

// NewGeminiClient creates a client for the Google Gemini API, or for Vertex AI
// when the provider is ProviderVertexAI. The underlying genai client is built
// per request because each request carries its own API key.
func NewGeminiClient(config *ClientConfig) (*GeminiClient, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if config.Provider == "" {
		config.Provider = ProviderGemini
	}

	return &GeminiClient{config: config, dial: genai.NewClient}, nil
}

// clientConfig picks the credentials for one request. Vertex AI takes either a
// project (with application default credentials) or an API key in express
// mode, never both: a configured project wins and the request key is not sent.
func (c *GeminiClient) clientConfig(apiKey string) *genai.ClientConfig {
	cc := genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}
	if c.config.Provider == ProviderVertexAI {
		cc.Backend = genai.BackendVertexAI
		if project := strings.TrimSpace(c.config.ProjectID); project != "" {
			cc.Project = project
			cc.Location = strings.TrimSpace(c.config.Location)
			if cc.Location == "" {
				cc.Location = defaultVertexLocation
			}
			return &cc
		}
	}
	if strings.TrimSpace(apiKey) != "" {
		cc.APIKey = apiKey
	}
	return &cc
}

// newClient builds the genai client. The constructor error is not wrapped:
// genai prints the whole config, credentials included, into it.
func (c *GeminiClient) newClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	cc := c.clientConfig(apiKey)
	client, err := c.dial(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client for backend %v: check provider project, location and credentials", c.config.Provider, cc.Backend)
	}
	return client, nil
}

func (c *GeminiClient) contentConfig() *genai.GenerateContentConfig {
	if c.config.Temperature == nil && c.config.MaxOutputTokens == 0 {
		return nil
	}
	return &genai.GenerateContentConfig{
		Temperature:     c.config.Temperature,
		MaxOutputTokens: c.config.MaxOutputTokens,
	}
}

// Generate implements the generation functionality using the Gemini API
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	client, err := c.newClient(ctx, req.APIKey)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), c.contentConfig())
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", providerError(err))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no text returned")
	}
	return text, nil
}

// GenerateStream implements streaming generation using the Gemini API. Empty
// fragments are skipped.
func (c *GeminiClient) GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		client, err := c.newClient(ctx, req.APIKey)
		if err != nil {
			yield("", err)
			return
		}

		for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, genai.Text(req.Prompt), c.contentConfig()) {
			if err != nil {
				yield("", fmt.Errorf("stream failed: %w", providerError(err)))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// providerError lifts genai API errors into a ProviderError so callers can
// classify them without importing genai.
func providerError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ProviderError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message, Err: err}
	}
	return err
}
