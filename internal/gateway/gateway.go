package gateway

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/rs/zerolog"
	"github.com/seanblong/pdfchat/internal/ai"
	"github.com/seanblong/pdfchat/internal/apperr"
	"github.com/seanblong/pdfchat/pkg/models"
)

const (
	DefaultQuestionCount = 10
	MaxQuestionCount     = 20
)

type Options struct {
	// DefaultQuestionCount is used when a request does not ask for a number
	// of questions, and is the minimum the model is asked to generate.
	DefaultQuestionCount int
	Logger               zerolog.Logger
}

// Gateway builds prompts for each operation and normalizes provider failures
// into apperr kinds. It holds no per-request state.
type Gateway struct {
	client ai.Client
	opts   Options
}

func New(client ai.Client, opts Options) *Gateway {
	if opts.DefaultQuestionCount <= 0 {
		opts.DefaultQuestionCount = DefaultQuestionCount
	}
	return &Gateway{client: client, opts: opts}
}

// Chat answers req.Query from req.Context.
func (g *Gateway) Chat(ctx context.Context, req models.GenerationRequest) (string, error) {
	if err := ValidateChat(req); err != nil {
		return "", err
	}
	return g.generate(ctx, models.OpChat, req, ChatPrompt(req.Query, req.Context))
}

// ChatStream is Chat delivered as fragments. Provider failures arrive as the
// error of the final pair, already classified.
func (g *Gateway) ChatStream(ctx context.Context, req models.GenerationRequest) iter.Seq2[string, error] {
	if err := ValidateChat(req); err != nil {
		return func(yield func(string, error) bool) { yield("", err) }
	}

	stream := g.client.GenerateStream(ctx, ai.Request{
		APIKey: req.APIKey,
		Model:  req.Model,
		Prompt: ChatPrompt(req.Query, req.Context),
	})
	return func(yield func(string, error) bool) {
		n := 0
		for frag, err := range stream {
			if err != nil {
				yield("", g.fail(models.OpChat, req, err))
				return
			}
			n++
			if !yield(frag, nil) {
				g.opts.Logger.Debug().Int("fragments", n).Msg("stream consumer stopped")
				return
			}
		}
		g.opts.Logger.Debug().Int("fragments", n).Str("model", req.Model).Msg("stream complete")
	}
}

// Summarize summarizes the whole of req.Content.
func (g *Gateway) Summarize(ctx context.Context, req models.GenerationRequest) (string, error) {
	if err := validate(req, "content", req.Content); err != nil {
		return "", err
	}
	return g.generate(ctx, models.OpSummarize, req, SummaryPrompt(req.Content))
}

// Translate translates req.Content into req.TargetLanguage, given as a code or
// a display name.
func (g *Gateway) Translate(ctx context.Context, req models.GenerationRequest) (string, error) {
	if err := validate(req, "content", req.Content, "targetLanguage", req.TargetLanguage); err != nil {
		return "", err
	}
	lang, ok := LookupLanguage(req.TargetLanguage)
	if !ok {
		return "", apperr.New(apperr.InvalidInput, fmt.Sprintf("Unsupported target language: %s", req.TargetLanguage))
	}
	return g.generate(ctx, models.OpTranslate, req, TranslatePrompt(req.Content, lang.Name))
}

// GenerateQuestions asks for at least the default number of questions and
// returns no more than were requested.
func (g *Gateway) GenerateQuestions(ctx context.Context, req models.GenerationRequest) (models.Questions, error) {
	if err := validate(req, "content", req.Content); err != nil {
		return models.Questions{}, err
	}
	requested := req.QuestionCount
	if requested == 0 {
		requested = g.opts.DefaultQuestionCount
	}
	if requested < 1 || requested > MaxQuestionCount {
		return models.Questions{}, apperr.New(apperr.InvalidInput,
			fmt.Sprintf("Question count must be a number between 1 and %d", MaxQuestionCount))
	}

	text, err := g.generate(ctx, models.OpGenerateQuestions, req, QuestionsPrompt(req.Content, max(requested, g.opts.DefaultQuestionCount)))
	if err != nil {
		return models.Questions{}, err
	}

	all := ParseQuestions(text)
	return models.Questions{
		Questions:      all[:min(requested, len(all))],
		TotalGenerated: len(all),
		Requested:      requested,
	}, nil
}

func (g *Gateway) generate(ctx context.Context, op models.Operation, req models.GenerationRequest, prompt string) (string, error) {
	out, err := g.client.Generate(ctx, ai.Request{APIKey: req.APIKey, Model: req.Model, Prompt: prompt})
	if err != nil {
		return "", g.fail(op, req, err)
	}
	g.opts.Logger.Debug().Str("op", string(op)).Str("model", req.Model).
		Int("prompt_len", len(prompt)).Int("output_len", len(out)).Msg("generation complete")
	return out, nil
}

func (g *Gateway) fail(op models.Operation, req models.GenerationRequest, err error) error {
	kind := Classify(err)
	err = redact(err, req.APIKey)
	g.opts.Logger.Error().Err(err).Str("op", string(op)).Str("model", req.Model).
		Str("kind", kind.Code()).Msg("provider call failed")
	return apperr.Wrap(kind, err)
}

// redactedError hides a credential in the text of err while keeping the
// chain for errors.As.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "[REDACTED]"), err: err}
}

// ValidateChat reports the invalid-input error Chat and ChatStream would
// return for req, if any.
func ValidateChat(req models.GenerationRequest) error {
	if err := validate(req, "query", req.Query); err != nil {
		return err
	}
	if strings.TrimSpace(req.Context) == "" {
		return apperr.New(apperr.InvalidInput, "No document context to answer from")
	}
	return nil
}

// validate checks the credential, the model and the given name/value pairs.
func validate(req models.GenerationRequest, fields ...string) error {
	var missing []string
	if strings.TrimSpace(req.APIKey) == "" {
		missing = append(missing, "apiKey")
	}
	if strings.TrimSpace(req.Model) == "" {
		missing = append(missing, "model")
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			missing = append(missing, fields[i])
		}
	}
	if len(missing) > 0 {
		return apperr.New(apperr.InvalidInput, "Missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}
