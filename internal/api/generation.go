package api

import (
	"net/http"

	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/pdfchat/internal/apperr"
	"github.com/seanblong/pdfchat/internal/gateway"
	"github.com/seanblong/pdfchat/internal/relay"
	"github.com/seanblong/pdfchat/internal/render"
	"github.com/seanblong/pdfchat/pkg/models"
)

const formatHTML = "html"

type chatRequest struct {
	Query  string   `json:"query"`
	Chunks []string `json:"chunks"`
	APIKey string   `json:"apiKey"`
	Model  string   `json:"model"`
	Stream bool     `json:"stream"`
}

type chatResponse struct {
	Response       string `json:"response"`
	RelevantChunks int    `json:"relevantChunks"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := s.decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if len(body.Chunks) == 0 {
		writeError(w, r, apperr.New(apperr.InvalidInput, "Chunks must be a non-empty array"))
		return
	}

	relevant, contextText := s.Search.Query(body.Query, models.FromTexts(body.Chunks))
	apiKey, model := s.credentials(body.APIKey, body.Model)
	req := models.GenerationRequest{
		Operation: models.OpChat,
		APIKey:    apiKey,
		Model:     model,
		Query:     body.Query,
		Context:   contextText,
	}
	if err := gateway.ValidateChat(req); err != nil {
		writeError(w, r, err)
		return
	}

	if body.Stream {
		s.chatStream(w, r, req)
		return
	}

	answer, err := s.Gateway.Chat(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chatResponse{Response: answer, RelevantChunks: len(relevant)})
}

// chatStream relays the answer as server-sent events. Once headers are sent,
// failures travel as an error frame.
func (s *Server) chatStream(w http.ResponseWriter, r *http.Request, req models.GenerationRequest) {
	sse, err := relay.NewSSEWriter(w)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	if err := relay.Relay(ctx, s.Gateway.ChatStream(ctx, req), sse.Emit); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("stream ended early")
	}
}

type contentRequest struct {
	Content        string `json:"content"`
	TargetLanguage string `json:"targetLanguage"`
	APIKey         string `json:"apiKey"`
	Model          string `json:"model"`
	QuestionCount  int    `json:"questionCount"`
	Format         string `json:"format"`
}

func (s *Server) generationRequest(op models.Operation, body contentRequest) models.GenerationRequest {
	apiKey, model := s.credentials(body.APIKey, body.Model)
	return models.GenerationRequest{
		Operation:      op,
		APIKey:         apiKey,
		Model:          model,
		Content:        body.Content,
		TargetLanguage: body.TargetLanguage,
		QuestionCount:  body.QuestionCount,
	}
}

type summaryResponse struct {
	Summary        string `json:"summary"`
	OriginalLength int    `json:"originalLength"`
	SummaryLength  int    `json:"summaryLength"`
	HTML           string `json:"html,omitempty"`
}

func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	var body contentRequest
	if err := s.decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := s.Gateway.Summarize(r.Context(), s.generationRequest(models.OpSummarize, body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := summaryResponse{
		Summary:        summary,
		OriginalLength: runeLen(body.Content),
		SummaryLength:  runeLen(summary),
	}
	if body.Format == formatHTML {
		resp.HTML = s.toHTML(r, summary)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type translateResponse struct {
	TranslatedText   string `json:"translatedText"`
	SourceLanguage   string `json:"sourceLanguage"`
	TargetLanguage   string `json:"targetLanguage"`
	OriginalLength   int    `json:"originalLength"`
	TranslatedLength int    `json:"translatedLength"`
	HTML             string `json:"html,omitempty"`
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request) {
	var body contentRequest
	if err := s.decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	text, err := s.Gateway.Translate(r.Context(), s.generationRequest(models.OpTranslate, body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	target := body.TargetLanguage
	if lang, ok := gateway.LookupLanguage(target); ok {
		target = lang.Name
	}
	resp := translateResponse{
		TranslatedText:   text,
		SourceLanguage:   "auto-detected",
		TargetLanguage:   target,
		OriginalLength:   runeLen(body.Content),
		TranslatedLength: runeLen(text),
	}
	if body.Format == formatHTML {
		resp.HTML = s.toHTML(r, text)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type questionsResponse struct {
	models.Questions
	ContentLength int `json:"contentLength"`
}

func (s *Server) generateQuestions(w http.ResponseWriter, r *http.Request) {
	var body contentRequest
	if err := s.decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	qs, err := s.Gateway.GenerateQuestions(r.Context(), s.generationRequest(models.OpGenerateQuestions, body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, questionsResponse{Questions: qs, ContentLength: runeLen(body.Content)})
}

// toHTML renders generated markdown. A rendering failure drops the HTML and
// keeps the plain text response.
func (s *Server) toHTML(r *http.Request, markdown string) string {
	html, err := render.ToHTML(markdown)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("markdown rendering failed")
		return ""
	}
	return html
}
