package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/pdfchat/internal/apperr"
	"github.com/seanblong/pdfchat/internal/chunker"
	"github.com/seanblong/pdfchat/internal/gateway"
	"github.com/seanblong/pdfchat/internal/pdf"
	"github.com/seanblong/pdfchat/internal/search"
	"github.com/seanblong/pdfchat/internal/settings"
)

// DefaultMaxBodyBytes bounds JSON request bodies.
const DefaultMaxBodyBytes = 32 << 20

// Defaults are the server-side fallbacks for values a request may omit.
type Defaults struct {
	APIKey string
	Model  string
}

// Server serves the document and generation routes. It keeps no per-request
// state; the client sends the document chunks with every chat request.
type Server struct {
	Gateway        *gateway.Gateway
	Search         *search.Service
	Chunker        *chunker.Chunker
	Settings       settings.Store
	Defaults       Defaults
	MaxUploadBytes int64
	MaxBodyBytes   int64
	Logger         zerolog.Logger

	// Extract is pdf.Extract unless replaced.
	Extract func([]byte) (pdf.Document, error)
}

// New returns a Server with the default extractor and body limits.
func New(gw *gateway.Gateway, svc *search.Service, ch *chunker.Chunker, st settings.Store, defaults Defaults, maxUploadBytes int64, logger zerolog.Logger) *Server {
	return &Server{
		Gateway:        gw,
		Search:         svc,
		Chunker:        ch,
		Settings:       st,
		Defaults:       defaults,
		MaxUploadBytes: maxUploadBytes,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		Logger:         logger,
		Extract:        pdf.Extract,
	}
}

// Routes registers every route on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	mux.HandleFunc("/api/process-pdf", post(s.processPDF))
	mux.HandleFunc("/api/gemini/chat", post(s.chat))
	mux.HandleFunc("/api/gemini/summarize", post(s.summarize))
	mux.HandleFunc("/api/gemini/translate", post(s.translate))
	mux.HandleFunc("/api/gemini/generate-questions", post(s.generateQuestions))

	mux.HandleFunc("/api/languages", s.languages)
	mux.HandleFunc("/api/settings", s.settings)
	return mux
}

// Handler wraps Routes with request IDs and access logging.
func (s *Server) Handler() http.Handler {
	logger := s.Logger
	return hlog.NewHandler(logger)(
		hlog.RequestIDHandler("req_id", "X-Request-Id")(
			hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
				hlog.FromRequest(r).Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
			})(s.Routes()),
		),
	)
}

func post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, r, http.StatusMethodNotAllowed, errorBody{
				Error: "Method not allowed. Use POST.",
				Code:  "method_not_allowed",
			})
			return
		}
		h(w, r)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps err onto its kind's status. Only the kind's user message
// reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	ev := hlog.FromRequest(r).Warn()
	if e.Kind == apperr.ProviderFailure {
		ev = hlog.FromRequest(r).Error()
	}
	ev.Err(err).Str("code", e.Kind.Code()).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, r, e.Kind.Status(), errorBody{Error: e.UserMessage(), Code: e.Kind.Code()})
}

// decode reads a JSON body of at most MaxBodyBytes into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if tooLarge(err) {
			return apperr.Wrap(apperr.PayloadTooLarge, err)
		}
		return &apperr.Error{Kind: apperr.InvalidInput, Msg: "Invalid JSON body", Err: err}
	}
	return nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

// credentials resolves the API key and model from the request, the settings
// store and the server defaults, in that order.
func (s *Server) credentials(apiKey, model string) (string, string) {
	return settings.Lookup(s.Settings, settings.KeyAPIKey, strings.TrimSpace(apiKey), s.Defaults.APIKey),
		settings.Lookup(s.Settings, settings.KeyModel, strings.TrimSpace(model), s.Defaults.Model)
}

func runeLen(s string) int { return len([]rune(s)) }
