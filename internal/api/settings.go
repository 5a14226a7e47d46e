package api

import (
	"net/http"
	"strings"

	"github.com/seanblong/pdfchat/internal/apperr"
	"github.com/seanblong/pdfchat/internal/gateway"
	"github.com/seanblong/pdfchat/internal/settings"
)

func (s *Server) languages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, r, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed. Use GET.", Code: "method_not_allowed"})
		return
	}
	writeJSON(w, r, http.StatusOK, gateway.Languages())
}

type settingsResponse struct {
	Model     string   `json:"model"`
	HasAPIKey bool     `json:"hasApiKey"`
	Models    []string `json:"models"`
}

type settingsUpdate struct {
	APIKey *string `json:"apiKey"`
	Model  *string `json:"model"`
}

func (s *Server) settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		apiKey, model := s.credentials("", "")
		writeJSON(w, r, http.StatusOK, settingsResponse{
			Model:     model,
			HasAPIKey: apiKey != "",
			Models:    settings.Models,
		})
	case http.MethodPut, http.MethodPost:
		var body settingsUpdate
		if err := s.decode(w, r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		if body.APIKey == nil && body.Model == nil {
			writeError(w, r, apperr.New(apperr.InvalidInput, "Nothing to save: provide apiKey or model"))
			return
		}
		if s.Settings == nil {
			writeJSON(w, r, http.StatusOK, map[string]bool{"saved": false})
			return
		}

		saved := true
		if body.APIKey != nil {
			saved = s.Settings.Set(settings.KeyAPIKey, strings.TrimSpace(*body.APIKey)) && saved
		}
		if body.Model != nil {
			saved = s.Settings.Set(settings.KeyModel, strings.TrimSpace(*body.Model)) && saved
		}
		writeJSON(w, r, http.StatusOK, map[string]bool{"saved": saved})
	default:
		w.Header().Set("Allow", "GET, PUT")
		writeJSON(w, r, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed. Use GET or PUT.", Code: "method_not_allowed"})
	}
}
