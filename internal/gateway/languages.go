package gateway

import (
	"strings"

	"github.com/seanblong/pdfchat/pkg/models"
)

var languages = []models.Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "it", Name: "Italian"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ru", Name: "Russian"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "zh", Name: "Chinese (Simplified)"},
	{Code: "ar", Name: "Arabic"},
	{Code: "hi", Name: "Hindi"},
	{Code: "tr", Name: "Turkish"},
	{Code: "pl", Name: "Polish"},
	{Code: "nl", Name: "Dutch"},
}

// Languages returns the supported translation targets in display order.
func Languages() []models.Language {
	return append([]models.Language(nil), languages...)
}

// LookupLanguage resolves a language code or display name, ignoring case.
func LookupLanguage(s string) (models.Language, bool) {
	s = strings.TrimSpace(s)
	for _, l := range languages {
		if strings.EqualFold(s, l.Code) || strings.EqualFold(s, l.Name) {
			return l, true
		}
	}
	return models.Language{}, false
}
