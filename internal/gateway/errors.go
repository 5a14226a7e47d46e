package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/seanblong/pdfchat/internal/ai"
	"github.com/seanblong/pdfchat/internal/apperr"
)

// Classify maps a provider failure onto an error kind. Structured provider
// statuses are consulted first; the message is only inspected when they say
// nothing more specific.
func Classify(err error) apperr.Kind {
	if err == nil {
		return apperr.ProviderFailure
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Kind
	}

	var pe *ai.ProviderError
	if errors.As(err, &pe) {
		if kind, ok := classifyStatus(pe.StatusCode, pe.Status); ok {
			return kind
		}
	}

	return classifyMessage(err.Error())
}

func classifyStatus(code int, status string) (apperr.Kind, bool) {
	switch {
	case code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
		return apperr.RateLimited, true
	case code == http.StatusUnauthorized || code == http.StatusForbidden ||
		status == "UNAUTHENTICATED" || status == "PERMISSION_DENIED":
		return apperr.InvalidCredential, true
	case code == http.StatusNotFound || status == "NOT_FOUND":
		return apperr.InvalidModel, true
	case code == http.StatusRequestEntityTooLarge:
		return apperr.PayloadTooLarge, true
	}
	return 0, false
}

func classifyMessage(msg string) apperr.Kind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "api key"):
		return apperr.InvalidCredential
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return apperr.RateLimited
	case strings.Contains(msg, "model"):
		return apperr.InvalidModel
	case strings.Contains(msg, "content too long"):
		return apperr.PayloadTooLarge
	}
	return apperr.ProviderFailure
}
