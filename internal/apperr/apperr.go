package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies every failure surfaced to a user.
type Kind int

const (
	ProviderFailure Kind = iota
	InvalidInput
	InvalidCredential
	RateLimited
	InvalidModel
	PayloadTooLarge
	InvalidFileFormat
	PasswordProtected
)

type kindInfo struct {
	code    string
	message string
	status  int
}

var kinds = map[Kind]kindInfo{
	ProviderFailure:   {"provider_failure", "Failed to generate a response. Please try again.", http.StatusInternalServerError},
	InvalidInput:      {"invalid_input", "The request is missing or has malformed fields.", http.StatusBadRequest},
	InvalidCredential: {"invalid_credential", "Invalid API key. Please check your Gemini API key.", http.StatusUnauthorized},
	RateLimited:       {"rate_limited", "API rate limit exceeded. Please try again later.", http.StatusTooManyRequests},
	InvalidModel:      {"invalid_model", "Invalid model specified. Please check the model name.", http.StatusBadRequest},
	PayloadTooLarge:   {"payload_too_large", "Content is too long. Please try with a smaller document.", http.StatusRequestEntityTooLarge},
	InvalidFileFormat: {"invalid_file_format", "Invalid PDF file format.", http.StatusBadRequest},
	PasswordProtected: {"password_protected_file", "Password-protected PDFs are not supported.", http.StatusBadRequest},
}

// Code returns the stable machine-readable code for k.
func (k Kind) Code() string { return kinds[k].code }

// Message returns the user-facing message for k.
func (k Kind) Message() string { return kinds[k].message }

// Status returns the HTTP status used when k reaches a handler.
func (k Kind) Status() int { return kinds[k].status }

func (k Kind) String() string { return k.Code() }

// Error carries a Kind alongside an optional detail message and cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Message()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.New(k, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// UserMessage is what handlers show: the detail for invalid input, the stable
// kind message for everything else.
func (e *Error) UserMessage() string {
	if e.Kind == InvalidInput && e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Message()
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the Kind carried by err, or ProviderFailure for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ProviderFailure
}

// As returns err as an *Error, wrapping foreign errors as ProviderFailure.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(ProviderFailure, err)
}
