package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/pdfchat/internal/apperr"
	"github.com/seanblong/pdfchat/pkg/models"
)

// multipartSlack covers form framing around the file itself.
const multipartSlack = 1 << 20

type documentMetadata struct {
	Pages int               `json:"pages"`
	Info  map[string]string `json:"info"`
}

type processPDFResponse struct {
	DocumentID string           `json:"documentId"`
	Text       string           `json:"text"`
	Chunks     []string         `json:"chunks"`
	Metadata   documentMetadata `json:"metadata"`
}

func (s *Server) processPDF(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := s.Extract(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(doc.Text) == "" {
		writeError(w, r, apperr.New(apperr.InvalidInput, "No text content found in PDF"))
		return
	}

	chunks := s.Chunker.Chunk(doc.Text)
	info := doc.Metadata
	if info == nil {
		info = map[string]string{}
	}
	resp := processPDFResponse{
		DocumentID: uuid.New().String(),
		Text:       doc.Text,
		Chunks:     models.Texts(chunks),
		Metadata:   documentMetadata{Pages: doc.PageCount, Info: info},
	}
	hlog.FromRequest(r).Info().Str("document_id", resp.DocumentID).
		Int("pages", doc.PageCount).
		Int("chunks", len(chunks)).
		Int("size", len(data)).
		Msg("processed pdf")
	writeJSON(w, r, http.StatusOK, resp)
}

// readUpload returns the bytes of the multipart "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			return nil, s.uploadTooLarge(err)
		}
		if errors.Is(err, http.ErrMissingFile) {
			return nil, apperr.New(apperr.InvalidInput, "No file provided")
		}
		return nil, &apperr.Error{Kind: apperr.InvalidInput, Msg: "Invalid multipart form", Err: err}
	}
	defer func() { _ = f.Close() }()

	if ct := hdr.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/pdf" {
			return nil, apperr.New(apperr.InvalidInput, "File must be a PDF")
		}
	}
	if hdr.Size > limit {
		return nil, s.uploadTooLarge(nil)
	}

	data, err := readLimited(f, limit)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, s.uploadTooLarge(nil)
	}
	return data, nil
}

// readLimited reads at most limit+1 bytes of r so the caller can tell an
// oversized upload apart from one that fits exactly.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.InvalidInput, Msg: "Failed to read uploaded file", Err: err}
	}
	return data, nil
}

func (s *Server) uploadTooLarge(err error) error {
	return &apperr.Error{
		Kind: apperr.PayloadTooLarge,
		Msg:  fmt.Sprintf("file exceeds the %d byte upload limit", s.MaxUploadBytes),
		Err:  err,
	}
}
