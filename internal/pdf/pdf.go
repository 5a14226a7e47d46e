// Package pdf extracts plain text and document metadata from PDF bytes.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/pdfchat/internal/apperr"
)

var header = []byte("%PDF-")

type Document struct {
	Text      string
	PageCount int
	// Metadata holds the entries of the document information dictionary,
	// such as Title, Author and Producer.
	Metadata map[string]string
}

// Extract parses data as a PDF. Failures carry apperr.InvalidFileFormat, or
// apperr.PasswordProtected for documents that need a password to open. Pages
// whose text cannot be decoded are skipped.
func Extract(data []byte) (doc Document, err error) {
	if !bytes.HasPrefix(data, header) {
		return Document{}, apperr.Wrap(apperr.InvalidFileFormat, errors.New("missing %PDF- header"))
	}

	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			doc = Document{}
			err = apperr.Wrap(apperr.InvalidFileFormat, fmt.Errorf("malformed PDF: %v", r))
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, readerError(err)
	}

	n := r.NumPage()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("skipping page")
			continue
		}
		if b.Len() > 0 && text != "" {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}

	return Document{
		Text:      b.String(),
		PageCount: n,
		Metadata:  metadata(r),
	}, nil
}

// ExtractFile reads and extracts the PDF at path.
func ExtractFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Extract(data)
}

func readerError(err error) error {
	if errors.Is(err, lpdf.ErrInvalidPassword) || strings.Contains(strings.ToLower(err.Error()), "encrypt") {
		return apperr.Wrap(apperr.PasswordProtected, err)
	}
	return apperr.Wrap(apperr.InvalidFileFormat, err)
}

func metadata(r *lpdf.Reader) map[string]string {
	out := make(map[string]string)
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return out
	}
	for _, k := range info.Keys() {
		if v := strings.TrimSpace(info.Key(k).Text()); v != "" {
			out[k] = v
		}
	}
	return out
}
