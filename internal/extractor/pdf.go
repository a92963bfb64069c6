// Package extractor turns uploaded PDF documents into corpus text.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"askpdf/internal/domain"
)

// Stats describes the last extraction run.
type Stats struct {
	Documents  int
	Pages      int
	EmptyPages int
	Characters int
}

// pageSource is an opened document.
type pageSource interface {
	NumPage() int
	// PageText returns the plain text of page i, counted from 1.
	PageText(i int) (string, error)
}

type openFunc func(data []byte) (pageSource, error)

// PDF extracts text page by page. Pages without decodable text count as empty.
type PDF struct {
	open   openFunc
	logger *zap.Logger
}

func NewPDF(logger *zap.Logger) *PDF {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDF{open: openPDF, logger: logger}
}

// Extract implements domain.Extractor.
func (e *PDF) Extract(ctx context.Context, docs []domain.Document) (string, error) {
	text, _, err := e.ExtractStats(ctx, docs)
	return text, err
}

// ExtractStats concatenates the text of every document in order.
// Every document is attempted; unreadable ones are reported together.
func (e *PDF) ExtractStats(ctx context.Context, docs []domain.Document) (string, Stats, error) {
	var (
		sb    strings.Builder
		stats Stats
		errs  []error
	)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return "", stats, err
		}
		src, err := e.open(doc.Data)
		if err != nil {
			e.logger.Warn("unreadable document",
				zap.String("document", doc.Name),
				zap.Int64("size", doc.Size()),
				zap.Error(err))
			errs = append(errs, &domain.DocumentReadError{Document: doc.Name, Err: err})
			continue
		}
		stats.Documents++
		n := src.NumPage()
		for i := 1; i <= n; i++ {
			stats.Pages++
			text, err := src.PageText(i)
			if err != nil {
				e.logger.Debug("page has no extractable text",
					zap.String("document", doc.Name),
					zap.Int("page", i),
					zap.Error(err))
				text = ""
			}
			if text == "" {
				stats.EmptyPages++
				continue
			}
			sb.WriteString(text)
		}
		e.logger.Debug("document extracted",
			zap.String("document", doc.Name),
			zap.Int("pages", n))
	}
	if len(errs) > 0 {
		return "", stats, errors.Join(errs...)
	}
	out := sb.String()
	stats.Characters = utf8.RuneCountInString(out)
	e.logger.Info("extraction finished",
		zap.Int("documents", stats.Documents),
		zap.Int("pages", stats.Pages),
		zap.Int("empty_pages", stats.EmptyPages),
		zap.Int("characters", stats.Characters))
	return out, stats, nil
}

type pdfSource struct {
	r *pdf.Reader
}

func openPDF(data []byte) (src pageSource, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return pdfSource{r: r}, nil
}

func (s pdfSource) NumPage() int { return s.r.NumPage() }

func (s pdfSource) PageText(i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: %v", i, r)
		}
	}()
	page := s.r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
