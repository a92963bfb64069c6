// Package document reads PDF files named on the command line.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"askpdf/internal/domain"
)

const DefaultMaxFileMB = 200

// ErrNoPDFs is returned when no pattern matched a PDF file.
var ErrNoPDFs = fmt.Errorf("no .pdf documents found: %w", domain.ErrNoDocuments)

// TooLargeError rejects a file above the configured size limit.
type TooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%s is %d bytes, limit is %d", e.Path, e.Size, e.Limit)
}

// Loader expands glob patterns and reads the matching PDFs.
type Loader struct {
	maxBytes int64
}

func NewLoader(maxFileMB int) *Loader {
	if maxFileMB <= 0 {
		maxFileMB = DefaultMaxFileMB
	}
	return &Loader{maxBytes: int64(maxFileMB) << 20}
}

// Paths resolves patterns to PDF paths, in pattern order, without duplicates.
// A pattern that matches nothing is taken as a literal path.
func (l *Loader) Paths(patterns []string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !strings.EqualFold(filepath.Ext(m), ".pdf") {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoPDFs
	}
	return out, nil
}

// Load reads every PDF the patterns name.
func (l *Loader) Load(patterns []string) ([]domain.Document, error) {
	paths, err := l.Paths(patterns)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &domain.DocumentReadError{Document: filepath.Base(p), Err: err}
		}
		if info.Size() > l.maxBytes {
			return nil, &domain.DocumentReadError{
				Document: filepath.Base(p),
				Err:      &TooLargeError{Path: p, Size: info.Size(), Limit: l.maxBytes},
			}
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, &domain.DocumentReadError{Document: filepath.Base(p), Err: err}
		}
		docs = append(docs, domain.Document{Name: filepath.Base(p), Data: data})
	}
	return docs, nil
}
