// Package loader turns text files into documents for ingestion.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"simsearch/internal/domain"
)

// LoadPaths reads the .txt and .md files matched by the given paths or glob
// patterns and returns one Document per page. Pages are separated by form
// feeds, the convention used by PDF-to-text extractors; a file without form
// feeds is a single page-1 document. The source of each document is the
// file's base name.
func LoadPaths(patterns []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if !supported(m) {
				continue
			}
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, err
			}
			docs = append(docs, Paginate(filepath.Base(m), string(data))...)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("loader: no .txt or .md documents found")
	}
	return docs, nil
}

func supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// Paginate splits text on form feeds into per-page documents for source.
// Page numbers are positional and start at 1; blank pages are skipped but
// keep their position, matching the page numbers of the extracted original.
func Paginate(source, text string) []domain.Document {
	pages := strings.Split(text, "\f")
	docs := make([]domain.Document, 0, len(pages))
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		docs = append(docs, domain.Document{Source: source, Page: i + 1, Text: page})
	}
	return docs
}
