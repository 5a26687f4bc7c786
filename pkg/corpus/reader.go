package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ignoredFiles are directory entries that are never part of a corpus.
var ignoredFiles = []string{".DS_Store"}

// Corpus is a tokenized corpus directory.
type Corpus struct {
	Documents []string   // Document file names, in the order they were read.
	Sentences [][]string // Symbol sequences of every sentence of every document.
}

// ReadDir lists the documents of a corpus directory: every regular file except
// the ignored ones, sorted by name.
func ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read corpus directory '%s': %w", dir, err)
	}
	var documents []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || slices.Contains(ignoredFiles, entry.Name()) {
			continue
		}
		documents = append(documents, entry.Name())
	}
	return documents, nil
}

// ReadCorpus reads every document of dir and tokenizes its sentences with tok.
func ReadCorpus(dir string, tok *Tokenizer) (*Corpus, error) {
	documents, err := ReadDir(dir)
	if err != nil {
		return nil, err
	}

	c := &Corpus{Documents: documents}
	for _, name := range documents {
		sentences, err := readDocument(filepath.Join(dir, name), tok)
		if err != nil {
			return nil, err
		}
		c.Sentences = append(c.Sentences, sentences...)
	}
	return c, nil
}

func readDocument(path string, tok *Tokenizer) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open document: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	sentences, err := tok.Sentences(f)
	if err != nil {
		return nil, fmt.Errorf("could not tokenize '%s': %w", path, err)
	}
	return sentences, nil
}
