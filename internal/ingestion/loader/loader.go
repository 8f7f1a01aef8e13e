// Package loader reads a document corpus from a YAML file.
//
//	stopWords: "and in at"
//	documents:
//	  - id: 1
//	    text: white cat and fashionable collar
//	    status: ACTUAL
//	    ratings: [8, -3]
package loader

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/service"
)

type Corpus struct {
	StopWords string                       `yaml:"stopWords"`
	Documents []service.AddDocumentRequest `yaml:"documents"`
}

// Adder is the write side the corpus is loaded into.
type Adder interface {
	AddDocument(ctx context.Context, req service.AddDocumentRequest) error
}

func LoadFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", path, err)
	}
	defer f.Close()
	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	return c, nil
}

func Load(r io.Reader) (*Corpus, error) {
	var c Corpus
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}
	return &c, nil
}

// Apply adds every document in order and stops at the first rejection.
func (c *Corpus) Apply(ctx context.Context, dst Adder) (int, error) {
	for i, doc := range c.Documents {
		if err := dst.AddDocument(ctx, doc); err != nil {
			return i, fmt.Errorf("document #%d (id %d): %w", i, doc.ID, err)
		}
	}
	return len(c.Documents), nil
}
