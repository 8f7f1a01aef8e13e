package index

import (
	"fmt"
	"strings"
)

// Status is an opaque classification tag attached to a document.
type Status int

const (
	StatusActual Status = iota
	StatusIrrelevant
	StatusBanned
	StatusRemoved
)

var statusNames = [...]string{"ACTUAL", "IRRELEVANT", "BANNED", "REMOVED"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus accepts the upper- or lower-case status name.
func ParseStatus(name string) (Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range statusNames {
		if n == upper {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown document status %q", name)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Document is the metadata and owned text of one indexed document.
type Document struct {
	ID     int    `json:"id"`
	Status Status `json:"status"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// Postings maps a document id to the term frequency of one word.
type Postings map[int]float64

// WordFreqs maps a word to its term frequency inside one document.
type WordFreqs map[string]float64
