// Package ingestion defines the Kafka event schema used to feed documents
// into the search server.
package ingestion

import (
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
)

// Op names the mutation carried by a DocumentEvent.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// DocumentEvent is the Kafka message payload of one document mutation.
// Parallel selects the parallel removal path and is ignored for adds.
type DocumentEvent struct {
	Op         Op           `json:"op"`
	DocumentID int          `json:"document_id"`
	Text       string       `json:"text,omitempty"`
	Status     index.Status `json:"status"`
	Ratings    []int        `json:"ratings,omitempty"`
	Parallel   bool         `json:"parallel,omitempty"`
	EmittedAt  time.Time    `json:"emitted_at"`
}

// Key is the partition key. Events of one document share a partition so they
// are applied in order.
func (e DocumentEvent) Key() string {
	return strconv.Itoa(e.DocumentID)
}
