// Package validator checks document events before they are published or
// applied. Word-level checks stay with the engine; this only rejects events
// that are structurally unusable.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
)

const maxTextLength = 1 << 20

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateDocumentEvent returns a ValidationError describing every problem
// with ev, or nil.
func ValidateDocumentEvent(ev *ingestion.DocumentEvent) error {
	errs := make(map[string]string)

	switch ev.Op {
	case ingestion.OpAdd:
		if len(ev.Text) > maxTextLength {
			errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
		}
	case ingestion.OpRemove:
	default:
		errs["op"] = fmt.Sprintf("unknown op %q", ev.Op)
	}
	if ev.DocumentID < 0 {
		errs["document_id"] = "document id must not be negative"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
