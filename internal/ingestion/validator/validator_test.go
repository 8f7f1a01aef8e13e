package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
)

func TestValidateDocumentEvent(t *testing.T) {
	tests := []struct {
		name   string
		event  ingestion.DocumentEvent
		fields []string
	}{
		{"valid add", ingestion.DocumentEvent{Op: ingestion.OpAdd, DocumentID: 1, Text: "cat"}, nil},
		{"valid remove", ingestion.DocumentEvent{Op: ingestion.OpRemove, DocumentID: 0}, nil},
		{"empty text is allowed", ingestion.DocumentEvent{Op: ingestion.OpAdd, DocumentID: 2}, nil},
		{"unknown op", ingestion.DocumentEvent{Op: "upsert", DocumentID: 1}, []string{"op"}},
		{"negative id", ingestion.DocumentEvent{Op: ingestion.OpRemove, DocumentID: -1}, []string{"document_id"}},
		{"huge text", ingestion.DocumentEvent{Op: ingestion.OpAdd, DocumentID: 1, Text: strings.Repeat("a", maxTextLength+1)}, []string{"text"}},
		{"several", ingestion.DocumentEvent{Op: "", DocumentID: -5}, []string{"op", "document_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentEvent(&tt.event)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}
