package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown document", fmt.Errorf("match: %w", ErrUnknownDocumentID), http.StatusNotFound},
		{"duplicate id", fmt.Errorf("add: %w", ErrInvalidDocumentID), http.StatusConflict},
		{"bad query", ErrInvalidQuery, http.StatusBadRequest},
		{"bad word", ErrInvalidWord, http.StatusBadRequest},
		{"bad argument", ErrInvalidArgument, http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"app error wins", Newf(ErrInvalidQuery, http.StatusTeapot, "word %q", "--x"), http.StatusTeapot},
		{"unclassified", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := New(ErrInvalidQuery, http.StatusBadRequest, "query word is empty")
	assert.True(t, Is(err, ErrInvalidQuery))
	assert.Equal(t, "invalid query: query word is empty", err.Error())
}
