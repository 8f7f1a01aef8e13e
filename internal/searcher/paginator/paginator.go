// Package paginator slices an already computed result list into pages.
package paginator

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
)

// Paginate splits items into consecutive pages of pageSize; the last page may
// be shorter. Pages share memory with items.
func Paginate[T any](items []T, pageSize int) ([][]T, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size %d: %w", pageSize, apperrors.ErrInvalidArgument)
	}
	pages := make([][]T, 0, (len(items)+pageSize-1)/pageSize)
	for start := 0; start < len(items); start += pageSize {
		end := min(start+pageSize, len(items))
		pages = append(pages, items[start:end:end])
	}
	return pages, nil
}

// Page returns the 1-based page number of items, or an empty slice when the
// page is past the end.
func Page[T any](items []T, pageSize, page int) ([]T, error) {
	if page < 1 {
		return nil, fmt.Errorf("page %d: %w", page, apperrors.ErrInvalidArgument)
	}
	pages, err := Paginate(items, pageSize)
	if err != nil {
		return nil, err
	}
	if page > len(pages) {
		return []T{}, nil
	}
	return pages[page-1], nil
}
