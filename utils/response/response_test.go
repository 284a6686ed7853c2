package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatePagination(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		total       int64
		want        PaginationMeta
	}{
		{"exact pages", 1, 10, 30, PaginationMeta{CurrentPage: 1, PerPage: 10, Total: 30, TotalPages: 3}},
		{"partial last page", 2, 10, 31, PaginationMeta{CurrentPage: 2, PerPage: 10, Total: 31, TotalPages: 4}},
		{"empty", 1, 10, 0, PaginationMeta{CurrentPage: 1, PerPage: 10, Total: 0, TotalPages: 0}},
		{"clamped", 0, 1000, 5, PaginationMeta{CurrentPage: 1, PerPage: MaxPerPage, Total: 5, TotalPages: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatePagination(tt.page, tt.limit, tt.total))
		})
	}
}
