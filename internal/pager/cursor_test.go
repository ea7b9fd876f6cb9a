package pager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorWindow(t *testing.T) {
	tests := []struct {
		name   string
		cursor Cursor
		n      int
		lo, hi int
	}{
		{"first page", Cursor{Page: 0, Size: 10}, 100, 0, 10},
		{"middle page", Cursor{Page: 3, Size: 10}, 100, 30, 40},
		{"partial last page", Cursor{Page: 2, Size: 10}, 25, 20, 25},
		{"past buffered end", Cursor{Page: 14, Size: 10}, 100, 100, 100},
		{"no rows", Cursor{Page: 0, Size: 10}, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := tt.cursor.Window(tt.n)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(1, 10))
	assert.Equal(t, 1, PageCount(10, 10))
	assert.Equal(t, 2, PageCount(11, 10))
	assert.Equal(t, 25, PageCount(250, 10))
	assert.Equal(t, 0, PageCount(5, 0))
}
