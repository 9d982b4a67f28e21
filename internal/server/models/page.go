package models

import "math"

// NotePage is one page of notes plus pagination metadata.
// Page is 1-based.
type NotePage struct {
	Notes      []*Note
	TotalNotes int
	Page       int
	TotalPages int
}

// TotalPages returns ceil(total / pageSize). pageSize must be positive.
func TotalPages(total, pageSize int) int {
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

// Offset returns the number of rows to skip for a 1-based page. Callers
// check OffsetFits first.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// OffsetFits reports whether Offset(page, pageSize) is representable.
func OffsetFits(page, pageSize int) bool {
	return page-1 <= math.MaxInt/pageSize
}
