package listing

import "fmt"

// Window is the skip/limit slice of the ordered result set for one page.
type Window struct {
	Skip  int64
	Limit int64
}

// WindowFor validates page and size and returns the rows they select.
// maxSize of 0 disables the upper bound.
func WindowFor(page, size, maxSize int) (Window, error) {
	if size < 1 {
		return Window{}, fmt.Errorf("%w: page size must be >= 1", ErrInvalid)
	}
	if maxSize > 0 && size > maxSize {
		return Window{}, fmt.Errorf("%w: page size must be <= %d", ErrInvalid, maxSize)
	}
	if page < 1 {
		return Window{}, fmt.Errorf("%w: page number must be >= 1", ErrInvalid)
	}
	return Window{
		Skip:  int64(page-1) * int64(size),
		Limit: int64(size),
	}, nil
}

// Meta is the navigation data reported with a page.
type Meta struct {
	TotalPages      int64
	HasPreviousPage bool
	HasNextPage     bool
}

// MetaFor computes navigation data. size must be >= 1.
func MetaFor(total int64, page, size int) Meta {
	if total < 0 {
		total = 0
	}
	s := int64(size)
	pages := (total + s - 1) / s
	return Meta{
		TotalPages:      pages,
		HasPreviousPage: page > 1,
		HasNextPage:     int64(page) < pages,
	}
}
