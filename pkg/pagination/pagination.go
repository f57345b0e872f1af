package pagination

// PageRequest selects a page. Empty cursors mean "not set"; at most one of
// Before and After may be set.
type PageRequest struct {
	Before string
	After  string
	Limit  int
}

// Page holds one page of items, newest first. HasNextPage is set for first
// and after pages, HasPreviousPage for before pages.
type Page[T any] struct {
	Count           int
	Items           []T
	StartCursor     string
	EndCursor       string
	HasNextPage     bool
	HasPreviousPage bool
}
