package feed

import "fmt"

// FetchError reports a transport or HTTP-level failure reaching a feed.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports malformed or structurally unexpected feed input.
// Snippet holds a truncated head of the offending document for logs.
type ParseError struct {
	Variant string
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s feed: %v (input: %q)", e.Variant, e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedTypeError names a feed type no parser variant exists for.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported feed type: %s", e.Type)
}
