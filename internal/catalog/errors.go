package catalog

import (
	"errors"
	"fmt"
)

// ErrNoStructuredData is returned when a page carries no parsable data block.
var ErrNoStructuredData = errors.New("no structured data block")

// ParseError reports a catalog page whose structured data could not be read.
type ParseError struct {
	URL   string
	Stage string
	Err   error
}

func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("catalog: parse %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("catalog: parse %s of %s: %v", e.Stage, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FetchError reports a transport failure talking to the catalog.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("catalog: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
