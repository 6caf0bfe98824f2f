package harvest

import "fmt"

// ProbeQueryError reports that the initial count query failed. It is fatal:
// no dataset is created.
type ProbeQueryError struct {
	Err error
}

func (e *ProbeQueryError) Error() string {
	return fmt.Sprintf("harvest: probe query failed: %v", e.Err)
}

func (e *ProbeQueryError) Unwrap() error {
	return e.Err
}

// PageQueryError reports that one page could not be fetched. The page
// contributes no records and pagination continues.
type PageQueryError struct {
	Page int
	Err  error
}

func (e *PageQueryError) Error() string {
	return fmt.Sprintf("harvest: page %d query failed: %v", e.Page, e.Err)
}

func (e *PageQueryError) Unwrap() error {
	return e.Err
}
