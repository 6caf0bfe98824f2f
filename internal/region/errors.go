package region

import "fmt"

// DocumentFormatError reports a KML document that cannot yield a bounding
// rectangle: no feature collection, no placemark, or no usable geometry.
type DocumentFormatError struct {
	Reason string
	Err    error
}

func (e *DocumentFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("region: %s: %v", e.Reason, e.Err)
	}
	return "region: " + e.Reason
}

func (e *DocumentFormatError) Unwrap() error {
	return e.Err
}

func formatError(reason string, err error) *DocumentFormatError {
	return &DocumentFormatError{Reason: reason, Err: err}
}
