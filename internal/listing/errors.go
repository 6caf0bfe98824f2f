package listing

import "fmt"

// FieldMissingError reports a listing without one of the fields every output
// record needs (price, address, coordinates, detail path), or with a value
// that cannot be parsed.
type FieldMissingError struct {
	Field     string
	ListingID string
	Err       error
}

func (e *FieldMissingError) Error() string {
	id := e.ListingID
	if id == "" {
		id = "?"
	}
	if e.Err != nil {
		return fmt.Sprintf("listing %s: invalid %s: %v", id, e.Field, e.Err)
	}
	return fmt.Sprintf("listing %s: missing required field %s", id, e.Field)
}

func (e *FieldMissingError) Unwrap() error {
	return e.Err
}
