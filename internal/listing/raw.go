// Package listing decodes realtor.ca search results and normalizes them into
// the fixed point-dataset attribute schema.
package listing

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Text is a JSON scalar the API sends as either a string or a bare number.
// Numbers keep their literal form.
type Text string

// UnmarshalJSON accepts strings, numbers and booleans. null leaves t unchanged.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if len(b) > 0 && (b[0] == '{' || b[0] == '[') {
		return eris.Errorf("listing: expected scalar, got %s", string(b[:1]))
	}
	*t = Text(b)
	return nil
}

// Raw is one element of the search response's Results array. Pointer fields
// are nil when the API omits them.
type Raw struct {
	ID            Text      `json:"Id"`
	MlsNumber     Text      `json:"MlsNumber"`
	Property      *Property `json:"Property"`
	Land          *Land     `json:"Land"`
	Building      *Building `json:"Building"`
	RelativeURLEn *Text     `json:"RelativeURLEn"`
}

// Property holds price, location and photos.
type Property struct {
	PriceUnformattedValue *Text    `json:"PriceUnformattedValue"`
	Price                 Text     `json:"Price"`
	Type                  Text     `json:"Type"`
	Address               *Address `json:"Address"`
	Photo                 []Photo  `json:"Photo"`
}

// Address holds the display address and coordinates. The API sends the
// coordinates as decimal strings.
type Address struct {
	AddressText *Text `json:"AddressText"`
	Latitude    *Text `json:"Latitude"`
	Longitude   *Text `json:"Longitude"`
}

// Photo references one listing image.
type Photo struct {
	SequenceID  Text `json:"SequenceId"`
	LowResPath  Text `json:"LowResPath"`
	MedResPath  Text `json:"MedResPath"`
	HighResPath Text `json:"HighResPath"`
}

// Land holds lot attributes.
type Land struct {
	SizeTotal *Text `json:"SizeTotal"`
}

// Building holds structure attributes.
type Building struct {
	Bedrooms     *Text `json:"Bedrooms"`
	SizeInterior *Text `json:"SizeInterior"`
	Type         Text  `json:"Type"`
}

// Decode parses a single raw result.
func Decode(msg json.RawMessage) (Raw, error) {
	var r Raw
	if err := json.Unmarshal(msg, &r); err != nil {
		return Raw{}, eris.Wrap(err, "listing: decode result")
	}
	return r, nil
}
