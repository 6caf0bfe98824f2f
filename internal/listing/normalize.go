package listing

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/twpayne/go-geom"
)

const (
	// SitePrefix is prepended to each listing's relative detail path.
	SitePrefix = "https://www.realtor.ca"
	// PlaceholderPicture is used when a listing has no photos.
	PlaceholderPicture = "https://static.vecteezy.com/system/resources/previews/002/077/027/original/house-icon-sign-free-vector.jpg"

	NoLandSize = "noLandSize"
	NoBedrooms = "noBedrooms"
	NoSize     = "noSize"
)

// Record is one normalized listing: the nine output attributes plus a point
// geometry at (longitude, latitude) in WGS-84.
type Record struct {
	Price        decimal.Decimal
	Address      string
	LandSize     string
	Bedrooms     string
	BuildingSize string
	URL          string
	Picture      string
	GoogleMaps   string
	HTML         string
	Point        *geom.Point
}

// Longitude returns the point's X coordinate.
func (r Record) Longitude() float64 { return r.Point.X() }

// Latitude returns the point's Y coordinate.
func (r Record) Latitude() float64 { return r.Point.Y() }

// Normalizer maps raw listings to records. The zero value uses SitePrefix and
// PlaceholderPicture.
type Normalizer struct {
	SitePrefix  string
	Placeholder string
}

// Normalize maps raw with the default Normalizer.
func Normalize(raw Raw) (Record, error) {
	return Normalizer{}.Normalize(raw)
}

// NormalizeJSON decodes and normalizes one raw result.
func (n Normalizer) NormalizeJSON(msg json.RawMessage) (Record, error) {
	raw, err := Decode(msg)
	if err != nil {
		return Record{}, err
	}
	return n.Normalize(raw)
}

// Normalize maps one raw listing to a Record. Optional fields that are
// absent get their sentinel string; a missing required field is a
// *FieldMissingError.
func (n Normalizer) Normalize(raw Raw) (Record, error) {
	prefix := n.SitePrefix
	if prefix == "" {
		prefix = SitePrefix
	}
	placeholder := n.Placeholder
	if placeholder == "" {
		placeholder = PlaceholderPicture
	}

	id := string(raw.ID)
	if id == "" {
		id = string(raw.MlsNumber)
	}
	missing := func(field string) error {
		return &FieldMissingError{Field: field, ListingID: id}
	}
	invalid := func(field string, err error) error {
		return &FieldMissingError{Field: field, ListingID: id, Err: err}
	}

	prop := raw.Property
	if prop == nil {
		return Record{}, missing("Property")
	}
	if prop.PriceUnformattedValue == nil {
		return Record{}, missing("Property.PriceUnformattedValue")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(string(*prop.PriceUnformattedValue)))
	if err != nil {
		return Record{}, invalid("Property.PriceUnformattedValue", eris.Wrap(err, "parse price"))
	}

	addr := prop.Address
	if addr == nil {
		return Record{}, missing("Property.Address")
	}
	if addr.AddressText == nil {
		return Record{}, missing("Property.Address.AddressText")
	}
	if addr.Latitude == nil {
		return Record{}, missing("Property.Address.Latitude")
	}
	if addr.Longitude == nil {
		return Record{}, missing("Property.Address.Longitude")
	}
	latText, lonText := string(*addr.Latitude), string(*addr.Longitude)
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return Record{}, invalid("Property.Address.Latitude", eris.Wrap(err, "parse latitude"))
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if err != nil {
		return Record{}, invalid("Property.Address.Longitude", eris.Wrap(err, "parse longitude"))
	}

	if raw.RelativeURLEn == nil {
		return Record{}, missing("RelativeURLEn")
	}
	detailURL := prefix + string(*raw.RelativeURLEn)

	rec := Record{
		Price:        price,
		Address:      string(*addr.AddressText),
		LandSize:     NoLandSize,
		Bedrooms:     NoBedrooms,
		BuildingSize: NoSize,
		URL:          detailURL,
		Picture:      placeholder,
		GoogleMaps:   MapLink(latText, lonText),
		HTML:         Anchor(detailURL),
		Point:        geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326),
	}

	if raw.Land != nil && raw.Land.SizeTotal != nil {
		rec.LandSize = string(*raw.Land.SizeTotal)
	}
	if b := raw.Building; b != nil {
		if b.Bedrooms != nil {
			rec.Bedrooms = string(*b.Bedrooms)
		}
		if b.SizeInterior != nil {
			rec.BuildingSize = string(*b.SizeInterior)
		}
	}
	if len(prop.Photo) > 0 {
		rec.Picture = string(prop.Photo[0].LowResPath)
		rec.HTML = Thumbnail(detailURL, rec.Picture)
	}

	return rec, nil
}

// MapLink returns a satellite-view map URL centred on the coordinates. The
// strings are used as received so no precision is lost.
func MapLink(lat, lon string) string {
	return "https://www.google.com/maps/@" + lat + "," + lon + ",1000m/data=!3m1!1e3"
}

// Anchor returns an opening link tag for url with no content.
func Anchor(url string) string {
	return `<a href="` + url + `">`
}

// Thumbnail returns a link to url wrapping a 50x50 image of picture.
func Thumbnail(url, picture string) string {
	return `<a href="` + url + `"><img src="` + picture + `" width="50" height="50"></a>`
}
