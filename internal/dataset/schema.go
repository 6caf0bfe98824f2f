// Package dataset writes normalized listings as an ESRI point shapefile with
// a WGS-84 projection file and an optional GeoJSON sidecar.
package dataset

import (
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-cli/internal/listing"
)

// dbfNameLimit is the dBase III field-name length; the 11th byte is the
// terminator.
const dbfNameLimit = 10

// Field describes one attribute column.
type Field struct {
	Name      string
	Type      byte // 'N' numeric, 'C' character
	Size      uint8
	Precision uint8
}

// DBFName returns Name cut to the dBase limit.
func (f Field) DBFName() string {
	if len(f.Name) <= dbfNameLimit {
		return f.Name
	}
	return f.Name[:dbfNameLimit]
}

func (f Field) shpField() shp.Field {
	if f.Type == 'N' {
		fld := shp.NumberField(f.DBFName(), f.Size)
		fld.Precision = f.Precision
		return fld
	}
	return shp.StringField(f.DBFName(), f.Size)
}

var schema = []Field{
	{Name: "price", Type: 'N', Size: 18, Precision: 2},
	{Name: "address", Type: 'C', Size: 255},
	{Name: "landSize", Type: 'C', Size: 100},
	{Name: "bedrooms", Type: 'C', Size: 50},
	{Name: "buildingSize", Type: 'C', Size: 100},
	{Name: "url", Type: 'C', Size: 255},
	{Name: "picture", Type: 'C', Size: 255},
	{Name: "googleMaps", Type: 'C', Size: 255},
	{Name: "html", Type: 'C', Size: 255},
}

// Schema returns the ordered attribute fields written for every point.
func Schema() []Field {
	out := make([]Field, len(schema))
	copy(out, schema)
	return out
}

// attributes returns rec's values in schema order.
func attributes(rec listing.Record) []string {
	return []string{
		rec.Price.StringFixed(int32(schema[0].Precision)),
		rec.Address,
		rec.LandSize,
		rec.Bedrooms,
		rec.BuildingSize,
		rec.URL,
		rec.Picture,
		rec.GoogleMaps,
		rec.HTML,
	}
}

// fit cuts s to at most n bytes without splitting a UTF-8 sequence.
func fit(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// cell renders v as a fixed-width dBase value: character fields are
// left-aligned and numeric fields right-aligned, both space padded. Character
// values are cut to fit; numeric values that overflow are rejected.
func (f Field) cell(v string) (string, error) {
	if f.Type == 'N' {
		if len(v) > int(f.Size) {
			return "", eris.Errorf("dataset: %s value %s exceeds %d characters", f.Name, v, f.Size)
		}
		return strings.Repeat(" ", int(f.Size)-len(v)) + v, nil
	}
	v = fit(v, int(f.Size))
	return v + strings.Repeat(" ", int(f.Size)-len(v)), nil
}
