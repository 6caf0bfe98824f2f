package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/listing-cli/internal/listing"
)

func testRecord(price int64, lon, lat float64, addr string) listing.Record {
	return listing.Record{
		Price:        decimal.NewFromInt(price),
		Address:      addr,
		LandSize:     listing.NoLandSize,
		Bedrooms:     "3",
		BuildingSize: listing.NoSize,
		URL:          "https://www.realtor.ca/real-estate/1",
		Picture:      listing.PlaceholderPicture,
		GoogleMaps:   "https://www.google.com/maps/@1,2,1000m/data=!3m1!1e3",
		HTML:         `<a href="https://www.realtor.ca/real-estate/1">`,
		Point:        geom.NewPointFlat(geom.XY, []float64{lon, lat}),
	}
}

type shpRow struct {
	point *shp.Point
	attrs map[string]string
}

func readShapefile(t *testing.T, path string) ([]string, []shpRow) {
	t.Helper()
	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	var names []string
	for _, f := range reader.Fields() {
		names = append(names, strings.TrimRight(f.String(), "\x00"))
	}

	var rows []shpRow
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		require.True(t, ok, "expected point shape, got %T", shape)
		attrs := make(map[string]string, len(names))
		for i, n := range names {
			attrs[n] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		rows = append(rows, shpRow{point: pt, attrs: attrs})
	}
	return names, rows
}

func TestSchema(t *testing.T) {
	fields := Schema()
	require.Len(t, fields, 9)

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"price", "address", "landSize", "bedrooms", "buildingSize", "url", "picture", "googleMaps", "html"}, names)

	assert.Equal(t, byte('N'), fields[0].Type)
	assert.Equal(t, uint8(2), fields[0].Precision)
	assert.Equal(t, uint8(255), fields[1].Size)
	assert.Equal(t, uint8(100), fields[2].Size)
	assert.Equal(t, uint8(50), fields[3].Size)
	assert.Equal(t, uint8(100), fields[4].Size)
	assert.Equal(t, "buildingSi", fields[4].DBFName())
	assert.Equal(t, "googleMaps", fields[7].DBFName())

	// Callers get a copy.
	fields[0].Name = "changed"
	assert.Equal(t, "price", Schema()[0].Name)
}

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "listings")

	w, err := Create(out)
	require.NoError(t, err)
	require.NoError(t, w.Append(testRecord(549900, -79.81, 43.87, "12 Main St")))
	require.NoError(t, w.Append(testRecord(1250000, -79.5, 44.1, "Lot 4 Concession 2")))
	assert.Equal(t, 2, w.Count())

	// Nothing at the target before Finalize.
	_, err = os.Stat(out + ".shp")
	assert.True(t, os.IsNotExist(err))

	sum, err := w.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Features)
	assert.Equal(t, []string{out + ".shp", out + ".shx", out + ".dbf", out + ".prj"}, sum.Files)

	prj, err := os.ReadFile(out + ".prj")
	require.NoError(t, err)
	assert.Equal(t, WGS84, string(prj))

	names, rows := readShapefile(t, out+".shp")
	assert.Equal(t, []string{"price", "address", "landSize", "bedrooms", "buildingSi", "url", "picture", "googleMaps", "html"}, names)
	require.Len(t, rows, 2)

	assert.InDelta(t, -79.81, rows[0].point.X, 1e-9)
	assert.InDelta(t, 43.87, rows[0].point.Y, 1e-9)
	assert.Equal(t, "549900.00", rows[0].attrs["price"])
	assert.Equal(t, "12 Main St", rows[0].attrs["address"])
	assert.Equal(t, listing.NoLandSize, rows[0].attrs["landSize"])
	assert.Equal(t, "3", rows[0].attrs["bedrooms"])
	assert.Equal(t, listing.NoSize, rows[0].attrs["buildingSi"])
	assert.Equal(t, "1250000.00", rows[1].attrs["price"])
	assert.Equal(t, "Lot 4 Concession 2", rows[1].attrs["address"])

	// Staging directory is gone.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".listing-stage-"), "staging dir left behind: %s", e.Name())
	}
}

func TestWriter_FinalizeWritesExactFileSet(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "caledon")

	w, err := Create(out)
	require.NoError(t, err)
	require.NoError(t, w.Append(testRecord(549900, -79.81, 43.87, "12 Main St")))
	_, err = w.Finalize()
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"caledon.shp", "caledon.shx", "caledon.dbf", "caledon.prj"}, names)

	reader, err := shp.Open(out + ".shp")
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()
	assert.Equal(t, 1, reader.AttributeCount())
}

func TestWriter_FinalizeFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "blocked")

	// A directory at the .dbf target makes the third rename fail after
	// .shp and .shx were already moved.
	require.NoError(t, os.Mkdir(out+".dbf", 0o755))

	w, err := Create(out)
	require.NoError(t, err)
	require.NoError(t, w.Append(testRecord(1, 0, 0, "x")))

	_, err = w.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "move .dbf into place")
	w.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "blocked.dbf", entries[0].Name())
	assert.True(t, entries[0].IsDir())
}

func TestWriter_RejectsOverflowingPrice(t *testing.T) {
	out := filepath.Join(t.TempDir(), "overflow")

	w, err := Create(out)
	require.NoError(t, err)
	defer w.Abort()

	rec := testRecord(1, 0, 0, "x")
	rec.Price = decimal.New(1, 17) // 18 digits plus ".00"
	err = w.Append(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
	assert.Equal(t, 0, w.Count())

	require.NoError(t, w.Append(testRecord(999999999999999, 0, 0, "max")))
	_, err = w.Finalize()
	require.NoError(t, err)

	_, rows := readShapefile(t, out+".shp")
	require.Len(t, rows, 1)
	assert.Equal(t, "999999999999999.00", rows[0].attrs["price"])
}

func TestWriter_ShpSuffixAccepted(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sub", "area.shp")

	w, err := Create(out)
	require.NoError(t, err)
	sum, err := w.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Features)

	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		_, err := os.Stat(strings.TrimSuffix(out, ".shp") + ext)
		assert.NoError(t, err, ext)
	}
}

func TestWriter_Abort(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "aborted")

	w, err := Create(out)
	require.NoError(t, err)
	require.NoError(t, w.Append(testRecord(1, 0, 0, "x")))
	w.Abort()
	w.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Error(t, w.Append(testRecord(1, 0, 0, "x")))
	_, err = w.Finalize()
	assert.Error(t, err)
}

func TestWriter_AbortAfterFinalizeKeepsFiles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "kept")

	w, err := Create(out)
	require.NoError(t, err)
	_, err = w.Finalize()
	require.NoError(t, err)
	w.Abort()

	_, err = os.Stat(out + ".shp")
	assert.NoError(t, err)
}

func TestWriter_TruncatesLongValues(t *testing.T) {
	out := filepath.Join(t.TempDir(), "long")

	rec := testRecord(1, 1, 1, strings.Repeat("é", 200))
	rec.Bedrooms = strings.Repeat("9", 80)

	w, err := Create(out)
	require.NoError(t, err)
	require.NoError(t, w.Append(rec))
	_, err = w.Finalize()
	require.NoError(t, err)

	_, rows := readShapefile(t, out+".shp")
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].attrs["bedrooms"], 50)
	assert.Len(t, rows[0].attrs["address"], 254, "cut on a rune boundary below 255 bytes")
}

func TestWriter_RejectsRecordWithoutPoint(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "nopoint"))
	require.NoError(t, err)
	defer w.Abort()

	rec := testRecord(1, 0, 0, "x")
	rec.Point = nil
	assert.Error(t, w.Append(rec))
	assert.Equal(t, 0, w.Count())
}

func TestWriter_GeoJSONSidecar(t *testing.T) {
	out := filepath.Join(t.TempDir(), "withjson")

	w, err := Create(out, WithGeoJSON())
	require.NoError(t, err)
	require.NoError(t, w.Append(testRecord(300000, -75.7, 45.4, "Ottawa")))
	sum, err := w.Finalize()
	require.NoError(t, err)
	assert.Contains(t, sum.Files, out+".geojson")

	data, err := os.ReadFile(out + ".geojson")
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, []float64{-75.7, 45.4}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "Ottawa", fc.Features[0].Properties["address"])
	assert.InDelta(t, 300000.0, fc.Features[0].Properties["price"], 0.001)
	assert.Equal(t, listing.NoSize, fc.Features[0].Properties["buildingSize"])
}

func TestCreate_EmptyName(t *testing.T) {
	_, err := Create("")
	assert.Error(t, err)
}

func TestField_Cell(t *testing.T) {
	num := Field{Name: "n", Type: 'N', Size: 6, Precision: 2}
	chr := Field{Name: "c", Type: 'C', Size: 4}

	c, err := num.cell("1.50")
	require.NoError(t, err)
	assert.Equal(t, "  1.50", c)

	c, err = chr.cell("ab")
	require.NoError(t, err)
	assert.Equal(t, "ab  ", c)

	c, err = chr.cell("abcdef")
	require.NoError(t, err)
	assert.Equal(t, "abcd", c)

	_, err = num.cell("1234.50")
	assert.Error(t, err, "numeric values are never cut")
}

func TestFit(t *testing.T) {
	assert.Equal(t, "abc", fit("abc", 5))
	assert.Equal(t, "ab", fit("abc", 2))
	assert.Equal(t, "a", fit("aé", 2))
	assert.Equal(t, "", fit("é", 1))
}
