package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/listing-cli/internal/listing"
)

// WGS84 is the ESRI projection text written to the .prj companion file.
const WGS84 = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]`

// Summary describes a finalized dataset.
type Summary struct {
	Features int
	Files    []string
}

// Option configures a Writer.
type Option func(*Writer)

// WithGeoJSON also writes <name>.geojson with the same features.
func WithGeoJSON() Option {
	return func(w *Writer) {
		w.collection = &geojson.FeatureCollection{}
	}
}

// Writer accumulates point records. Files are staged in a hidden directory
// beside the target and only moved into place by Finalize; Abort discards
// them. A Writer is not safe for concurrent use.
type Writer struct {
	base       string // target path without extension
	stageDir   string
	stageBase  string
	shp        *shp.Writer
	collection *geojson.FeatureCollection
	count      int
	closed     bool
}

// Create prepares a point dataset at path. A trailing ".shp" is optional.
func Create(path string, opts ...Option) (*Writer, error) {
	base := strings.TrimSuffix(path, ".shp")
	if base == "" {
		return nil, eris.New("dataset: empty output name")
	}

	dir := filepath.Dir(base)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "dataset: create dir %s", dir)
	}
	stageDir, err := os.MkdirTemp(dir, ".listing-stage-*")
	if err != nil {
		return nil, eris.Wrap(err, "dataset: create staging dir")
	}

	w := &Writer{
		base:      base,
		stageDir:  stageDir,
		stageBase: filepath.Join(stageDir, filepath.Base(base)),
	}
	for _, opt := range opts {
		opt(w)
	}

	sw, err := shp.Create(w.staged(".shp"), shp.POINT)
	if err != nil {
		_ = os.RemoveAll(stageDir)
		return nil, eris.Wrap(err, "dataset: create shapefile")
	}
	w.shp = sw

	fields := make([]shp.Field, len(schema))
	for i, f := range schema {
		fields[i] = f.shpField()
	}
	if err := sw.SetFields(fields); err != nil {
		w.Abort()
		return nil, eris.Wrap(err, "dataset: set fields")
	}

	return w, nil
}

// Append writes one point feature with rec's attributes in schema order.
// Character values longer than their field are cut to fit; a numeric value
// that does not fit is an error and nothing is written.
func (w *Writer) Append(rec listing.Record) error {
	if w.closed {
		return eris.New("dataset: append after close")
	}
	if rec.Point == nil {
		return eris.New("dataset: record has no geometry")
	}

	values := attributes(rec)
	cells := make([]string, len(values))
	for i, v := range values {
		c, err := schema[i].cell(v)
		if err != nil {
			return err
		}
		cells[i] = c
	}

	row := int(w.shp.Write(&shp.Point{X: rec.Longitude(), Y: rec.Latitude()}))
	for i, c := range cells {
		if err := w.shp.WriteAttribute(row, i, c); err != nil {
			return eris.Wrapf(err, "dataset: write %s for row %d", schema[i].Name, row)
		}
	}

	if w.collection != nil {
		props := make(map[string]any, len(schema))
		for i, f := range schema {
			props[f.Name] = values[i]
		}
		props["price"] = rec.Price.InexactFloat64()
		w.collection.Features = append(w.collection.Features, &geojson.Feature{
			Geometry:   rec.Point,
			Properties: props,
		})
	}

	w.count++
	return nil
}

// Count returns the number of features appended so far.
func (w *Writer) Count() int {
	return w.count
}

// Finalize closes the shapefile, writes the .prj (and GeoJSON when enabled)
// and moves every file to the target location. On failure no file is left
// at the target.
func (w *Writer) Finalize() (Summary, error) {
	if w.closed {
		return Summary{}, eris.New("dataset: already finalized")
	}
	w.shp.Close()
	w.closed = true
	defer os.RemoveAll(w.stageDir) //nolint:errcheck

	if err := os.WriteFile(w.staged(".prj"), []byte(WGS84), 0o644); err != nil {
		return Summary{}, eris.Wrap(err, "dataset: write prj")
	}

	exts := []string{".shp", ".shx", ".dbf", ".prj"}
	if w.collection != nil {
		data, err := json.Marshal(w.collection)
		if err != nil {
			return Summary{}, eris.Wrap(err, "dataset: marshal geojson")
		}
		if err := os.WriteFile(w.staged(".geojson"), data, 0o644); err != nil {
			return Summary{}, eris.Wrap(err, "dataset: write geojson")
		}
		exts = append(exts, ".geojson")
	}

	files, err := w.publish(exts)
	if err != nil {
		return Summary{}, err
	}

	zap.L().Debug("dataset: finalized",
		zap.String("path", w.base),
		zap.Int("features", w.count),
	)

	return Summary{Features: w.count, Files: files}, nil
}

// staged returns the staging path of the file with extension ext. go-shp
// names the attribute table "<base>dbf", without the dot.
func (w *Writer) staged(ext string) string {
	if ext == ".dbf" {
		return w.stageBase + "dbf"
	}
	return w.stageBase + ext
}

// publish renames the staged files into place. If one rename fails, the
// files already moved are removed again.
func (w *Writer) publish(exts []string) ([]string, error) {
	files := make([]string, 0, len(exts))
	for _, ext := range exts {
		dst := w.base + ext
		if err := os.Rename(w.staged(ext), dst); err != nil {
			for _, f := range files {
				_ = os.Remove(f)
			}
			return nil, eris.Wrapf(err, "dataset: move %s into place", ext)
		}
		files = append(files, dst)
	}
	return files, nil
}

// Abort discards everything written so far. It does nothing after Finalize.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	if w.shp != nil {
		w.shp.Close()
	}
	_ = os.RemoveAll(w.stageDir)
}
