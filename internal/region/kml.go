package region

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/encoding/htmlindex"
)

// Placemark is a named KML feature with its decoded geometry.
// Geometry is a *geom.GeometryCollection when the placemark holds a
// MultiGeometry.
type Placemark struct {
	Name     string
	Geometry geom.T
}

type kmlPlacemark struct {
	Name          string        `xml:"name"`
	Point         *kmlCoords    `xml:"Point"`
	LineString    *kmlCoords    `xml:"LineString"`
	LinearRing    *kmlCoords    `xml:"LinearRing"`
	Polygon       *kmlPolygon   `xml:"Polygon"`
	MultiGeometry *kmlMultiGeom `xml:"MultiGeometry"`
}

type kmlCoords struct {
	Coordinates string `xml:"coordinates"`
}

type kmlBoundary struct {
	LinearRing kmlCoords `xml:"LinearRing"`
}

type kmlPolygon struct {
	Outer kmlBoundary   `xml:"outerBoundaryIs"`
	Inner []kmlBoundary `xml:"innerBoundaryIs"`
}

type kmlMultiGeom struct {
	Points        []kmlCoords    `xml:"Point"`
	LineStrings   []kmlCoords    `xml:"LineString"`
	LinearRings   []kmlCoords    `xml:"LinearRing"`
	Polygons      []kmlPolygon   `xml:"Polygon"`
	MultiGeometry []kmlMultiGeom `xml:"MultiGeometry"`
}

// isCollection reports whether a KML element name is a feature container.
func isCollection(local string) bool {
	return local == "Document" || local == "Folder"
}

// FirstPlacemark scans a KML document and returns the first Placemark found
// inside the first Document or Folder. Placemarks that appear before any
// collection are ignored. Nested folders are searched in document order, but
// the scan never moves past the end of the first collection.
func FirstPlacemark(r io.Reader) (*Placemark, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "kml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	depth := 0 // nesting depth inside the first collection; 0 = not yet entered
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, formatError("read kml", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if isCollection(t.Name.Local) {
					depth = 1
					continue
				}
				if t.Name.Local == "Placemark" {
					if err := decoder.Skip(); err != nil {
						return nil, formatError("read kml", err)
					}
				}
				continue
			}

			if t.Name.Local == "Placemark" {
				var pm kmlPlacemark
				if err := decoder.DecodeElement(&pm, &t); err != nil {
					return nil, formatError("decode placemark", err)
				}
				g, err := pm.geometry()
				if err != nil {
					return nil, formatError("placemark geometry", err)
				}
				return &Placemark{Name: strings.TrimSpace(pm.Name), Geometry: g}, nil
			}
			depth++

		case xml.EndElement:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return nil, formatError("first feature collection has no placemark", nil)
			}
		}
	}

	if depth > 0 {
		return nil, formatError("first feature collection has no placemark", nil)
	}
	return nil, formatError("document has no feature collection", nil)
}

func (pm kmlPlacemark) geometry() (geom.T, error) {
	switch {
	case pm.Point != nil:
		return pointGeom(*pm.Point)
	case pm.LineString != nil:
		return lineGeom(*pm.LineString)
	case pm.LinearRing != nil:
		return lineGeom(*pm.LinearRing)
	case pm.Polygon != nil:
		return polygonGeom(*pm.Polygon)
	case pm.MultiGeometry != nil:
		return multiGeom(*pm.MultiGeometry)
	default:
		return nil, eris.New("placemark has no geometry")
	}
}

func pointGeom(c kmlCoords) (geom.T, error) {
	flat, err := parseCoordinates(c.Coordinates)
	if err != nil {
		return nil, err
	}
	switch len(flat) {
	case 0:
		return geom.NewPointEmpty(geom.XY), nil
	case 2:
		return geom.NewPointFlat(geom.XY, flat), nil
	default:
		return nil, eris.Errorf("point has %d coordinate tuples", len(flat)/2)
	}
}

func lineGeom(c kmlCoords) (geom.T, error) {
	flat, err := parseCoordinates(c.Coordinates)
	if err != nil {
		return nil, err
	}
	return geom.NewLineStringFlat(geom.XY, flat), nil
}

func polygonGeom(p kmlPolygon) (geom.T, error) {
	flat, err := parseCoordinates(p.Outer.LinearRing.Coordinates)
	if err != nil {
		return nil, eris.Wrap(err, "outer boundary")
	}
	ends := []int{len(flat)}
	for i, inner := range p.Inner {
		hole, err := parseCoordinates(inner.LinearRing.Coordinates)
		if err != nil {
			return nil, eris.Wrapf(err, "inner boundary %d", i)
		}
		flat = append(flat, hole...)
		ends = append(ends, len(flat))
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends), nil
}

// multiGeom flattens a MultiGeometry, including nested ones, into a single
// collection.
func multiGeom(m kmlMultiGeom) (geom.T, error) {
	gc := geom.NewGeometryCollection()
	if err := pushMulti(gc, m); err != nil {
		return nil, err
	}
	return gc, nil
}

func pushMulti(gc *geom.GeometryCollection, m kmlMultiGeom) error {
	push := func(g geom.T, err error) error {
		if err != nil {
			return err
		}
		return gc.Push(g)
	}

	for _, c := range m.Points {
		if err := push(pointGeom(c)); err != nil {
			return err
		}
	}
	for _, c := range m.LineStrings {
		if err := push(lineGeom(c)); err != nil {
			return err
		}
	}
	for _, c := range m.LinearRings {
		if err := push(lineGeom(c)); err != nil {
			return err
		}
	}
	for _, p := range m.Polygons {
		if err := push(polygonGeom(p)); err != nil {
			return err
		}
	}
	for _, nested := range m.MultiGeometry {
		if err := pushMulti(gc, nested); err != nil {
			return err
		}
	}
	return nil
}

// parseCoordinates parses a KML coordinates string ("lon,lat[,alt] ...")
// into flat XY pairs. Altitude is dropped.
func parseCoordinates(s string) ([]float64, error) {
	tuples := strings.Fields(s)
	flat := make([]float64, 0, len(tuples)*2)
	for _, tuple := range tuples {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, eris.Errorf("malformed coordinate tuple %q", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "longitude in %q", tuple)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "latitude in %q", tuple)
		}
		flat = append(flat, lon, lat)
	}
	return flat, nil
}
