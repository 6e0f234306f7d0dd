package seed

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	geopkg "github.com/sells-group/locality/internal/geo"
)

// IBGE municipal shapefile attribute names (BR_Municipios_* releases).
const (
	fieldCode  = "CD_MUN"
	fieldName  = "NM_MUN"
	fieldState = "SIGLA_UF"
)

// ReadShapefile reads the IBGE municipal shapefile and returns one entry per
// municipality with a representative point derived from its geometry.
// Records missing the code attribute or carrying unusable geometry are
// skipped, not fatal.
func ReadShapefile(shpPath string) ([]Entry, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToUpper(name)] = i
	}

	codeIdx, ok := fieldIdx[fieldCode]
	if !ok {
		return nil, eris.Errorf("seed: shapefile missing %s field", fieldCode)
	}
	nameIdx := indexOrMissing(fieldIdx, fieldName)
	stateIdx := indexOrMissing(fieldIdx, fieldState)

	var entries []Entry
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		id := attribute(reader, codeIdx)
		if id == "" {
			skipped++
			continue
		}

		e := Entry{
			ID:    id,
			Name:  attribute(reader, nameIdx),
			State: attribute(reader, stateIdx),
		}
		if p, ok := representativePoint(shape); ok {
			e.Location = p
		} else {
			skipped++
		}
		entries = append(entries, e)
	}

	if skipped > 0 {
		zap.L().Debug("seed: incomplete shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped))
	}
	return entries, nil
}

func indexOrMissing(fieldIdx map[string]int, name string) int {
	if idx, ok := fieldIdx[name]; ok {
		return idx
	}
	return -1
}

func attribute(reader *shp.Reader, idx int) string {
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

// representativePoint reduces a shapefile geometry to a single coordinate:
// the point itself, or the center of the geometry's bounding box. Good
// enough to seed a proximity search, not a cartographic centroid.
func representativePoint(shape shp.Shape) (*geopkg.Point, bool) {
	g := toGeom(shape)
	if g == nil {
		return nil, false
	}

	b := g.Bounds()
	if b.IsEmpty() {
		return nil, false
	}
	return &geopkg.Point{
		Lat: (b.Min(1) + b.Max(1)) / 2,
		Lng: (b.Min(0) + b.Max(0)) / 2,
	}, true
}

func toGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})

	case *shp.Polygon:
		return polygonToMultiPolygon(s)

	case *shp.PolyLine:
		return polyLineToMultiLineString(s)

	default:
		return nil
	}
}

// polygonToMultiPolygon converts a shapefile polygon, treating every part as
// an outer ring. Ring orientation does not matter for a bounding box.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end <= start {
			continue
		}

		coords := make([]geom.Coord, 0, end-start)
		for _, pt := range p.Points[start:end] {
			coords = append(coords, geom.Coord{pt.X, pt.Y})
		}
		poly := geom.NewPolygon(geom.XY)
		if _, err := poly.SetCoords([][]geom.Coord{coords}); err != nil {
			continue
		}
		_ = mp.Push(poly)
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < pl.NumParts; i++ {
		start := pl.Parts[i]
		end := int32(len(pl.Points))
		if i+1 < pl.NumParts {
			end = pl.Parts[i+1]
		}
		if end <= start {
			continue
		}

		coords := make([]geom.Coord, 0, end-start)
		for _, pt := range pl.Points[start:end] {
			coords = append(coords, geom.Coord{pt.X, pt.Y})
		}
		ls := geom.NewLineString(geom.XY)
		if _, err := ls.SetCoords(coords); err != nil {
			continue
		}
		_ = mls.Push(ls)
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}
