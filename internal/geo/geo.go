// Package geo turns navigation solutions into track geometry for export.
// Positions stay geodetic (EPSG:4326, lon/lat/height) in the GeoJSON output;
// WebMercator projects them for map tiles.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// ErrTooFewPoints is returned when a track would have fewer than two vertices.
var ErrTooFewPoints = errors.New("track needs at least 2 solutions")

// Track builds an XYZ LineString of (lon, lat, height) in solution order.
func Track(sols []core.NavigationSolution) (geom.LineString, error) {
	if len(sols) < 2 {
		return geom.LineString{}, fmt.Errorf("%w, got %d", ErrTooFewPoints, len(sols))
	}
	flat := make([]float64, 0, len(sols)*3)
	for _, s := range sols {
		flat = append(flat, s.Position.Lon, s.Position.Lat, s.Position.Height)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
}

// WebMercator projects a geodetic position to EPSG:3857 metres. Height is
// carried through as Z.
func WebMercator(pos core.LLH) (geom.Point, error) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(pos.Lon, pos.Lat, 0)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Z:    pos.Height,
		Type: geom.CoordinatesType(geom.DimXYZ),
	})
}

// WebMercatorTrack is Track projected to EPSG:3857.
func WebMercatorTrack(sols []core.NavigationSolution) (geom.LineString, error) {
	if len(sols) < 2 {
		return geom.LineString{}, fmt.Errorf("%w, got %d", ErrTooFewPoints, len(sols))
	}
	f := wgs84.EPSG().Transform(4326, 3857)
	flat := make([]float64, 0, len(sols)*2)
	for _, s := range sols {
		x, y, _ := f(s.Position.Lon, s.Position.Lat, 0)
		flat = append(flat, x, y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// Feature wraps the track with its time span and the satellites used.
func Feature(sols []core.NavigationSolution) (geom.GeoJSONFeature, error) {
	ls, err := Track(sols)
	if err != nil {
		return geom.GeoJSONFeature{}, err
	}
	first, last := sols[0], sols[len(sols)-1]
	return geom.GeoJSONFeature{
		Geometry: ls.AsGeometry(),
		Properties: map[string]any{
			"week":      first.Time.Week,
			"startTow":  first.Time.TOW,
			"endTow":    last.Time.TOW,
			"start":     first.Time.UTC(),
			"end":       last.Time.UTC(),
			"solutions": len(sols),
			"prns":      satellites(sols),
		},
	}, nil
}

// WriteGeoJSON writes the track feature to path.
func WriteGeoJSON(path string, sols []core.NavigationSolution) error {
	feat, err := Feature(sols)
	if err != nil {
		return err
	}
	data, err := json.Marshal(feat)
	if err != nil {
		return fmt.Errorf("failed to encode track: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write track: %w", err)
	}
	return nil
}

// satellites lists every PRN used by any solution, in first-use order.
func satellites(sols []core.NavigationSolution) []int {
	seen := map[int]bool{}
	var out []int
	for _, s := range sols {
		for _, prn := range s.PRNs {
			if !seen[prn] {
				seen[prn] = true
				out = append(out, prn)
			}
		}
	}
	return out
}
