package geo

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

func solutions() []core.NavigationSolution {
	return []core.NavigationSolution{
		{Time: core.GPSTime{Week: 1724, TOW: 120000.2}, Position: core.LLH{Lat: 45, Lon: 10, Height: 200}, PRNs: []int{3, 1, 5}},
		{Time: core.GPSTime{Week: 1724, TOW: 120000.4}, Position: core.LLH{Lat: 45.0001, Lon: 10.0001, Height: 201}, PRNs: []int{3, 1, 5, 9}},
		{Time: core.GPSTime{Week: 1724, TOW: 120000.6}, Position: core.LLH{Lat: 45.0002, Lon: 10.0002, Height: 202}, PRNs: []int{1, 5}},
	}
}

func TestTrack(t *testing.T) {
	ls, err := Track(solutions())
	require.NoError(t, err)

	seq := ls.Coordinates()
	require.Equal(t, 3, seq.Length())
	c := seq.Get(1)
	assert.Equal(t, 10.0001, c.X)
	assert.Equal(t, 45.0001, c.Y)
	assert.Equal(t, 201.0, c.Z)
}

func TestTrack_TooFewPoints(t *testing.T) {
	_, err := Track(solutions()[:1])
	assert.ErrorIs(t, err, ErrTooFewPoints)
	_, err = WebMercatorTrack(nil)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestWebMercator(t *testing.T) {
	tests := []struct {
		name   string
		pos    core.LLH
		signX  float64
		signY  float64
		origin bool
	}{
		{name: "origin", pos: core.LLH{}, origin: true},
		{name: "north east", pos: core.LLH{Lat: 10, Lon: 10}, signX: 1, signY: 1},
		{name: "south west", pos: core.LLH{Lat: -30, Lon: -45}, signX: -1, signY: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, err := WebMercator(tt.pos)
			require.NoError(t, err)
			c, ok := pt.Coordinates()
			require.True(t, ok)
			if tt.origin {
				assert.InDelta(t, 0, c.X, 1e-6)
				assert.InDelta(t, 0, c.Y, 1e-6)
				return
			}
			assert.Equal(t, tt.signX, math.Copysign(1, c.X))
			assert.Equal(t, tt.signY, math.Copysign(1, c.Y))
		})
	}

	// spherical mercator x is R*lon on the equator
	pt, err := WebMercator(core.LLH{Lon: 10, Height: 55})
	require.NoError(t, err)
	c, _ := pt.Coordinates()
	assert.InDelta(t, 6378137*10*math.Pi/180, c.X, 1e-3)
	assert.Equal(t, 55.0, c.Z)
}

func TestWebMercatorTrack(t *testing.T) {
	ls, err := WebMercatorTrack(solutions())
	require.NoError(t, err)
	assert.Equal(t, 3, ls.Coordinates().Length())
	assert.Greater(t, ls.Length(), 10.0)
}

func TestWriteGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin.nav_track.geojson")
	require.NoError(t, WriteGeoJSON(path, solutions()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string      `json:"type"`
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "Feature", doc.Type)
	assert.Equal(t, "LineString", doc.Geometry.Type)
	require.Len(t, doc.Geometry.Coordinates, 3)
	assert.Equal(t, []float64{10, 45, 200}, doc.Geometry.Coordinates[0])
	assert.EqualValues(t, 3, doc.Properties["solutions"])
	assert.EqualValues(t, 1724, doc.Properties["week"])
	assert.Equal(t, []any{3.0, 1.0, 5.0, 9.0}, doc.Properties["prns"])
}

func TestWriteGeoJSON_TooFewPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.geojson")
	assert.ErrorIs(t, WriteGeoJSON(path, nil), ErrTooFewPoints)
	assert.NoFileExists(t, path)
}
