package geojson

import (
	"encoding/json"
	"testing"

	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
)

func testSites() []domain.AggregatedSite {
	return domain.Aggregate([]domain.ResolvedLocation{
		{Name: "A", City: "Marseille", HighSchool: "Lycée Thiers", Latitude: 43.3, Longitude: 5.4, DisplayName: "Marseille"},
		{Name: "B", City: "Marseille", Latitude: 43.3, Longitude: 5.4, DisplayName: "Marseille"},
		{Name: "C", City: "Paris", Latitude: 48.8566, Longitude: 2.3522, DisplayName: "Paris, France"},
	})
}

func TestMarshal_Document(t *testing.T) {
	data, err := Marshal(testSites())
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				Key         string `json:"key"`
				DisplayName string `json:"display_name"`
				Count       int    `json:"count"`
				Tier        string `json:"tier"`
				Students    []struct {
					Name       string `json:"name"`
					City       string `json:"city"`
					HighSchool string `json:"high_school"`
				} `json:"students"`
			} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)

	first := doc.Features[0]
	assert.Equal(t, "Feature", first.Type)
	assert.Equal(t, "43.3,5.4", first.ID)
	assert.Equal(t, "Point", first.Geometry.Type)
	assert.Equal(t, []float64{5.4, 43.3}, first.Geometry.Coordinates, "lon first")
	assert.Equal(t, "Marseille", first.Properties.DisplayName)
	assert.Equal(t, 2, first.Properties.Count)
	assert.Equal(t, "low", first.Properties.Tier)
	require.Len(t, first.Properties.Students, 2)
	assert.Equal(t, "Lycée Thiers", first.Properties.Students[0].HighSchool)
	assert.Empty(t, first.Properties.Students[1].HighSchool)

	assert.Equal(t, "Paris, France", doc.Features[1].Properties.DisplayName)
}

func TestMarshal_DecodesWithGeom(t *testing.T) {
	data, err := Marshal(testSites())
	require.NoError(t, err)

	var fc geomjson.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	require.Len(t, fc.Features, 2)

	pt, ok := fc.Features[1].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, 2.3522, pt.X(), 1e-9)
	assert.InDelta(t, 48.8566, pt.Y(), 1e-9)
}

func TestMarshal_FilteredCounts(t *testing.T) {
	filtered := domain.FilterByAttribute(testSites(), "Lycée Thiers")

	fc := FeatureCollection(filtered)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, 1, fc.Features[0].Properties[PropCount])
}

func TestMarshal_Empty(t *testing.T) {
	data, err := Marshal(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}
