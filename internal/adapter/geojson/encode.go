// Package geojson renders aggregated sites as a GeoJSON FeatureCollection for
// map front ends: one Point feature per site.
package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
)

// Feature property names.
const (
	PropKey         = "key"
	PropDisplayName = "display_name"
	PropCount       = "count"
	PropTier        = "tier"
	PropStudents    = "students"
)

// FeatureCollection converts sites in order. Count and tier reflect each
// site's current roster, so a filtered slice renders filtered counts.
func FeatureCollection(sites []domain.AggregatedSite) *geomjson.FeatureCollection {
	fc := &geomjson.FeatureCollection{Features: make([]*geomjson.Feature, 0, len(sites))}
	for _, site := range sites {
		fc.Features = append(fc.Features, feature(site))
	}
	return fc
}

func feature(site domain.AggregatedSite) *geomjson.Feature {
	students := make([]map[string]any, 0, len(site.Students))
	for _, st := range site.Students {
		s := map[string]any{"name": st.Name, "city": st.City}
		if st.HighSchool != "" {
			s["high_school"] = st.HighSchool
		}
		students = append(students, s)
	}

	return &geomjson.Feature{
		ID:       site.Key,
		Geometry: geom.NewPointFlat(geom.XY, []float64{site.Longitude, site.Latitude}),
		Properties: map[string]any{
			PropKey:         site.Key,
			PropDisplayName: site.DisplayName,
			PropCount:       site.Count(),
			PropTier:        string(site.Tier()),
			PropStudents:    students,
		},
	}
}

// Marshal encodes sites as a FeatureCollection document.
func Marshal(sites []domain.AggregatedSite) ([]byte, error) {
	data, err := json.Marshal(FeatureCollection(sites))
	if err != nil {
		return nil, fmt.Errorf("encode sites as geojson: %w", err)
	}
	return data, nil
}
