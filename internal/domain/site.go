package domain

import (
	"encoding/json"
	"strconv"
)

// SiteStudent is one roster entry shown on a site's popup.
type SiteStudent struct {
	Name       string `json:"name"`
	City       string `json:"city"`
	HighSchool string `json:"high_school,omitempty"`
}

// AggregatedSite is a map marker: every resolved location sharing exact
// coordinates, in input order.
type AggregatedSite struct {
	Key         string        `json:"key"`
	Latitude    float64       `json:"latitude"`
	Longitude   float64       `json:"longitude"`
	DisplayName string        `json:"display_name"`
	Students    []SiteStudent `json:"students"`
}

// Count returns the number of students on the site.
func (s AggregatedSite) Count() int {
	return len(s.Students)
}

// Tier returns the display tier for the site's current roster.
func (s AggregatedSite) Tier() Tier {
	return TierFor(len(s.Students))
}

// MarshalJSON adds the derived count and tier to the encoded site.
func (s AggregatedSite) MarshalJSON() ([]byte, error) {
	type plain AggregatedSite
	return json.Marshal(struct {
		plain
		Count int  `json:"count"`
		Tier  Tier `json:"tier"`
	}{plain(s), s.Count(), s.Tier()})
}

// CoordinateKey renders lat/lon with the shortest decimal form that parses back
// to the same float64, so equal keys mean bit-for-bit equal coordinates.
func CoordinateKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'g', -1, 64) + "," + strconv.FormatFloat(lon, 'g', -1, 64)
}

// Tier is a display bucket derived from a site's occupancy.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Tier thresholds, inclusive upper bounds.
const (
	lowTierMax    = 5
	mediumTierMax = 10
)

// TierFor maps a student count to its tier: ≤5 low, 6–10 medium, >10 high.
func TierFor(count int) Tier {
	switch {
	case count <= lowTierMax:
		return TierLow
	case count <= mediumTierMax:
		return TierMedium
	default:
		return TierHigh
	}
}
