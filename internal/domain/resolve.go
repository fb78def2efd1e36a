package domain

import (
	"fmt"
	"math"
	"strings"
)

// Resolve pairs a roster row with a geocoding match. It rejects coordinates
// outside the WGS-84 range so a ResolvedLocation is always placeable.
func Resolve(rec RawRecord, res GeocodeResult) (ResolvedLocation, error) {
	if !ValidCoordinates(res.Latitude, res.Longitude) {
		return ResolvedLocation{}, fmt.Errorf("resolve %q: coordinates out of range (%g, %g)", rec.City, res.Latitude, res.Longitude)
	}

	return ResolvedLocation{
		Name:        rec.Student,
		City:        rec.City,
		HighSchool:  rec.HighSchool,
		Latitude:    res.Latitude,
		Longitude:   res.Longitude,
		DisplayName: res.DisplayName,
		ResolvedAt:  clock.Now(),
	}, nil
}

// ValidCoordinates reports whether lat/lon are finite and within WGS-84 bounds.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// HasCity reports whether the record carries a city worth looking up.
// The city itself is sent to the geocoder untouched.
func (r RawRecord) HasCity() bool {
	return strings.TrimSpace(r.City) != ""
}

// Fail builds the FailedLookup for a record whose lookup did not resolve.
func Fail(rec RawRecord, reason FailureReason) FailedLookup {
	return FailedLookup{Student: rec.Student, City: rec.City, Reason: reason}
}
