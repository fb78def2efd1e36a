// Package domain models student roster records and the map sites built from them.
//
// # Data Source
//
// Rosters are spreadsheets uploaded by school staff. The xlsx adapter locates the
// student, city and (optional) high school columns and produces one [RawRecord]
// per non-blank data row. Column names are a property of the adapter; nothing in
// this package depends on them.
//
// # Geocoding Conventions
//
// Each city string is sent verbatim to an addok-style search endpoint restricted
// to municipalities. A lookup yields a tagged [LookupResult]:
//
//	Resolved        coordinates and a display label were returned
//	NotFound        the service answered but had no usable match
//	TransportError  the request never produced an answer (dial error, timeout)
//
// NotFound and TransportError both become a [FailedLookup]; the reason is kept on
// the record so reports can tell "unknown city" apart from "service down".
//
// Coordinates are WGS-84. GeoJSON orders them [lon, lat]; every struct in this
// package stores them as explicit Latitude/Longitude fields.
//
// # Sites
//
// Resolved locations are grouped by [CoordinateKey], an exact rendering of the
// (latitude, longitude) pair. Two students share a marker only when the service
// returned bit-for-bit identical coordinates, which in practice happens for every
// repeat of the same municipality. There is no distance-based clustering.
//
// Occupancy tiers drive marker colour and are derived on demand:
//
//	low     1–5 students
//	medium  6–10 students
//	high    more than 10 students
//
// Tiers are never stored on a site so they stay correct when a roster filter
// changes the visible count. See [TierFor].
package domain
