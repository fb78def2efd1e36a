package domain

import "sort"

// Aggregate groups resolved locations into sites keyed by exact coordinates.
// Sites come out in order of first appearance and keep the first display name
// seen for their key; students keep input order.
func Aggregate(locations []ResolvedLocation) []AggregatedSite {
	sites := make([]AggregatedSite, 0, len(locations))
	index := make(map[string]int, len(locations))

	for _, loc := range locations {
		key := CoordinateKey(loc.Latitude, loc.Longitude)
		student := SiteStudent{Name: loc.Name, City: loc.City, HighSchool: loc.HighSchool}

		if i, ok := index[key]; ok {
			sites[i].Students = append(sites[i].Students, student)
			continue
		}

		index[key] = len(sites)
		sites = append(sites, AggregatedSite{
			Key:         key,
			Latitude:    loc.Latitude,
			Longitude:   loc.Longitude,
			DisplayName: loc.DisplayName,
			Students:    []SiteStudent{student},
		})
	}

	return sites
}

// FilterByAttribute keeps the students whose high school equals value. Sites
// left without students are dropped. An empty value disables filtering.
// The input slice is never modified.
func FilterByAttribute(sites []AggregatedSite, value string) []AggregatedSite {
	out := make([]AggregatedSite, 0, len(sites))

	for _, site := range sites {
		kept := make([]SiteStudent, 0, len(site.Students))
		for _, st := range site.Students {
			if value == "" || st.HighSchool == value {
				kept = append(kept, st)
			}
		}
		if len(kept) == 0 {
			continue
		}
		site.Students = kept
		out = append(out, site)
	}

	return out
}

// Attributes lists the distinct non-empty high school values across sites,
// sorted, for building a filter legend.
func Attributes(sites []AggregatedSite) []string {
	seen := make(map[string]struct{})
	for _, site := range sites {
		for _, st := range site.Students {
			if st.HighSchool != "" {
				seen[st.HighSchool] = struct{}{}
			}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Point is a WGS-84 coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultCenter is the map centre used when nothing was resolved: the
// geographic centre of metropolitan France.
var DefaultCenter = Point{Latitude: 46.603354, Longitude: 1.888334}

// Center returns the mean coordinate of the resolved locations, one weight per
// student, or DefaultCenter when there are none.
func Center(locations []ResolvedLocation) Point {
	if len(locations) == 0 {
		return DefaultCenter
	}

	var lat, lon float64
	for _, loc := range locations {
		lat += loc.Latitude
		lon += loc.Longitude
	}
	n := float64(len(locations))
	return Point{Latitude: lat / n, Longitude: lon / n}
}
