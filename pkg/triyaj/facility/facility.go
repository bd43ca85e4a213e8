// Package facility serves the nearby-facility directory consulted when a
// result recommends a specialty.
package facility

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cognicore/triyaj/pkg/triyaj/i18n"
)

// DefaultCity applies when a lookup names no city.
const DefaultCity = "Istanbul"

// DefaultLimit caps a lookup that names no limit.
const DefaultLimit = 5

// Facility is one directory row from the facilities JSONL.
type Facility struct {
	SpecialtyID string   `json:"specialty_id,omitempty"`
	City        string   `json:"city,omitempty"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Address     string   `json:"address"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

// Item is one returned facility with its optional distance.
type Item struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Address    string   `json:"address"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

// Query selects facilities for a recommended specialty. Lat/Lon, when both
// set, attach distances and order the result by proximity.
type Query struct {
	SpecialtyID string
	City        string
	Locale      string
	Lat, Lon    *float64
	Limit       int
}

// Result is the lookup outcome with its disclaimer.
type Result struct {
	SpecialtyID string `json:"specialty_id"`
	City        string `json:"city"`
	Items       []Item `json:"items"`
	Disclaimer  string `json:"disclaimer"`
}

// Directory answers facility lookups from an in-memory snapshot. Immutable
// after New; safe for concurrent use.
type Directory struct {
	rows []Facility
}

// New builds a directory, dropping rows without a name or address and
// duplicates sharing the same name and address.
func New(rows []Facility) *Directory {
	seen := make(map[string]struct{}, len(rows))
	kept := make([]Facility, 0, len(rows))
	for _, r := range rows {
		r.Name = strings.TrimSpace(r.Name)
		r.Address = strings.TrimSpace(r.Address)
		if r.Name == "" || r.Address == "" {
			continue
		}
		key := dedupeKey(r.Name, r.Address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	return &Directory{rows: kept}
}

// Load reads a facilities JSONL file, skipping malformed lines.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facilities %s: %w", path, err)
	}

	var rows []Facility
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var f Facility
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			log.Warn().Str("path", path).Int("line", i+1).Err(err).Msg("skipping malformed facility row")
			continue
		}
		rows = append(rows, f)
	}
	return New(rows), nil
}

// Len reports the number of loaded rows.
func (d *Directory) Len() int { return len(d.rows) }

// Find returns the facilities matching the query: rows for the requested
// specialty plus general rows with no specialty, filtered by city. With
// coordinates the result orders by distance; otherwise load order holds.
func (d *Directory) Find(q Query) Result {
	city := q.City
	if city == "" {
		city = DefaultCity
	}
	res := Result{
		SpecialtyID: q.SpecialtyID,
		City:        city,
		Items:       []Item{},
		Disclaimer:  i18n.Text(q.Locale, i18n.KeyFacilityNote),
	}
	if strings.TrimSpace(q.SpecialtyID) == "" {
		return res
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	for _, r := range d.rows {
		if r.SpecialtyID != "" && r.SpecialtyID != q.SpecialtyID {
			continue
		}
		if r.City != "" && !strings.EqualFold(r.City, city) {
			continue
		}
		item := Item{Name: r.Name, Type: r.Type, Address: r.Address, Lat: r.Lat, Lon: r.Lon}
		if q.Lat != nil && q.Lon != nil && r.Lat != nil && r.Lon != nil {
			dist := math.Round(haversineKM(*q.Lat, *q.Lon, *r.Lat, *r.Lon)*10) / 10
			item.DistanceKM = &dist
		}
		res.Items = append(res.Items, item)
	}

	sort.SliceStable(res.Items, func(i, j int) bool {
		return distanceOrInf(res.Items[i]) < distanceOrInf(res.Items[j])
	})
	if len(res.Items) > limit {
		res.Items = res.Items[:limit]
	}
	return res
}

func distanceOrInf(it Item) float64 {
	if it.DistanceKM == nil {
		return math.Inf(1)
	}
	return *it.DistanceKM
}

func dedupeKey(name, address string) string {
	return strings.ToLower(name) + "|" + strings.ToLower(address)
}

// haversineKM is the great-circle distance between two coordinates in
// kilometers, on a sphere of radius 6371 km.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371.0
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return r * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
