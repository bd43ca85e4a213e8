// Package osm imports facility rows for the directory: an Overpass API
// client for OpenStreetMap amenity queries, a parser for HTML directory
// pages, and the JSONL plumbing shared by both paths.
package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cognicore/triyaj/pkg/triyaj/facility"
)

// DefaultEndpoint is the public Overpass API interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "triyaj-facility-import/1.0"
	queryTimeoutSecs = 25
)

// Client queries the Overpass API. The zero value is not usable; construct
// with NewClient.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
	limit     int
}

// NewClient returns a client against the given endpoint; empty means the
// public interpreter. limit caps the elements per query when positive.
func NewClient(endpoint string, limit int) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:  endpoint,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: defaultTimeout},
		limit:     limit,
	}
}

// overpassResponse is the subset of the Overpass JSON output the importer
// reads. Ways and relations carry their coordinates under center.
type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FetchAmenities queries one amenity class inside the named city area and
// converts the tagged elements to facility rows. Elements without a name or
// a usable address are dropped.
func (c *Client) FetchAmenities(ctx context.Context, city, amenity, specialtyID string) ([]facility.Facility, error) {
	q := c.buildQuery(city, amenity)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(url.Values{"data": {q}}.Encode()))
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass %s/%s: %w", city, amenity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass %s/%s: HTTP %d: %s", city, amenity, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("overpass %s/%s: decode: %w", city, amenity, err)
	}
	return elementsToFacilities(parsed.Elements, city, amenity, specialtyID), nil
}

// buildQuery assembles the Overpass QL for one amenity class constrained to
// the administrative area matching the city name.
func (c *Client) buildQuery(city, amenity string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", queryTimeoutSecs)
	fmt.Fprintf(&b, "area[\"name\"=%q][\"boundary\"=\"administrative\"]->.searchArea;\n", city)
	b.WriteString("(\n")
	for _, kind := range []string{"node", "way", "relation"} {
		fmt.Fprintf(&b, "  %s[\"amenity\"=%q](area.searchArea);\n", kind, amenity)
	}
	b.WriteString(");\n")
	if c.limit > 0 {
		fmt.Fprintf(&b, "out center %d;\n", c.limit)
	} else {
		b.WriteString("out center;\n")
	}
	return b.String()
}

func elementsToFacilities(elements []overpassElement, city, amenity, specialtyID string) []facility.Facility {
	out := make([]facility.Facility, 0, len(elements))
	for _, el := range elements {
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			continue
		}
		address := addressFromTags(el.Tags, city)
		if address == "" {
			continue
		}

		kind := el.Tags["healthcare"]
		if kind == "" {
			kind = el.Tags["amenity"]
		}
		if kind == "" {
			kind = amenity
		}

		f := facility.Facility{
			SpecialtyID: specialtyID,
			City:        city,
			Name:        name,
			Type:        kind,
			Address:     address,
		}
		if lat, lon, ok := el.coordinates(); ok {
			f.Lat, f.Lon = &lat, &lon
		}
		out = append(out, f)
	}
	return out
}

func (el overpassElement) coordinates() (lat, lon float64, ok bool) {
	if el.Center != nil {
		return el.Center.Lat, el.Center.Lon, true
	}
	if el.Type == "node" && (el.Lat != 0 || el.Lon != 0) {
		return el.Lat, el.Lon, true
	}
	return 0, 0, false
}

// addressFromTags composes a display address from the addr:* tags. addr:full
// wins outright; otherwise street and housenumber, then the suburb or city,
// joined with commas. Untagged elements fall back to the suburb alone.
func addressFromTags(tags map[string]string, city string) string {
	if full := strings.TrimSpace(tags["addr:full"]); full != "" {
		return full
	}

	street := strings.TrimSpace(tags["addr:street"])
	if num := strings.TrimSpace(tags["addr:housenumber"]); street != "" && num != "" {
		street += " " + num
	}

	locality := strings.TrimSpace(tags["addr:suburb"])
	if locality == "" {
		locality = strings.TrimSpace(tags["addr:district"])
	}
	if locality == "" {
		locality = strings.TrimSpace(tags["addr:city"])
	}
	if locality == "" {
		locality = city
	}

	switch {
	case street != "" && locality != "":
		return street + ", " + locality
	case street != "":
		return street
	case strings.TrimSpace(tags["addr:suburb"])+strings.TrimSpace(tags["addr:district"]) != "":
		return locality
	default:
		return ""
	}
}
