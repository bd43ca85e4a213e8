// Command download-facilities imports health facility rows for the result
// envelope's location hint. It queries the Overpass API per amenity class,
// or parses an HTML directory page, merges with the existing output and
// writes the facilities JSONL the engine loads at startup.
//
// Usage:
//
//	download-facilities -city Istanbul -amenities hospital,clinic -out data/facilities.jsonl
//	download-facilities -html directory.html -specialty cardiology -out data/facilities.jsonl
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cognicore/triyaj/internal/osm"
	"github.com/cognicore/triyaj/pkg/triyaj/facility"
)

func main() {
	var (
		city      = flag.String("city", "Istanbul", "administrative area to query")
		amenities = flag.String("amenities", "hospital,clinic", "comma-separated OSM amenity classes")
		specialty = flag.String("specialty", "", "specialty id stamped on imported rows (empty = serves all)")
		htmlSrc   = flag.String("html", "", "HTML directory page (file path or URL) parsed instead of Overpass")
		endpoint  = flag.String("endpoint", osm.DefaultEndpoint, "Overpass API interpreter")
		limit     = flag.Int("limit", 200, "max elements per Overpass query")
		out       = flag.String("out", "data/facilities.jsonl", "output JSONL path")
	)
	flag.Parse()

	existing, err := osm.ReadJSONL(*out)
	if err != nil {
		log.Fatalf("Failed to read existing output: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("Merging into %d existing rows from %s", len(existing), *out)
	}

	var fetched []facility.Facility
	if *htmlSrc != "" {
		fetched, err = fromHTML(*htmlSrc, *city, *specialty)
	} else {
		fetched, err = fromOverpass(*endpoint, *city, *amenities, *specialty, *limit)
	}
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	log.Printf("Imported %d rows", len(fetched))

	merged := osm.Dedupe(append(existing, fetched...))
	if err := osm.WriteJSONL(*out, merged); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	log.Printf("✓ Wrote %d facilities to %s", len(merged), *out)
}

func fromOverpass(endpoint, city, amenities, specialty string, limit int) ([]facility.Facility, error) {
	client := osm.NewClient(endpoint, limit)
	ctx := context.Background()

	var rows []facility.Facility
	classes := strings.Split(amenities, ",")
	for i, amenity := range classes {
		amenity = strings.TrimSpace(amenity)
		if amenity == "" {
			continue
		}
		log.Printf("Querying %s/%s...", city, amenity)
		got, err := client.FetchAmenities(ctx, city, amenity, specialty)
		if err != nil {
			return nil, err
		}
		log.Printf("  %d rows", len(got))
		rows = append(rows, got...)

		// Be nice to the API between queries.
		if i < len(classes)-1 {
			time.Sleep(time.Second)
		}
	}
	return rows, nil
}

func fromHTML(src, city, specialty string) ([]facility.Facility, error) {
	var r io.ReadCloser
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		resp, err := http.Get(src)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: HTTP %d", src, resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(src)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer r.Close()

	return osm.ParseDirectoryHTML(r, city, specialty)
}
