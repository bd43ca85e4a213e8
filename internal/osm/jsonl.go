package osm

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cognicore/triyaj/pkg/triyaj/facility"
)

// ReadJSONL loads facility rows from a JSONL file so an import can merge
// into an existing directory. A missing file is an empty slice; malformed
// lines are skipped with a warning.
func ReadJSONL(path string) ([]facility.Facility, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rows []facility.Facility
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var f facility.Facility
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			log.Warn().Str("path", path).Int("line", i+1).Err(err).Msg("skipping malformed facility row")
			continue
		}
		rows = append(rows, f)
	}
	return rows, nil
}

// WriteJSONL writes the rows to path, one JSON object per line, replacing
// any existing file.
func WriteJSONL(path string, rows []facility.Facility) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode facility %q: %w", row.Name, err)
		}
	}
	return f.Close()
}

// Dedupe drops rows whose name and address were already seen, keeping the
// first occurrence. Comparison is case-insensitive.
func Dedupe(rows []facility.Facility) []facility.Facility {
	seen := make(map[string]struct{}, len(rows))
	out := make([]facility.Facility, 0, len(rows))
	for _, r := range rows {
		name := strings.TrimSpace(r.Name)
		address := strings.TrimSpace(r.Address)
		if name == "" || address == "" {
			continue
		}
		key := strings.ToLower(name) + "|" + strings.ToLower(address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
