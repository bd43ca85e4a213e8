package commands

import (
	"context"
	"fmt"

	"github.com/cognicore/triyaj/pkg/triyaj"
	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
	"github.com/cognicore/triyaj/pkg/triyaj/facility"
	"github.com/cognicore/triyaj/pkg/triyaj/store"
	"github.com/cognicore/triyaj/pkg/triyaj/store/memstore"
	"github.com/cognicore/triyaj/pkg/triyaj/store/sqlite"
)

// openStore returns the session store: SQLite when a path is given, otherwise
// an in-memory store that dies with the process.
func openStore(ctx context.Context, dbPath string) (store.Store, error) {
	if dbPath == "" {
		return memstore.New(), nil
	}
	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// buildEngine assembles a triage engine from the loaded configuration. The
// returned engine owns the store; Close releases both.
func buildEngine(ctx context.Context, dbPath string, debug bool) (*triyaj.Engine, error) {
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var facilities *facility.Directory
	if cfg.FacilitiesPath != "" {
		facilities, err = facility.Load(cfg.FacilitiesPath)
		if err != nil {
			return nil, fmt.Errorf("load facilities: %w", err)
		}
	}

	st, err := openStore(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	eng, err := triyaj.New(triyaj.Options{
		Catalog:    cat,
		Store:      st,
		Facilities: facilities,
		Policy:     cfg.Policy,
		Debug:      debug,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return eng, nil
}
