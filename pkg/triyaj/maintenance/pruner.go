// Package maintenance holds offline upkeep jobs for the session store.
package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/cognicore/triyaj/pkg/triyaj/store"
)

// Pruner removes sessions that have not been touched for MaxAge. Event rows
// go with their session.
type Pruner struct {
	Store  store.Store
	MaxAge time.Duration
}

// Result summarizes the sweep.
type Result struct {
	Scanned int
	Deleted int
	Errors  int
}

// Prune deletes every session last updated before now minus MaxAge.
func (p *Pruner) Prune(ctx context.Context, now time.Time) (Result, error) {
	var res Result
	if p.Store == nil || p.MaxAge <= 0 {
		return res, errors.New("pruner: invalid configuration")
	}

	scanned, err := p.Store.CountSessions(ctx)
	if err != nil {
		res.Errors++
		return res, err
	}
	res.Scanned = scanned

	deleted, err := p.Store.DeleteSessionsBefore(ctx, now.Add(-p.MaxAge))
	if err != nil {
		res.Errors++
		return res, err
	}
	res.Deleted = deleted

	return res, nil
}
