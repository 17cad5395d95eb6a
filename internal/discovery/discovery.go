// Package discovery queries the system package managers and folds the
// results into a logical-id presence map.
package discovery

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds each source query.
const DefaultTimeout = 15 * time.Second

// Result is one discovery pass. Present has an entry for every known id.
type Result struct {
	Present     map[string]bool
	Records     []PackageRecord
	Unavailable map[Manager]error
	// Ambiguous maps a token to the logical ids that all claim it.
	Ambiguous   map[string][]string
	RefreshedAt time.Time
}

// Installed reports whether id was found.
func (r Result) Installed(id string) bool {
	return r.Present[id]
}

// RecordsFor returns the records mapped to id.
func (r Result) RecordsFor(id string) []PackageRecord {
	var out []PackageRecord
	for _, rec := range r.Records {
		if rec.LogicalID == id {
			out = append(out, rec)
		}
	}
	return out
}

// Discoverer runs every configured source.
type Discoverer struct {
	Sources []Source
	Lookup  *Lookup
	Timeout time.Duration
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Refresh queries all sources concurrently. A failing source contributes
// nothing and is listed in Unavailable. The only error returned is the
// caller's context error, in which case the partial result must be discarded.
func (d *Discoverer) Refresh(ctx context.Context, knownIDs []string) (Result, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	lists := make([][]PackageRecord, len(d.Sources))
	errs := make([]error, len(d.Sources))
	var g errgroup.Group
	for i, src := range d.Sources {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			recs, err := src.List(qctx)
			if err == nil && qctx.Err() != nil {
				err = unavailable(src.Manager(), qctx.Err())
			}
			if err != nil && !errors.Is(err, ErrSourceUnavailable) {
				err = unavailable(src.Manager(), err)
			}
			lists[i], errs[i] = recs, err
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{
		Present:     make(map[string]bool, len(knownIDs)),
		Unavailable: map[Manager]error{},
		Ambiguous:   map[string][]string{},
		RefreshedAt: d.now(),
	}
	for _, id := range knownIDs {
		res.Present[id] = false
	}

	for i, src := range d.Sources {
		if errs[i] != nil {
			res.Unavailable[src.Manager()] = errs[i]
			d.Logger.Warn().Err(errs[i]).Str("source", string(src.Manager())).Msg("package source unavailable")
			continue
		}
		for _, rec := range lists[i] {
			token := Normalize(rec.Source, rec.Name)
			id, ambiguous := d.lookup(rec.Source, token)
			if ambiguous {
				res.Ambiguous[token] = d.Lookup.Claimants(rec.Source, token)
			} else if _, known := res.Present[id]; known && id != "" {
				rec.LogicalID = id
				res.Present[id] = true
			}
			res.Records = append(res.Records, rec)
		}
	}
	sort.SliceStable(res.Records, func(a, b int) bool {
		if res.Records[a].Source != res.Records[b].Source {
			return res.Records[a].Source < res.Records[b].Source
		}
		return res.Records[a].Name < res.Records[b].Name
	})
	d.Logger.Debug().Int("records", len(res.Records)).Int("unavailable", len(res.Unavailable)).Msg("discovery finished")
	return res, nil
}

func (d *Discoverer) lookup(m Manager, token string) (string, bool) {
	if d.Lookup == nil {
		return "", false
	}
	return d.Lookup.Resolve(m, token)
}

func (d *Discoverer) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
