// Package aggregate folds decoded buffer events into in-memory run totals and
// orchestrates a full aggregation run for one domain.
package aggregate

import (
	"sitewatch/internal/buffer"
)

// Counts is a pageview/visitor pair. Visitors never exceeds PageViews because
// the visitor flags are set on a subset of the page views.
type Counts struct {
	PageViews uint64
	Visitors  uint64
}

// Totals holds the three accumulation maps of one run: site-wide, per page
// path and per referrer URL. They are built fresh every run and discarded
// after commit.
type Totals struct {
	Site      Counts
	Pages     map[string]*Counts
	Referrers map[string]*Counts
}

// NewTotals returns empty run totals.
func NewTotals() *Totals {
	t := &Totals{}
	t.Reset()
	return t
}

// Add folds one event into the totals. The site visitor count follows the
// NewVisitor flag while the per-page and per-referrer visitor counts follow
// the UniqueView flag. Referrers are only tracked when non-empty.
func (t *Totals) Add(rec buffer.Record) {
	t.Site.PageViews++
	if rec.NewVisitor {
		t.Site.Visitors++
	}

	page := t.Pages[rec.Path]
	if page == nil {
		page = &Counts{}
		t.Pages[rec.Path] = page
	}
	page.PageViews++
	if rec.UniqueView {
		page.Visitors++
	}

	if rec.Referrer == "" {
		return
	}
	ref := t.Referrers[rec.Referrer]
	if ref == nil {
		ref = &Counts{}
		t.Referrers[rec.Referrer] = ref
	}
	ref.PageViews++
	if rec.UniqueView {
		ref.Visitors++
	}
}

// Reset discards all accumulated totals.
func (t *Totals) Reset() {
	t.Site = Counts{}
	t.Pages = make(map[string]*Counts)
	t.Referrers = make(map[string]*Counts)
}
