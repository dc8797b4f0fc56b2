package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitewatch/internal/aggregate"
	"sitewatch/internal/buffer"
)

func TestAddIncrementsSiteAndPageTotals(t *testing.T) {
	totals := aggregate.NewTotals()

	totals.Add(buffer.Record{Path: "/a", NewVisitor: true, UniqueView: true})
	totals.Add(buffer.Record{Path: "/a", NewVisitor: false, UniqueView: false})
	totals.Add(buffer.Record{Path: "/b", NewVisitor: false, UniqueView: true})

	assert.Equal(t, aggregate.Counts{PageViews: 3, Visitors: 1}, totals.Site)
	assert.Equal(t, aggregate.Counts{PageViews: 2, Visitors: 1}, *totals.Pages["/a"])
	assert.Equal(t, aggregate.Counts{PageViews: 1, Visitors: 1}, *totals.Pages["/b"])
	assert.Empty(t, totals.Referrers)
}

// The site visitor count follows the new-visitor flag while page and referrer
// visitor counts follow the unique-view flag; the flags must not be conflated.
func TestVisitorFlagsAreDistinct(t *testing.T) {
	totals := aggregate.NewTotals()

	totals.Add(buffer.Record{Path: "/a", NewVisitor: true, UniqueView: false, Referrer: "https://ref.test/"})

	assert.Equal(t, uint64(1), totals.Site.Visitors)
	assert.Equal(t, uint64(0), totals.Pages["/a"].Visitors)
	assert.Equal(t, uint64(0), totals.Referrers["https://ref.test/"].Visitors)

	totals.Add(buffer.Record{Path: "/a", NewVisitor: false, UniqueView: true, Referrer: "https://ref.test/"})

	assert.Equal(t, uint64(1), totals.Site.Visitors)
	assert.Equal(t, uint64(1), totals.Pages["/a"].Visitors)
	assert.Equal(t, uint64(1), totals.Referrers["https://ref.test/"].Visitors)
}

func TestEmptyReferrerNotTracked(t *testing.T) {
	totals := aggregate.NewTotals()

	totals.Add(buffer.Record{Path: "/a", Referrer: ""})
	totals.Add(buffer.Record{Path: "/a", Referrer: "https://ref.test/"})

	assert.Len(t, totals.Referrers, 1)
	assert.Equal(t, uint64(1), totals.Referrers["https://ref.test/"].PageViews)
}

func TestPageViewConservation(t *testing.T) {
	totals := aggregate.NewTotals()

	records := []buffer.Record{
		{Path: "/a", NewVisitor: true, UniqueView: true},
		{Path: "/a"},
		{Path: "/b", UniqueView: true},
		{Path: "/c"},
		{Path: "/c"},
	}
	for _, rec := range records {
		totals.Add(rec)
	}

	var pageSum uint64
	for _, c := range totals.Pages {
		pageSum += c.PageViews
	}
	assert.Equal(t, totals.Site.PageViews, pageSum)
}

func TestReset(t *testing.T) {
	totals := aggregate.NewTotals()
	totals.Add(buffer.Record{Path: "/a", NewVisitor: true, UniqueView: true, Referrer: "https://ref.test/"})

	totals.Reset()

	assert.Equal(t, aggregate.Counts{}, totals.Site)
	assert.Empty(t, totals.Pages)
	assert.Empty(t, totals.Referrers)
}
