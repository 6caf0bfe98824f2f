// Package search builds the form parameters for a realtor.ca property search.
package search

import (
	"net/url"
	"strconv"

	"github.com/sells-group/listing-cli/internal/region"
)

// Fixed protocol identifiers sent with every query.
const (
	SortKey              = "6-D" // newest first
	PropertyTypeGroupID  = "1"
	PropertySearchTypeID = "1"
	TransactionTypeID    = "2" // for sale
	Currency             = "CAD"
	ApplicationID        = "1"
	CultureID            = "1" // English

	BuildingTypeHouse    = "1"
	ConstructionDetached = "3"
)

// Pagination defaults.
const (
	DefaultProbePageSize = 12
	DefaultPageSize      = 200
	FirstPage            = 1
)

// Options are the caller-level restrictions applied on top of the bounds.
type Options struct {
	HousesOnly   bool
	DetachedOnly bool
	// MinAcres is passed through verbatim as "<MinAcres>-0"; empty disables it.
	MinAcres string
}

// Filters is an immutable search query. Copy-updating methods return a new
// value; the receiver is never modified.
type Filters struct {
	rect     region.Rect
	opts     Options
	page     int
	pageSize int
}

// Build returns the filters for rect and opts, positioned at the first page
// with the probe page size.
func Build(rect region.Rect, opts Options) Filters {
	return Filters{
		rect:     rect,
		opts:     opts,
		page:     FirstPage,
		pageSize: DefaultProbePageSize,
	}
}

// WithPage returns a copy positioned at page n (1-based).
func (f Filters) WithPage(n int) Filters {
	f.page = n
	return f
}

// WithPageSize returns a copy requesting n records per page.
func (f Filters) WithPageSize(n int) Filters {
	f.pageSize = n
	return f
}

// Page returns the 1-based page cursor.
func (f Filters) Page() int { return f.page }

// PageSize returns the records-per-page value.
func (f Filters) PageSize() int { return f.pageSize }

// Rect returns the geographic bounds.
func (f Filters) Rect() region.Rect { return f.rect }

// Options returns the restriction toggles.
func (f Filters) Options() Options { return f.opts }

// Values renders the filters as the form body expected by PropertySearch_Post.
func (f Filters) Values() url.Values {
	v := url.Values{}
	v.Set("LatitudeMax", formatDegrees(f.rect.LatMax))
	v.Set("LongitudeMax", formatDegrees(f.rect.LonMax))
	v.Set("LatitudeMin", formatDegrees(f.rect.LatMin))
	v.Set("LongitudeMin", formatDegrees(f.rect.LonMin))
	v.Set("Sort", SortKey)
	v.Set("PropertyTypeGroupID", PropertyTypeGroupID)
	v.Set("PropertySearchTypeId", PropertySearchTypeID)
	v.Set("TransactionTypeId", TransactionTypeID)
	v.Set("Currency", Currency)
	v.Set("RecordsPerPage", strconv.Itoa(f.pageSize))
	v.Set("ApplicationId", ApplicationID)
	v.Set("CultureId", CultureID)
	v.Set("CurrentPage", strconv.Itoa(f.page))

	if f.opts.HousesOnly {
		v.Set("BuildingTypeId", BuildingTypeHouse)
	}
	if f.opts.DetachedOnly {
		v.Set("ConstructionStyleId", ConstructionDetached)
	}
	if f.opts.MinAcres != "" {
		v.Set("LandSizeRange", f.opts.MinAcres+"-0")
	}
	return v
}

func formatDegrees(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
