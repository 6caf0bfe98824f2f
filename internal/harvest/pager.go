// Package harvest drives the paginated listing search and feeds every result
// through normalization into the output dataset.
package harvest

import (
	"context"
	"encoding/json"
	"iter"

	"go.uber.org/zap"

	"github.com/sells-group/listing-cli/internal/search"
	"github.com/sells-group/listing-cli/pkg/realtor"
)

// PageCount returns how many pages of size hold total records. Exact
// multiples do not get an extra page.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Page is one fetched slice of the result set. Err is a *PageQueryError when
// the request failed, in which case Listings is empty.
type Page struct {
	Number    int
	Listings  []json.RawMessage
	ErrorCode int
	Err       error
}

// Fetcher issues the probe and page queries against a search client.
type Fetcher struct {
	client realtor.Client
	log    *zap.Logger
}

// NewFetcher creates a Fetcher. A nil logger uses zap.L().
func NewFetcher(client realtor.Client, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.L()
	}
	return &Fetcher{client: client, log: log}
}

// Probe queries filters as given and returns the total record count the
// server reports. Any failure is a *ProbeQueryError.
func (f *Fetcher) Probe(ctx context.Context, filters search.Filters) (int, error) {
	resp, err := f.client.Search(ctx, filters.Values())
	if err != nil {
		return 0, &ProbeQueryError{Err: err}
	}
	return resp.Paging.TotalRecords, nil
}

// Pages returns a lazy sequence over pages 1..count. Each step issues one
// blocking request with filters.WithPage(n); the next request is not sent
// until the consumer asks for the next element. Failed pages are yielded
// with Err set. The sequence ends early when ctx is done or the consumer
// stops, and it cannot be restarted once consumed.
func (f *Fetcher) Pages(ctx context.Context, filters search.Filters, count int) iter.Seq[Page] {
	used := false
	return func(yield func(Page) bool) {
		if used {
			return
		}
		used = true

		for n := search.FirstPage; n <= count; n++ {
			if ctx.Err() != nil {
				return
			}
			if !yield(f.fetchPage(ctx, filters.WithPage(n))) {
				return
			}
		}
	}
}

func (f *Fetcher) fetchPage(ctx context.Context, filters search.Filters) Page {
	n := filters.Page()
	f.log.Info("harvest: getting page", zap.Int("page", n))

	resp, err := f.client.Search(ctx, filters.Values())
	if err != nil {
		f.log.Warn("harvest: page query failed",
			zap.Int("page", n),
			zap.Error(err),
		)
		return Page{Number: n, Err: &PageQueryError{Page: n, Err: err}}
	}

	f.log.Info("harvest: page received",
		zap.Int("page", n),
		zap.Int("records", len(resp.Results)),
		zap.Int("error_code", resp.ErrorCode.ID),
	)
	return Page{Number: n, Listings: resp.Results, ErrorCode: resp.ErrorCode.ID}
}
