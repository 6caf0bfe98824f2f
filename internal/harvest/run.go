package harvest

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-cli/internal/dataset"
	"github.com/sells-group/listing-cli/internal/listing"
	"github.com/sells-group/listing-cli/internal/search"
	"github.com/sells-group/listing-cli/pkg/realtor"
)

// Options configures a harvest run.
type Options struct {
	// Output is the dataset path, with or without the .shp extension.
	Output string
	// PageSize is the records-per-page for the page queries. Zero uses
	// search.DefaultPageSize.
	PageSize int
	// GeoJSON also writes a .geojson sidecar.
	GeoJSON bool
	// Normalizer maps raw results; the zero value uses the realtor.ca defaults.
	Normalizer listing.Normalizer
}

// Result summarizes a completed run.
type Result struct {
	RunID         string
	TotalReported int
	Pages         int
	Added         int
	FailedPages   []int
	Files         []string
}

// Run probes for the total, then fetches, normalizes and writes every page in
// order. A probe failure returns a *ProbeQueryError before any file is
// created. A record with a missing required field aborts the run with a
// *listing.FieldMissingError and discards the partial dataset. Failed pages
// are recorded in Result.FailedPages and skipped.
func Run(ctx context.Context, client realtor.Client, filters search.Filters, opts Options) (*Result, error) {
	if opts.Output == "" {
		return nil, eris.New("harvest: output path is required")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = search.DefaultPageSize
	}

	res := &Result{RunID: uuid.NewString()}
	log := zap.L().With(
		zap.String("component", "harvest"),
		zap.String("run_id", res.RunID),
	)
	fetcher := NewFetcher(client, log)

	total, err := fetcher.Probe(ctx, filters)
	if err != nil {
		log.Error("harvest: getting the number of records failed", zap.Error(err))
		return nil, err
	}
	res.TotalReported = total
	res.Pages = PageCount(total, pageSize)

	log.Info("harvest: result set size",
		zap.Int("total_records", total),
		zap.Int("pages", res.Pages),
		zap.Int("page_size", pageSize),
	)

	var dsOpts []dataset.Option
	if opts.GeoJSON {
		dsOpts = append(dsOpts, dataset.WithGeoJSON())
	}
	w, err := dataset.Create(opts.Output, dsOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "harvest: create dataset")
	}
	defer w.Abort()

	for page := range fetcher.Pages(ctx, filters.WithPageSize(pageSize), res.Pages) {
		if page.Err != nil {
			res.FailedPages = append(res.FailedPages, page.Number)
			continue
		}

		for _, msg := range page.Listings {
			rec, err := opts.Normalizer.NormalizeJSON(msg)
			if err != nil {
				log.Error("harvest: listing could not be normalized",
					zap.Int("page", page.Number),
					zap.Error(err),
				)
				return nil, err
			}
			if err := w.Append(rec); err != nil {
				return nil, eris.Wrapf(err, "harvest: append listing on page %d", page.Number)
			}
			res.Added++
			log.Debug("harvest: adding", zap.String("address", rec.Address))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "harvest: cancelled")
	}

	summary, err := w.Finalize()
	if err != nil {
		return nil, eris.Wrap(err, "harvest: finalize dataset")
	}
	res.Files = summary.Files

	if res.Added > res.TotalReported {
		log.Warn("harvest: server returned more listings than it reported",
			zap.Int("total_records", res.TotalReported),
			zap.Int("added", res.Added),
		)
	}
	log.Info("harvest: complete",
		zap.Int("total_records", res.TotalReported),
		zap.Int("added_features", res.Added),
		zap.Ints("failed_pages", res.FailedPages),
	)

	return res, nil
}
