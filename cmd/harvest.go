package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-cli/internal/harvest"
	"github.com/sells-group/listing-cli/internal/listing"
	"github.com/sells-group/listing-cli/internal/region"
	"github.com/sells-group/listing-cli/internal/search"
	"github.com/sells-group/listing-cli/pkg/realtor"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest <kml> <cookie> <output> <housesOnly> <detachedOnly> [minAcres]",
	Short: "Fetch every listing in a KML bounding box into a shapefile",
	Long: `Automatically gets all house listings in the bounding box of the supplied
KML file from realtor.ca and creates a point shapefile of those listings.

  kml           path to the area-of-interest KML document
  cookie        realtor.ca session cookie, sent verbatim
  output        output dataset name (.shp, .shx, .dbf and .prj are written)
  housesOnly    "true" restricts to houses
  detachedOnly  "true" restricts to detached construction
  minAcres      optional minimum land size in acres`,
	Args: withUsage(cobra.RangeArgs(5, 6)),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		geoJSON := cfg.Output.GeoJSON
		if cmd.Flags().Changed("geojson") {
			geoJSON, _ = cmd.Flags().GetBool("geojson")
		}

		return runHarvest(ctx, cmd.OutOrStdout(), parseHarvestArgs(args), geoJSON)
	},
}

func init() {
	harvestCmd.Flags().Bool("geojson", false, "also write a .geojson sidecar (default: from config)")
	rootCmd.AddCommand(harvestCmd)
}

type harvestArgs struct {
	KML     string
	Cookie  string
	Output  string
	Options search.Options
}

// parseHarvestArgs maps the positional arguments. Only the literal "true"
// enables a restriction.
func parseHarvestArgs(args []string) harvestArgs {
	ha := harvestArgs{
		KML:    args[0],
		Cookie: args[1],
		Output: args[2],
		Options: search.Options{
			HousesOnly:   args[3] == "true",
			DetachedOnly: args[4] == "true",
		},
	}
	if len(args) == 6 {
		ha.Options.MinAcres = strings.TrimSpace(args[5])
	}
	return ha
}

func newRealtorClient(cookie string) realtor.Client {
	return realtor.NewClient(cookie,
		realtor.WithBaseURL(cfg.Realtor.SearchURL),
		realtor.WithReferer(cfg.Realtor.Referer),
		realtor.WithUserAgent(cfg.Realtor.UserAgent),
		realtor.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Realtor.TimeoutSecs) * time.Second,
		}),
	)
}

func runHarvest(ctx context.Context, out io.Writer, ha harvestArgs, geoJSON bool) error {
	log := zap.L().With(zap.String("command", "harvest"))

	rect, err := region.ExtractFile(ha.KML)
	if err != nil {
		return eris.Wrap(err, "harvest: read area of interest")
	}
	log.Info("harvest: area of interest",
		zap.String("kml", ha.KML),
		zap.String("bbox", rect.String()),
		zap.Bool("houses_only", ha.Options.HousesOnly),
		zap.Bool("detached_only", ha.Options.DetachedOnly),
		zap.String("min_acres", ha.Options.MinAcres),
	)

	filters := search.Build(rect, ha.Options).WithPageSize(cfg.Realtor.ProbePageSize)

	res, err := harvest.Run(ctx, newRealtorClient(ha.Cookie), filters, harvest.Options{
		Output:     ha.Output,
		PageSize:   cfg.Realtor.PageSize,
		GeoJSON:    geoJSON,
		Normalizer: listing.Normalizer{SitePrefix: cfg.Realtor.SitePrefix},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "total results: %d\n", res.TotalReported)
	fmt.Fprintf(out, "added features: %d\n", res.Added)
	if len(res.FailedPages) > 0 {
		fmt.Fprintf(out, "failed pages: %v\n", res.FailedPages)
	}
	for _, f := range res.Files {
		fmt.Fprintf(out, "wrote %s\n", f)
	}
	return nil
}
