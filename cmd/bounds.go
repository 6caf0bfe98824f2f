package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/listing-cli/internal/region"
)

var boundsCmd = &cobra.Command{
	Use:   "bounds <kml>",
	Short: "Print the search rectangle derived from a KML document",
	Args:  withUsage(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		rect, err := region.ExtractFile(args[0])
		if err != nil {
			return eris.Wrap(err, "bounds")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rect)
		}
		fmt.Fprintln(cmd.OutOrStdout(), rect.String())
		return nil
	},
}

func init() {
	boundsCmd.Flags().Bool("json", false, "print the rectangle as JSON")
	rootCmd.AddCommand(boundsCmd)
}
