package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/lehigh-university-libraries/styleshift/internal/catalog"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the built-in outfit catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := catalog.All()
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSENSITIVE\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s %s\t%t\t%s\n", e.ID, e.Icon, e.Name, e.Sensitive, e.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")

	return cmd
}
