package commands

import (
	"fmt"

	"cricket-stream-scraper/internal/scraper"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(variantsCmd)
}

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "Lists the available scraper variants.",
	Run: func(cmd *cobra.Command, args []string) {
		for _, v := range scraper.Variants() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", v, scraper.Describe(v))
		}
	},
}
