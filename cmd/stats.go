package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show classification coverage by region and method",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Store.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		cmd.Printf("total %d, classified %d, pending %d\n",
			stats.Total, stats.Classified, stats.Unclassified)
		if len(stats.ByRegion) > 0 {
			cmd.Println("by region:")
			for _, rc := range stats.ByRegion {
				cmd.Printf("  %-14s %-8s %d\n", rc.Code, rc.Name, rc.Count)
			}
		}
		if len(stats.ByMethod) > 0 {
			cmd.Println("by method:")
			for _, mc := range stats.ByMethod {
				cmd.Printf("  %-10s %d\n", mc.Method, mc.Count)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print stats as JSON")
	rootCmd.AddCommand(statsCmd)
}
