package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	collectCount int
	collectJSON  bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection cycle against the Bizinfo feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		count := collectCount
		if count <= 0 {
			count = cfg.Collect.DefaultCount
		}

		stats := env.Collector.Run(cmd.Context(), count, uuid.New().String())

		if collectJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		cmd.Printf("fetched %d, new %d, inserted %d\n",
			stats.TotalFetched, stats.NewAnnouncements, stats.Inserted)
		cmd.Printf("classified: keyword %d, ai %d, still pending %d\n",
			stats.KeywordClassified, stats.AIClassified, stats.ClassificationFailed)
		for _, e := range stats.Errors {
			cmd.Printf("error: %s\n", e)
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVar(&collectCount, "count", 0, "announcements to request (default from config)")
	collectCmd.Flags().BoolVar(&collectJSON, "json", false, "print stats as JSON")
	rootCmd.AddCommand(collectCmd)
}
