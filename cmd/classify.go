package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/rotisserie/eris"
)

var (
	classifyLimit int
	classifyID    string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify pending announcements without fetching the feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()

		if classifyID != "" {
			ann, err := env.Store.GetAnnouncement(ctx, classifyID)
			if err != nil {
				return err
			}
			if ann == nil {
				return eris.Errorf("announcement not found: %s", classifyID)
			}

			res := env.Orchestrator.ClassifyOne(ctx, *ann)
			if err := env.Store.UpdateClassification(ctx, classifyID, res); err != nil {
				return err
			}
			cmd.Printf("%s -> %s (%s, confidence %.2f)\n",
				classifyID, *res.RegionCode, res.Method, res.Confidence)
			return nil
		}

		limit := classifyLimit
		if limit <= 0 {
			limit = cfg.Classify.BacklogLimit
		}
		backlog, err := env.Store.GetUnclassified(ctx, limit)
		if err != nil {
			return err
		}
		if len(backlog) == 0 {
			cmd.Println("nothing pending")
			return nil
		}

		out := env.Orchestrator.Run(ctx, backlog)
		cmd.Printf("classified %d by keyword, %d by ai, %d still pending\n",
			out.Keyword, out.AI, out.Failed)

		if env.AI != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(env.AI.Usage())
		}
		return nil
	},
}

func init() {
	classifyCmd.Flags().IntVar(&classifyLimit, "limit", 0, "max pending announcements to classify (default from config)")
	classifyCmd.Flags().StringVar(&classifyID, "id", "", "classify a single announcement by external id")
	rootCmd.AddCommand(classifyCmd)
}
