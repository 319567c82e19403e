package main

import (
	"github.com/spf13/cobra"

	"github.com/gyeongnam-biz/collector-cli/internal/region"
	"github.com/gyeongnam-biz/collector-cli/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and seed the region taxonomy",
	RunE: func(cmd *cobra.Command, args []string) error {
		taxonomy := region.NewTaxonomy()
		st, err := store.Open(cmd.Context(), cfg.Store, taxonomy)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		cmd.Printf("schema ready, %d regions seeded\n", len(taxonomy.All()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
