package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := requireIndex(cfg); err != nil {
		return err
	}

	index, st, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	count, err := index.Count()
	if err != nil {
		return err
	}
	sources, err := index.Sources()
	if err != nil {
		return err
	}

	fmt.Printf("Index: %s\n", cfg.StorePath(rootDir))
	fmt.Printf("  Chunks:  %d\n", count)
	fmt.Printf("  Sources: %d\n", len(sources))
	for _, s := range sources {
		fmt.Printf("    - %s\n", s)
	}
	return nil
}
