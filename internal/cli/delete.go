package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <source-file>",
	Short: "Remove a source file's chunks from the index",
	Long: `Remove every indexed chunk that came from the named source file.
The name is the file's base name as shown by 'docrag stats'.

Example:
  docrag delete old-report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := requireIndex(cfg); err != nil {
		return err
	}

	index, st, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := index.DeleteSource(args[0])
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if removed == 0 {
		fmt.Printf("No chunks found for source %q.\n", args[0])
		return nil
	}
	fmt.Printf("Removed %d chunks from source %q.\n", removed, args[0])
	return nil
}
