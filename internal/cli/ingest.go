package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/extract"
	"docrag/internal/adapter/fs"
	"docrag/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest documents into the index",
	Long: `Ingest PDF, DOCX, CSV and XLSX files into the vector index.
Directories are walked recursively; individual files are ingested as-is.
Duplicate content is detected by fingerprint and skipped.

Examples:
  docrag ingest ./uploads
  docrag ingest report.pdf minutes.docx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No supported files found.")
		return nil
	}

	index, st, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ingest := usecase.NewIngestUseCase(
		extract.NewFileExtractor(cfg.Ingest.BatchRows),
		chunker.NewSentenceChunker(cfg.Ingest.ChunkSize, cfg.Ingest.Overlap),
		index,
		nil,
	)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	result, err := ingest.Ingest(cmd.Context(), files, func(done, total int) {
		bar.Set(done)
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Files ingested:   %d\n", result.FilesIngested)
	fmt.Printf("  Files failed:     %d\n", result.FilesFailed)
	fmt.Printf("  Chunks considered: %d\n", result.ChunksConsidered)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", cfg.StorePath(rootDir))
	return nil
}

// collectFiles expands directory arguments through the walker and keeps
// explicit file arguments as given, rejecting unsupported types.
func collectFiles(args []string) ([]string, error) {
	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)

	var files []string
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("path does not exist: %w", err)
		}

		if info.IsDir() {
			found, err := walker.Walk(path)
			if err != nil {
				return nil, fmt.Errorf("failed to walk %s: %w", path, err)
			}
			files = append(files, found...)
			continue
		}

		if !extract.Supported(path) {
			return nil, fmt.Errorf("unsupported file type: %s", path)
		}
		if info.Size() > extract.MaxFileSize {
			return nil, fmt.Errorf("file too large (limit %d bytes): %s", extract.MaxFileSize, path)
		}
		files = append(files, path)
	}
	return files, nil
}
