package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/usecase"
)

var (
	reportQuery    string
	reportNoExpand bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a Markdown report for a query",
	Long: `Retrieve relevant context for the query, expand the result set while
an LLM judges the marginal result relevant, and run the retrieved context
through a multi-stage report pipeline. The final output is a formatted
Markdown report on stdout.

Examples:
  docrag report -q "crane safety incidents"
  docrag report -q "maintenance backlog" --no-expand`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportQuery, "query", "q", "", "report topic (required)")
	reportCmd.Flags().BoolVar(&reportNoExpand, "no-expand", false, "skip adaptive result-set expansion")
	reportCmd.MarkFlagRequired("query")
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := requireIndex(cfg); err != nil {
		return err
	}

	index, st, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	chat, err := buildLLM(cfg)
	if err != nil {
		return fmt.Errorf("report generation needs a chat model: %w", err)
	}

	retrieve, err := buildRetrieve(cfg, index, chat)
	if err != nil {
		return err
	}

	runner := usecase.NewAnalysisRunner(retrieve, usecase.NewReportUseCase(chat, slog.Default()), slog.Default())

	req := usecase.AnalysisRequest{
		Query:      reportQuery,
		K:          cfg.Retrieve.TopK,
		Expand:     !reportNoExpand,
		InitialK:   cfg.Expansion.InitialK,
		Step:       cfg.Expansion.Step,
		MaxK:       cfg.Expansion.MaxK,
		WithReport: true,
	}

	runner.Start(req)

	bar := progressbar.NewOptions(100,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Analyzing[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	// Poll the status cell until the background worker finishes.
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		status := runner.Status()
		bar.Set(status.Progress)
		if status.State == domain.AnalysisDone || status.State == domain.AnalysisFailed {
			break
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
	runner.Wait()

	status := runner.Status()
	if status.State == domain.AnalysisFailed {
		return fmt.Errorf("analysis failed: %s", status.Error)
	}

	fmt.Printf("\nContext: %d results\n\n", len(status.Results))
	fmt.Println(status.Report)
	return nil
}
