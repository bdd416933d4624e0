package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	queryText   string
	queryTopK   int
	queryExpand bool
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search ingested documents",
	Long: `Search the index for chunks relevant to the query. Results carry a
normalized similarity score and a relevancy tier (high/medium/low).
With --expand, the result set widens step by step while an LLM judges
the marginal result still relevant.

Examples:
  docrag query -q "crane inspection findings"
  docrag query -q "forklift incidents" -k 10 --json
  docrag query -q "hydraulic failures" --expand`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryExpand, "expand", false, "adaptively expand the result set")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

// queryResult is the JSON output shape for one result row.
type queryResult struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Tier   string  `json:"tier"`
	Text   string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := requireIndex(cfg); err != nil {
		return err
	}

	index, st, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var oracle port.LLM
	if queryExpand {
		oracle, err = buildLLM(cfg)
		if err != nil {
			return fmt.Errorf("--expand needs a chat model: %w", err)
		}
	}

	retrieve, err := buildRetrieve(cfg, index, oracle)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	var results []domain.ScoredResult
	if queryExpand {
		results, err = retrieve.Expand(cmd.Context(), queryText, cfg.Expansion.InitialK, cfg.Expansion.Step, cfg.Expansion.MaxK)
	} else {
		results, err = retrieve.Search(cmd.Context(), queryText, topK)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return printResults(results)
}

func printResults(results []domain.ScoredResult) error {
	if queryJSON {
		rows := make([]queryResult, len(results))
		for i, r := range results {
			rows[i] = queryResult{
				Source: r.Chunk.Source,
				Score:  r.OrderingScore(),
				Tier:   string(r.Tier),
				Text:   r.Chunk.Text,
			}
		}
		output, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (score: %.3f, tier: %s) ---\n", i+1, r.Chunk.Source, r.OrderingScore(), r.Tier)
		text := r.Chunk.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}
