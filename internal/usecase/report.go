package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// pipelineStage is one step of the report pipeline. Each stage receives
// the optimized instruction from the first stage and the previous
// stage's output, so later stages stay anchored to the original request.
type pipelineStage struct {
	name   string
	role   string
	prompt func(instruction, previous string) string
}

// ReportUseCase turns ranked retrieval context into a formatted Markdown
// report through a strict linear chain of LLM stages. Any stage that
// returns empty halts the pipeline; no partial report is assembled.
type ReportUseCase struct {
	llm    port.LLM
	logger *slog.Logger
}

func NewReportUseCase(llm port.LLM, logger *slog.Logger) *ReportUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportUseCase{llm: llm, logger: logger}
}

// Generate produces the final report for the query from the ranked
// results. Results are first condensed into per-file summaries, which
// become the context for the pipeline.
func (u *ReportUseCase) Generate(ctx context.Context, query string, results []domain.ScoredResult) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query must not be empty")
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no retrieval context available for report generation")
	}

	context_, err := u.summarizeByFile(ctx, results)
	if err != nil {
		return "", err
	}

	return u.runPipeline(ctx, query, context_)
}

// runPipeline executes the seven stages in order.
func (u *ReportUseCase) runPipeline(ctx context.Context, query, retrievedContext string) (string, error) {
	instruction, err := u.llm.Chat(ctx, "prompt optimization", optimizePrompt(query, retrievedContext))
	if err != nil || strings.TrimSpace(instruction) == "" {
		u.logger.Error("report pipeline halted", "stage", "optimize", "error", err)
		return "", stageFailure("Prompt optimization", err)
	}

	stages := []pipelineStage{
		{name: "Retrieval agent", role: "Retrieval Agent", prompt: func(inst, _ string) string {
			return retrievalPrompt(inst, retrievedContext)
		}},
		{name: "Filtering agent", role: "Filtering Agent", prompt: filterPrompt},
		{name: "Analysis agent", role: "Analysis Agent", prompt: analysisPrompt},
		{name: "Contextualization agent", role: "Contextualization Agent", prompt: contextualizePrompt},
		{name: "Summarization agent", role: "Summarization Agent", prompt: summarizePrompt},
		{name: "Refinement agent", role: "Refinement Agent", prompt: refinePrompt},
	}

	output := instruction
	for _, stage := range stages {
		next, err := u.llm.Chat(ctx, stage.role, stage.prompt(instruction, output))
		if err != nil || strings.TrimSpace(next) == "" {
			u.logger.Error("report pipeline halted", "stage", stage.name, "error", err)
			return "", stageFailure(stage.name, err)
		}
		output = next
	}

	return output, nil
}

func stageFailure(stage string, err error) error {
	if err != nil {
		return fmt.Errorf("%s failed: %w", stage, err)
	}
	return fmt.Errorf("%s failed: empty output", stage)
}

// summarizeByFile groups results by source file, summarizes each group
// (most relevant first), and merges the per-file summaries into one
// context block.
func (u *ReportUseCase) summarizeByFile(ctx context.Context, results []domain.ScoredResult) (string, error) {
	bySource := make(map[string][]domain.ScoredResult)
	var order []string
	for _, r := range results {
		if _, seen := bySource[r.Chunk.Source]; !seen {
			order = append(order, r.Chunk.Source)
		}
		bySource[r.Chunk.Source] = append(bySource[r.Chunk.Source], r)
	}

	summaries := make([]string, 0, len(order))
	for _, source := range order {
		group := bySource[source]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].OrderingScore() > group[j].OrderingScore()
		})

		texts := make([]string, len(group))
		for i, r := range group {
			texts[i] = r.Chunk.Text
		}

		summary, err := u.summarizeData(ctx, strings.Join(texts, "\n"))
		if err != nil {
			return "", fmt.Errorf("failed to summarize %q: %w", source, err)
		}
		summaries = append(summaries, fmt.Sprintf("From %s:\n%s", source, summary))
	}

	if len(summaries) == 1 {
		return summaries[0], nil
	}
	return u.fullSummary(ctx, summaries)
}

// summarizeData condenses a block of retrieved text into one formal
// paragraph.
func (u *ReportUseCase) summarizeData(ctx context.Context, data string) (string, error) {
	prompt := fmt.Sprintf(
		`Please summarize the following content in a clear, concise, and formal paragraph:

- Focus on the key points and essential details.
- Maintain the context necessary for understanding.
- Avoid unnecessary repetition and extraneous information.
- Write in a paragraph only.
- Write the summary as a single paragraph without mentioning the process.

### Content:
%s

Return the final summary as a single formal paragraph.`,
		data,
	)
	return u.llm.Chat(ctx, "summarization", prompt)
}

// fullSummary merges per-file summaries into a single combined summary.
func (u *ReportUseCase) fullSummary(ctx context.Context, summaries []string) (string, error) {
	return u.summarizeData(ctx, strings.Join(summaries, "\n"))
}

func optimizePrompt(query, context string) string {
	return fmt.Sprintf(
		`Optimize the following user instruction based on the provided context. Improve clarity, structure, and step efficiency to ensure precise AI-generated reports.

- Refine vague or broad queries into well-defined, structured instructions.
- Incorporate relevant context into the query to make it more specific.
- Break down complex requests into a sequence of clear steps.
- Ensure the instruction aligns with industry standards for structured reporting.
- Remove unnecessary words or ambiguity to improve efficiency.

### User Instruction:
%s

### Provided Context:
%s

Return the optimized instruction in a concise format that ensures the best possible response.`,
		query, context,
	)
}

func retrievalPrompt(instruction, context string) string {
	return fmt.Sprintf(
		`Find the most relevant and detailed data for the following request. Extract full information, including statistics, incident records, expert opinions, and any supporting evidence.

Ensure the response includes:
- Historical background and trends.
- Relevant technical details.
- Risk assessments and real-world implications.
- Regulations and compliance considerations.

Format the response as detailed paragraphs.

### Optimized Instruction:
%s

### Context:
%s`,
		instruction, context,
	)
}

func filterPrompt(instruction, previous string) string {
	return fmt.Sprintf(
		`Refine the extracted data by removing irrelevant, redundant, or overly generic information, keeping it anchored to the instruction below.

Keep:
- Specific technical details.
- Data-driven insights.
- Real-world incidents or case studies.
- Actionable recommendations.

Ensure the response remains well-structured and improves clarity while maintaining depth.

### Instruction:
%s

### Extracted Data:
%s`,
		instruction, previous,
	)
}

func analysisPrompt(instruction, previous string) string {
	return fmt.Sprintf(
		`Analyze the following data and extract the key findings in a detailed and structured manner, guided by the instruction below.

For each key issue:
- Provide a full explanation with causes and implications.
- Discuss any historical or statistical relevance.
- Highlight industry regulations and best practices.

Use full paragraphs instead of just bullet points to ensure a comprehensive analysis.

### Instruction:
%s

### Data:
%s`,
		instruction, previous,
	)
}

func contextualizePrompt(instruction, previous string) string {
	return fmt.Sprintf(
		`Expand on the key points below by adding missing insights, real-world examples, historical context, and regulatory considerations, staying aligned with the instruction.

For each key point:
- Explain the background: why is this issue important? Has it been a problem in the past?
- Provide industry-specific regulations: are there laws, safety standards, or compliance requirements related to this?
- Identify potential risks: what happens if this issue is ignored? What are the short-term and long-term consequences?
- Incorporate real-world case studies: reference past incidents or industry best practices.
- Explore future implications: how might this issue evolve? Are there emerging technologies or solutions to address it?

Ensure the response has a clear logical flow, maintains a formal and professional tone, and avoids redundant explanations.

### Instruction:
%s

### Key Points:
%s`,
		instruction, previous,
	)
}

func summarizePrompt(instruction, previous string) string {
	return fmt.Sprintf(
		`Using the detailed key points and formal writing, generate a comprehensive business report satisfying the instruction below.

The report should contain:
- Introduction: a well-written overview explaining the background and significance of the issue.
- Key Findings: a structured analysis of major risks and their implications.
- Corrective Actions: a well-organized list of immediate steps to mitigate risks.
- Ongoing Monitoring & Compliance: long-term strategies for maintaining safety and operational standards.
- Training & Awareness: the role of education and drills in preventing failures.
- Recommendations: clear, actionable solutions with explanations.

Use full paragraphs, a formal business tone, and make sure the report is engaging, well-reasoned, and not too short.
Note: avoid phrases like "It appears" or "This content" or "Here are the summaries:" or "Comprehensive Business Report".

### Instruction:
%s

### Key Points:
%s`,
		instruction, previous,
	)
}

func refinePrompt(instruction, previous string) string {
	return fmt.Sprintf(
		`Refine the following report to ensure clarity, logical flow, and strong Markdown formatting, keeping it aligned with the instruction.

- Expand on technical explanations where needed.
- Improve transitions between sections.
- Ensure a smooth narrative flow instead of isolated bullet points.
- Format properly with headings and well-structured paragraphs.
- Produce Markdown-formatted output.
- Use only third-person, formal voice.
- Avoid phrases like "It appears" or "This content" or "Here are the summaries:" or "Comprehensive Business Report".

The final result should read like a professionally prepared industry report in Markdown format.

### Instruction:
%s

### Report:
%s`,
		instruction, previous,
	)
}
