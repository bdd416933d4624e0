package usecase

import (
	"testing"
	"time"

	"docrag/internal/domain"
)

func newTestRunner(t *testing.T, llm *mockLLM) (*AnalysisRunner, *IndexUseCase) {
	t.Helper()
	index, _, _ := newTestIndex(t)
	retrieve := NewRetrieveUseCase(index, nil, llm, nil, 0, nil)
	report := NewReportUseCase(llm, nil)
	return NewAnalysisRunner(retrieve, report, nil), index
}

func TestAnalysisRunnerCompletes(t *testing.T) {
	llm := &mockLLM{}
	runner, index := newTestRunner(t, llm)
	seedIndex(t, index, map[string]string{
		"Ladder rungs must be inspected weekly.": "ladders.pdf",
	})

	id := runner.Start(AnalysisRequest{Query: "ladder inspection", K: 5})
	runner.Wait()

	status := runner.Status()
	if status.ID != id {
		t.Fatalf("status ID %q, want %q", status.ID, id)
	}
	if status.State != domain.AnalysisDone {
		t.Fatalf("state %q, want done (error: %s)", status.State, status.Error)
	}
	if status.Progress != 100 {
		t.Errorf("progress %d, want 100", status.Progress)
	}
	if len(status.Results) == 0 {
		t.Error("expected results in the status cell")
	}
	if status.Report != "" {
		t.Error("no report requested, report should be empty")
	}
}

func TestAnalysisRunnerWithReport(t *testing.T) {
	llm := &mockLLM{}
	runner, index := newTestRunner(t, llm)
	seedIndex(t, index, map[string]string{
		"Scaffold anchor points failed the load test.": "scaffolds.pdf",
	})

	runner.Start(AnalysisRequest{Query: "scaffold anchors", K: 5, WithReport: true})
	runner.Wait()

	status := runner.Status()
	if status.State != domain.AnalysisDone {
		t.Fatalf("state %q, want done (error: %s)", status.State, status.Error)
	}
	if status.Report == "" {
		t.Error("expected a generated report")
	}
}

func TestAnalysisRunnerFailureState(t *testing.T) {
	llm := &mockLLM{}
	runner, _ := newTestRunner(t, llm)

	// Empty index and empty query: Search rejects it.
	runner.Start(AnalysisRequest{Query: "   ", K: 5})
	runner.Wait()

	status := runner.Status()
	if status.State != domain.AnalysisFailed {
		t.Fatalf("state %q, want failed", status.State)
	}
	if status.Error == "" {
		t.Error("expected an error message in the status cell")
	}
}

func TestAnalysisRunnerSupersedes(t *testing.T) {
	llm := &mockLLM{}
	runner, index := newTestRunner(t, llm)
	seedIndex(t, index, map[string]string{
		"Conveyor belt guard removed without authorization.": "conveyors.pdf",
	})

	first := runner.Start(AnalysisRequest{Query: "conveyor guards", K: 5})
	second := runner.Start(AnalysisRequest{Query: "belt guards", K: 5})
	runner.Wait()

	if first == second {
		t.Fatal("each start must mint a fresh ID")
	}

	// The first run may still be unwinding; only the second may own the
	// status cell.
	deadline := time.After(2 * time.Second)
	for {
		status := runner.Status()
		if status.ID != second {
			t.Fatalf("status owned by %q, want %q", status.ID, second)
		}
		if status.State == domain.AnalysisDone {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("second run never finished, state %q", status.State)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAnalysisRunnerStatusIsACopy(t *testing.T) {
	llm := &mockLLM{}
	runner, index := newTestRunner(t, llm)
	seedIndex(t, index, map[string]string{"Text.": "a.pdf"})

	runner.Start(AnalysisRequest{Query: "text", K: 5})
	runner.Wait()

	status := runner.Status()
	status.State = domain.AnalysisFailed
	status.Error = "mutated"

	if got := runner.Status(); got.State != domain.AnalysisDone || got.Error != "" {
		t.Error("mutating a returned status must not affect the runner")
	}
}
