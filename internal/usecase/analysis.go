package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"docrag/internal/domain"
)

// AnalysisRunner executes one analysis request at a time on a background
// goroutine and publishes progress to a mutex-protected status cell that
// a polling read path consumes. Starting a new request cancels the
// previous one: only one analysis result is observable at a time, which
// is an accepted single-flight constraint of this tool.
type AnalysisRunner struct {
	retrieve *RetrieveUseCase
	report   *ReportUseCase
	logger   *slog.Logger

	mu     sync.Mutex
	status domain.AnalysisStatus
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAnalysisRunner(retrieve *RetrieveUseCase, report *ReportUseCase, logger *slog.Logger) *AnalysisRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisRunner{
		retrieve: retrieve,
		report:   report,
		logger:   logger,
	}
}

// AnalysisRequest describes one analysis run.
type AnalysisRequest struct {
	Query  string
	K      int
	Expand bool
	// Expansion parameters, used when Expand is set.
	InitialK int
	Step     int
	MaxK     int
	// WithReport runs the report pipeline after retrieval.
	WithReport bool
}

// Start launches the request on a background worker and returns its ID
// immediately. A previous in-flight request is cancelled.
func (r *AnalysisRunner) Start(req AnalysisRequest) string {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	id := uuid.NewString()
	r.status = domain.AnalysisStatus{
		ID:    id,
		State: domain.AnalysisPending,
	}
	done := r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.run(ctx, id, req)
	}()

	return id
}

// Status returns a copy of the current progress cell.
func (r *AnalysisRunner) Status() domain.AnalysisStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Wait blocks until the current request finishes. Used by tests and the
// synchronous CLI surface.
func (r *AnalysisRunner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (r *AnalysisRunner) run(ctx context.Context, id string, req AnalysisRequest) {
	r.publish(id, func(s *domain.AnalysisStatus) {
		s.State = domain.AnalysisRunning
		s.Progress = 10
	})

	var results []domain.ScoredResult
	var err error
	if req.Expand {
		results, err = r.retrieve.Expand(ctx, req.Query, req.InitialK, req.Step, req.MaxK)
	} else {
		results, err = r.retrieve.Search(ctx, req.Query, req.K)
	}
	if err != nil {
		r.fail(ctx, id, err)
		return
	}

	r.publish(id, func(s *domain.AnalysisStatus) {
		s.Progress = 50
		s.Results = results
	})

	if !req.WithReport {
		r.publish(id, func(s *domain.AnalysisStatus) {
			s.State = domain.AnalysisDone
			s.Progress = 100
		})
		return
	}

	reportText, err := r.report.Generate(ctx, req.Query, results)
	if err != nil {
		r.fail(ctx, id, err)
		return
	}

	r.publish(id, func(s *domain.AnalysisStatus) {
		s.State = domain.AnalysisDone
		s.Progress = 100
		s.Report = reportText
	})
}

// publish mutates the status cell under the lock, but only while this
// request is still the observable one (a superseding Start swaps the ID).
func (r *AnalysisRunner) publish(id string, mutate func(*domain.AnalysisStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.ID != id {
		return
	}
	mutate(&r.status)
}

func (r *AnalysisRunner) fail(ctx context.Context, id string, err error) {
	if ctx.Err() != nil {
		// Superseded or shut down; the new request owns the cell.
		return
	}
	r.logger.Error("analysis failed", "id", id, "error", err)
	r.publish(id, func(s *domain.AnalysisStatus) {
		s.State = domain.AnalysisFailed
		s.Progress = 100
		s.Error = err.Error()
	})
}
