// Package importer implements the couples bulk-import flow: CSV parsing,
// the sequential row importer, and the run registry that the web layer
// subscribes to for progress.
package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nuptia/admin/internal/couple"
	"github.com/nuptia/admin/internal/logging"
	"github.com/nuptia/admin/internal/metrics"
)

// CoupleCreator issues one creation request against the hosted backend.
type CoupleCreator interface {
	CreateCouple(ctx context.Context, req couple.CreateRequest) error
}

// Options configures a Service.
type Options struct {
	// MaxConcurrent bounds simultaneous runs (default: 5).
	MaxConcurrent int
	// MaxWaitTime is how long StartRun waits for a slot (default: 30s).
	MaxWaitTime time.Duration
	// ResultRetention is how long a finished run stays queryable (default: 5m).
	ResultRetention time.Duration
}

// Service owns all import runs. Runs are kept in memory only; a run that
// has been evicted after its retention window is gone, matching the
// ephemeral lifecycle of the import UI.
type Service struct {
	client    CoupleCreator
	limiter   *RunLimiter
	retention time.Duration

	mu   sync.RWMutex
	runs map[string]*activeRun
}

type activeRun struct {
	ID       string
	FileName string
	Rows     []couple.ImportRow
	Done     chan struct{}
	Result   *RunResult

	// mu guards Progress, Outcomes, and Listeners. They are written only
	// from the run's own goroutine; the lock exists for snapshot readers.
	mu        sync.Mutex
	Progress  RunProgress
	Outcomes  []Outcome
	Listeners []chan RunProgress
}

// NewService creates a Service that submits rows through client.
func NewService(client CoupleCreator, opts Options) *Service {
	retention := opts.ResultRetention
	if retention <= 0 {
		retention = 5 * time.Minute
	}

	return &Service{
		client:    client,
		limiter:   NewRunLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		retention: retention,
		runs:      make(map[string]*activeRun),
	}
}

// Limiter exposes the run limiter for shutdown draining.
func (s *Service) Limiter() *RunLimiter {
	return s.limiter
}

// StartRun parses fileText and begins a bulk import run.
// It returns the run ID immediately; the rows are submitted one at a time
// in the background. Use SubscribeProgress or Result to follow the run.
//
// The run itself is never cancelled: it uses a fresh background context so
// that an operator abandoning the page does not abort requests already in
// flight, and the loop always drives the run to completion.
func (s *Service) StartRun(ctx context.Context, fileName, fileText string) (string, error) {
	rows := ParseRows(fileText)
	if len(rows) == 0 {
		return "", fmt.Errorf("no data rows in %s", fileName)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	runID := uuid.New().String()
	run := &activeRun{
		ID:       runID,
		FileName: fileName,
		Rows:     rows,
		Done:     make(chan struct{}),
		Progress: RunProgress{
			RunID:     runID,
			FileName:  fileName,
			State:     StateIdle,
			TotalRows: len(rows),
		},
		Outcomes: make([]Outcome, 0, len(rows)),
	}

	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	go s.processRun(run)

	return runID, nil
}

// processRun is the sequential importer loop: one creation request per row,
// strictly in input order, one at a time. A failed row never halts the run;
// it is recorded as a Failed outcome and the loop moves on.
func (s *Service) processRun(run *activeRun) {
	start := time.Now()
	logger := logging.WithFields(context.Background(), "run_id", run.ID, "file", run.FileName)

	defer func() {
		run.closeListeners()
		close(run.Done)
		s.limiter.Release()
		s.cleanup(run.ID, s.retention)
	}()

	// The run owns its own lifetime; see StartRun.
	ctx := context.Background()

	run.setState(StateRunning)
	logger.Info("import run started", "rows", len(run.Rows))

	succeeded := 0
	for i, row := range run.Rows {
		req := row.CreateRequest()

		status := StatusSuccess
		if err := s.client.CreateCouple(ctx, req); err != nil {
			// Logged for diagnostics only; the operator sees just the
			// Failed tag on this row.
			logger.Warn("row import failed",
				"row", i+1,
				"name", req.Name,
				"error", err,
			)
			status = StatusFailed
		} else {
			succeeded++
		}

		run.recordOutcome(Outcome{Name: req.Name, Email: req.Email, Status: status})
		metrics.ImportRows.WithLabelValues(string(status)).Inc()
	}

	duration := time.Since(start)
	result := &RunResult{
		RunID:        run.ID,
		FileName:     run.FileName,
		TotalRows:    len(run.Rows),
		Succeeded:    succeeded,
		Failed:       len(run.Rows) - succeeded,
		Duration:     duration,
		DurationMs:   duration.Milliseconds(),
		Notification: completionNotification(succeeded, len(run.Rows)),
	}

	run.finish(result)
	metrics.ImportRuns.Inc()
	metrics.ImportRunDuration.Observe(duration.Seconds())

	logger.Info("import run completed",
		"rows", result.TotalRows,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration_ms", duration.Milliseconds(),
	)
}

// SubscribeProgress returns a channel that receives progress updates for a
// run. The current snapshot is delivered immediately and the channel is
// closed when the run completes.
func (s *Service) SubscribeProgress(runID string) (<-chan RunProgress, error) {
	run, err := s.get(runID)
	if err != nil {
		return nil, err
	}

	ch := make(chan RunProgress, 16)

	run.mu.Lock()
	defer run.mu.Unlock()

	select {
	case <-run.Done:
		// Already finished; replay the final snapshot and close.
		ch <- run.Progress
		close(ch)
	default:
		run.Listeners = append(run.Listeners, ch)
		select {
		case ch <- run.Progress:
		default:
		}
	}

	return ch, nil
}

// Progress returns the current progress snapshot without blocking.
func (s *Service) Progress(runID string) (RunProgress, error) {
	run, err := s.get(runID)
	if err != nil {
		return RunProgress{}, err
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	return run.Progress, nil
}

// Result blocks until the run completes and returns its final report,
// including the ordered per-row outcomes.
func (s *Service) Result(runID string) (*RunResult, error) {
	run, err := s.get(runID)
	if err != nil {
		return nil, err
	}

	<-run.Done
	return run.Result, nil
}

func (s *Service) get(runID string) (*activeRun, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("import run not found: %s", runID)
	}
	return run, nil
}

// cleanup removes the run from tracking after a delay.
func (s *Service) cleanup(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}

func (run *activeRun) setState(state RunState) {
	run.mu.Lock()
	run.Progress.State = state
	run.notifyLocked()
	run.mu.Unlock()
}

// recordOutcome appends one outcome and advances the percentage. Exactly
// one outcome exists per row; the outcome list length always equals the
// completed counter.
func (run *activeRun) recordOutcome(o Outcome) {
	run.mu.Lock()
	run.Outcomes = append(run.Outcomes, o)
	run.Progress.Completed = len(run.Outcomes)
	if o.Status == StatusSuccess {
		run.Progress.Succeeded++
	} else {
		run.Progress.Failed++
	}
	run.Progress.Percent = percentDone(run.Progress.Completed, run.Progress.TotalRows)
	run.notifyLocked()
	run.mu.Unlock()
}

// finish marks the run completed with progress pinned at exactly 100 and
// attaches the ordered outcomes to the result.
func (run *activeRun) finish(result *RunResult) {
	run.mu.Lock()
	run.Progress.State = StateCompleted
	run.Progress.Percent = 100
	result.Outcomes = run.Outcomes
	run.Result = result
	run.notifyLocked()
	run.mu.Unlock()
}

// notifyLocked sends the current progress to all listeners.
// Callers must hold run.mu.
func (run *activeRun) notifyLocked() {
	for _, ch := range run.Listeners {
		select {
		case ch <- run.Progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

// closeListeners closes all listener channels.
func (run *activeRun) closeListeners() {
	run.mu.Lock()
	defer run.mu.Unlock()

	for _, ch := range run.Listeners {
		close(ch)
	}
	run.Listeners = nil
}
