package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Coordinator runs multi-account scans in the background. Each scan is a
// full orchestrator run whose unit lifecycle feeds a live status
// snapshot, so callers can poll progress while the waves work through
// accounts and frameworks.
type Coordinator struct {
	cfg Config

	mu    sync.Mutex
	scans map[string]*scanTracker
}

func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		cfg:   cfg,
		scans: make(map[string]*scanTracker),
	}
}

// Start validates the request, registers a tracker and launches the scan
// in the background. The returned id addresses Status, Result, Wait and
// Cancel. The scan is detached from the caller's context; only Cancel or
// completion stop it.
func (c *Coordinator) Start(ctx context.Context, req domain.AnalysisRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}
	if c.cfg.Registry == nil {
		return "", &domain.ConfigurationError{Field: "registry", Reason: "framework registry is required"}
	}
	if _, err := resolveFrameworks(ctx, c.cfg.Registry, req.FrameworkIDs); err != nil {
		return "", err
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	total := len(req.Targets) * len(uniqueFrameworkIDs(req.FrameworkIDs))

	scanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	tracker := &scanTracker{
		cancel: cancel,
		done:   make(chan struct{}),
		status: domain.MultiUnitScanStatus{
			ScanID:     req.ID,
			TotalUnits: total,
			Status:     domain.AnalysisRunning,
		},
	}

	c.mu.Lock()
	if _, exists := c.scans[req.ID]; exists {
		c.mu.Unlock()
		cancel()
		return "", fmt.Errorf("scan %q: %w", req.ID, domain.ErrDuplicateAnalysis)
	}
	c.scans[req.ID] = tracker
	c.mu.Unlock()

	cfg := c.cfg
	if cfg.Observer != nil {
		cfg.Observer = fanoutObserver{observers: []Observer{cfg.Observer, tracker}}
	} else {
		cfg.Observer = tracker
	}
	orch := NewOrchestrator(cfg)

	zerolog.Ctx(scanCtx).Info().
		Str("scan_id", req.ID).
		Int("total_units", total).
		Msg("starting background scan")

	go func() {
		defer cancel()
		result, err := orch.Run(scanCtx, req)
		if err != nil {
			// Validation already passed above, so this path is unexpected;
			// the scan still settles so pollers are not left hanging.
			zerolog.Ctx(scanCtx).Error().Err(err).Str("scan_id", req.ID).Msg("scan run failed")
			tracker.fail()
			return
		}
		tracker.finish(result)
	}()

	return req.ID, nil
}

// Status returns a point-in-time snapshot of a running or settled scan.
func (c *Coordinator) Status(scanID string) (domain.MultiUnitScanStatus, error) {
	tracker, err := c.tracker(scanID)
	if err != nil {
		return domain.MultiUnitScanStatus{}, err
	}
	return tracker.snapshot(), nil
}

// Result returns the final aggregate of a settled scan.
func (c *Coordinator) Result(scanID string) (domain.AnalysisResult, error) {
	tracker, err := c.tracker(scanID)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if !tracker.settled {
		return domain.AnalysisResult{}, fmt.Errorf("scan %q has not settled yet", scanID)
	}
	return tracker.result, nil
}

// Cancel stops scheduling new waves and waits for in-flight units to
// finish. The scan settles with whatever it managed to complete; its
// status stays queryable afterwards.
func (c *Coordinator) Cancel(scanID string) error {
	tracker, err := c.tracker(scanID)
	if err != nil {
		return err
	}
	tracker.cancel()
	<-tracker.done
	return nil
}

// Wait blocks until the scan settles or ctx ends.
func (c *Coordinator) Wait(ctx context.Context, scanID string) error {
	tracker, err := c.tracker(scanID)
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tracker.done:
		return nil
	}
}

func (c *Coordinator) tracker(scanID string) (*scanTracker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tracker, ok := c.scans[scanID]
	if !ok {
		return nil, fmt.Errorf("scan %q: %w", scanID, domain.ErrAnalysisNotFound)
	}
	return tracker, nil
}

// scanTracker accumulates one scan's unit results as they settle. It is
// the coordinator's Observer; callbacks arrive from unit goroutines.
type scanTracker struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	status  domain.MultiUnitScanStatus
	result  domain.AnalysisResult
	settled bool
}

func (t *scanTracker) UnitStarted(string) {}

func (t *scanTracker) UnitSettled(result domain.UnitResult, progress float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if result.Status == domain.UnitCompleted {
		t.status.CompletedUnits++
	} else {
		t.status.FailedUnits++
	}
	t.status.Progress = progress
	t.status.UnitResults = append(t.status.UnitResults, result)
}

func (t *scanTracker) finish(result domain.AnalysisResult) {
	t.mu.Lock()
	t.status.Status = result.Status
	t.status.Summary = result.Summary
	t.status.Progress = 100
	t.result = result
	t.settled = true
	t.mu.Unlock()
	close(t.done)
}

func (t *scanTracker) fail() {
	t.mu.Lock()
	t.status.Status = domain.AnalysisFailed
	t.settled = true
	t.mu.Unlock()
	close(t.done)
}

func (t *scanTracker) snapshot() domain.MultiUnitScanStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.status
	snap.UnitResults = append([]domain.UnitResult(nil), t.status.UnitResults...)
	return snap
}

type fanoutObserver struct {
	observers []Observer
}

func (f fanoutObserver) UnitStarted(unitID string) {
	for _, o := range f.observers {
		o.UnitStarted(unitID)
	}
}

func (f fanoutObserver) UnitSettled(result domain.UnitResult, progress float64) {
	for _, o := range f.observers {
		o.UnitSettled(result, progress)
	}
}
