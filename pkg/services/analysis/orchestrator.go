package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/observability"
	"github.com/de-tools/compliance-atlas/pkg/services/evaluate"
	"github.com/de-tools/compliance-atlas/pkg/services/normalize"
	"github.com/de-tools/compliance-atlas/pkg/services/registry"
	"github.com/de-tools/compliance-atlas/pkg/services/score"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxConcurrencyLimit caps how many units a request may run at once.
const MaxConcurrencyLimit = 10

const defaultConcurrency = 3

// Orchestrator drives one logical analysis request end to end: units are
// fanned out in bounded waves, failures are folded into per-unit results,
// and the caller always gets a complete aggregate back. Only malformed
// requests fail synchronously.
type Orchestrator interface {
	Run(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
}

type Config struct {
	Fetcher    ArtifactFetcher
	Registry   registry.Registry
	Evaluator  evaluate.Evaluator
	Aggregator score.Aggregator
	Normalizer normalize.Normalizer
	// Credentials is consulted for live-account targets when present.
	Credentials CredentialProvider
	// Sink, Observer and Metrics are optional.
	Sink     ResultSink
	Observer Observer
	Metrics  *observability.Metrics
	Retryer  Retryer
}

type orchestrator struct {
	fetcher     ArtifactFetcher
	registry    registry.Registry
	evaluator   evaluate.Evaluator
	aggregator  score.Aggregator
	normalizer  normalize.Normalizer
	credentials CredentialProvider
	sink        ResultSink
	observer    Observer
	metrics     *observability.Metrics
	retryer     Retryer
}

// runState is the per-run settle counter. Notifications go out under its
// lock so observers always see progress strictly non-decreasing, even
// when several runs share one orchestrator.
type runState struct {
	mu      sync.Mutex
	settled int
	total   int
}

func NewOrchestrator(cfg Config) Orchestrator {
	o := &orchestrator{
		fetcher:     cfg.Fetcher,
		registry:    cfg.Registry,
		evaluator:   cfg.Evaluator,
		aggregator:  cfg.Aggregator,
		normalizer:  cfg.Normalizer,
		credentials: cfg.Credentials,
		sink:        cfg.Sink,
		observer:    cfg.Observer,
		metrics:     cfg.Metrics,
		retryer:     cfg.Retryer,
	}
	if o.fetcher == nil {
		o.fetcher = FileFetcher{}
	}
	if o.evaluator == nil {
		o.evaluator = evaluate.NewEvaluator(evaluate.Config{})
	}
	if o.aggregator == nil {
		o.aggregator = score.NewAggregator(nil)
	}
	if o.normalizer == nil {
		o.normalizer = normalize.NewNormalizer()
	}
	if o.retryer.Sleep == nil {
		o.retryer = NewRetryer()
	}
	if o.metrics != nil && o.retryer.OnRetry == nil {
		o.retryer.OnRetry = o.metrics.RecordRetry
	}
	return o
}

func (o *orchestrator) Run(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	logger := zerolog.Ctx(ctx)

	if err := validateRequest(req); err != nil {
		return domain.AnalysisResult{}, err
	}
	frameworks, err := resolveFrameworks(ctx, o.registry, req.FrameworkIDs)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	units := buildUnits(req)
	startedAt := time.Now()

	logger.Info().
		Str("analysis_id", req.ID).
		Int("targets", len(req.Targets)).
		Int("frameworks", len(frameworks)).
		Int("units", len(units)).
		Bool("parallel", req.Options.Parallel).
		Msg("starting analysis")

	// Each unit owns one slot; nothing else writes it. Findings are merged
	// only after every wave has settled.
	results := make([]domain.UnitResult, len(units))
	findings := make([][]domain.Finding, len(units))

	concurrency := 1
	if req.Options.Parallel {
		concurrency = req.Options.MaxConcurrency
		if concurrency <= 0 {
			concurrency = defaultConcurrency
		}
	}

	state := &runState{total: len(units)}
	total := len(units)
	next := 0

waves:
	for next < total {
		if ctx.Err() != nil {
			break
		}

		end := min(next+concurrency, total)
		var wg sync.WaitGroup
		for i := next; i < end; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				res, unitFindings := o.runUnit(ctx, units[slot], frameworks[units[slot].FrameworkID])
				results[slot] = res
				findings[slot] = unitFindings
				o.notifySettled(state, res)
			}(i)
		}
		wg.Wait()

		if req.Options.FailFast {
			for i := next; i < end; i++ {
				if results[i].Status == domain.UnitFailed {
					next = end
					o.failRemaining(state, results, units, next, "aborted by fail-fast after an earlier unit failed")
					break waves
				}
			}
		}
		next = end
	}

	if ctx.Err() != nil && next < total {
		o.failRemaining(state, results, units, next, "CANCELLED")
	}

	all := make([]domain.Finding, 0)
	var completed, failed int
	for i := range results {
		if results[i].Status == domain.UnitCompleted {
			completed++
			all = append(all, findings[i]...)
		} else {
			failed++
		}
	}

	result := domain.AnalysisResult{
		ID:          req.ID,
		Status:      aggregateStatus(completed, failed),
		Summary:     o.aggregator.Aggregate(all),
		Findings:    all,
		UnitResults: results,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	if o.metrics != nil {
		o.metrics.RecordAnalysis(string(result.Status))
		for severity, count := range result.Summary.FindingsBySeverity {
			o.metrics.RecordFindings(string(severity), count)
		}
	}

	logger.Info().
		Str("analysis_id", result.ID).
		Str("status", string(result.Status)).
		Int("completed_units", completed).
		Int("failed_units", failed).
		Int("findings", len(all)).
		Int("overall_score", result.Summary.OverallScore).
		Msg("analysis finished")

	if o.sink != nil {
		if err := o.sink.Store(ctx, result); err != nil {
			// The caller still gets the aggregate; persistence is advisory
			// at this layer and idempotence lives with the sink.
			logger.Error().Err(err).Str("analysis_id", result.ID).Msg("failed to store analysis result")
		}
	}
	return result, nil
}

func (o *orchestrator) notifySettled(state *runState, res domain.UnitResult) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.settled++
	if o.observer != nil {
		o.observer.UnitSettled(res, float64(state.settled)/float64(state.total)*100)
	}
}

// failRemaining marks units that never started as failed. They still
// settle so progress reaches 100. Slots that already settled are left
// alone.
func (o *orchestrator) failRemaining(state *runState, results []domain.UnitResult, units []domain.AnalysisUnit, from int, reason string) {
	for i := from; i < len(units); i++ {
		if results[i].UnitID != "" {
			continue
		}
		results[i] = domain.UnitResult{
			UnitID:      units[i].ID,
			FrameworkID: units[i].FrameworkID,
			Status:      domain.UnitFailed,
			Error:       reason,
		}
		o.notifySettled(state, results[i])
	}
}

func (o *orchestrator) runUnit(ctx context.Context, unit domain.AnalysisUnit, framework domain.Framework) (domain.UnitResult, []domain.Finding) {
	logger := zerolog.Ctx(ctx).With().
		Str("unit_id", unit.ID).
		Str("framework_id", unit.FrameworkID).
		Str("target", targetLabel(unit.Target)).
		Logger()
	unitCtx := logger.WithContext(ctx)

	started := time.Now()
	if o.observer != nil {
		o.observer.UnitStarted(unit.ID)
	}
	if o.metrics != nil {
		o.metrics.RecordUnitStart()
	}

	result := domain.UnitResult{UnitID: unit.ID, FrameworkID: unit.FrameworkID}
	fail := func(err error) (domain.UnitResult, []domain.Finding) {
		result.Status = domain.UnitFailed
		result.Error = err.Error()
		result.Duration = time.Since(started)
		if o.metrics != nil {
			o.metrics.RecordUnitEnd(string(result.Status), result.Duration.Seconds())
		}
		logger.Warn().Err(err).Dur("duration", result.Duration).Msg("unit failed")
		return result, nil
	}

	if live, ok := unit.Target.(domain.LiveAccountTarget); ok && o.credentials != nil {
		if err := o.credentials.Resolve(unitCtx, live); err != nil {
			if !domain.IsAccessError(err) {
				err = &domain.AccessError{Target: live.AccountID, Err: err}
			}
			return fail(err)
		}
	}

	var raw []byte
	var kind domain.SourceKind
	err := o.retryer.Do(unitCtx, "fetch artifact", func(ctx context.Context) error {
		var fetchErr error
		raw, kind, fetchErr = o.fetcher.Fetch(ctx, unit.Target)
		return fetchErr
	})
	if err != nil {
		return fail(err)
	}

	tmpl, err := o.normalizer.Normalize(unitCtx, raw, kind)
	if err != nil {
		return fail(err)
	}

	frameworkResult, err := o.evaluator.Evaluate(unitCtx, tmpl, framework)
	if err != nil {
		return fail(err)
	}

	result.Status = domain.UnitCompleted
	result.Duration = time.Since(started)
	if o.metrics != nil {
		o.metrics.RecordUnitEnd(string(result.Status), result.Duration.Seconds())
	}
	logger.Info().
		Int("passed", frameworkResult.PassedCount).
		Int("failed", frameworkResult.FailedCount).
		Float64("score", frameworkResult.Score).
		Dur("duration", result.Duration).
		Msg("unit completed")

	return result, frameworkResult.Findings
}

func resolveFrameworks(ctx context.Context, reg registry.Registry, ids []string) (map[string]domain.Framework, error) {
	frameworks := make(map[string]domain.Framework, len(ids))
	for _, id := range ids {
		if _, dup := frameworks[id]; dup {
			continue
		}
		framework, err := reg.GetFramework(ctx, id)
		if err != nil {
			return nil, &domain.ConfigurationError{
				Field:  "frameworkIds",
				Reason: fmt.Sprintf("framework %q cannot be resolved: %v", id, err),
			}
		}
		frameworks[id] = framework
	}
	return frameworks, nil
}

func validateRequest(req domain.AnalysisRequest) error {
	if len(req.Targets) == 0 {
		return &domain.ConfigurationError{Field: "targets", Reason: "at least one target is required"}
	}
	if len(req.FrameworkIDs) == 0 {
		return &domain.ConfigurationError{Field: "frameworkIds", Reason: "at least one framework id is required"}
	}
	if req.Options.MaxConcurrency < 0 {
		return &domain.ConfigurationError{Field: "maxConcurrency", Reason: "must not be negative"}
	}
	if req.Options.MaxConcurrency > MaxConcurrencyLimit {
		return &domain.ConfigurationError{
			Field:  "maxConcurrency",
			Reason: fmt.Sprintf("%d exceeds the limit of %d", req.Options.MaxConcurrency, MaxConcurrencyLimit),
		}
	}
	return nil
}

func uniqueFrameworkIDs(ids []string) []string {
	unique := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// buildUnits crosses targets with frameworks; duplicate framework ids
// collapse so the same pair never runs twice.
func buildUnits(req domain.AnalysisRequest) []domain.AnalysisUnit {
	ids := uniqueFrameworkIDs(req.FrameworkIDs)

	var units []domain.AnalysisUnit
	for _, target := range req.Targets {
		for _, frameworkID := range ids {
			units = append(units, domain.AnalysisUnit{
				ID:          uuid.NewString(),
				Target:      target,
				FrameworkID: frameworkID,
			})
		}
	}
	return units
}

func aggregateStatus(completed, failed int) domain.AnalysisStatus {
	switch {
	case completed == 0:
		return domain.AnalysisFailed
	case failed == 0:
		return domain.AnalysisCompleted
	default:
		return domain.AnalysisPartial
	}
}

func targetLabel(target domain.Target) string {
	switch t := target.(type) {
	case domain.TemplateTarget:
		return t.Location
	case domain.LiveAccountTarget:
		if t.AccountID != "" {
			return t.AccountID
		}
		return t.Profile
	case domain.FileUploadTarget:
		return t.Filename
	default:
		return fmt.Sprintf("%T", target)
	}
}
