package domain

import "time"

// FindingStatus is the evaluation outcome of one rule.
type FindingStatus string

const (
	FindingFailed        FindingStatus = "FAILED"
	FindingPassed        FindingStatus = "PASSED"
	FindingWarning       FindingStatus = "WARNING"
	FindingNotApplicable FindingStatus = "NOT_APPLICABLE"
)

// Finding is the result of evaluating one rule against one resource set.
// Findings are created fresh per analysis run and never mutated, only
// aggregated.
type Finding struct {
	ID                string
	RuleID            string
	FrameworkID       string
	PillarID          string
	Category          string
	Severity          Severity
	Status            FindingStatus
	Message           string
	AffectedResources []string
	Remediation       Remediation
	// Confidence is 1 for deterministic evaluation; augmented or degraded
	// custom rules report lower values.
	Confidence float64
}

// FrameworkResult is the outcome of evaluating one template against one
// framework.
type FrameworkResult struct {
	FrameworkID      string
	FrameworkVersion string
	Findings         []Finding
	PassedCount      int
	FailedCount      int
	Score            float64
	PillarScores     map[string]float64
	CategoryScores   map[string]float64
}

// UnitStatus is the externally visible lifecycle of an analysis unit.
// Retries happen inside RUNNING and are not observable as transitions.
type UnitStatus string

const (
	UnitPending   UnitStatus = "PENDING"
	UnitRunning   UnitStatus = "RUNNING"
	UnitCompleted UnitStatus = "COMPLETED"
	UnitFailed    UnitStatus = "FAILED"
)

// Target is the closed set of things an analysis unit can point at.
type Target interface {
	targetKind() string
}

// TemplateTarget references an IaC artifact by location.
type TemplateTarget struct {
	Location   string
	SourceKind SourceKind
}

// LiveAccountTarget references a cloud account to scan.
type LiveAccountTarget struct {
	Profile   string
	AccountID string
	Regions   []string
}

// FileUploadTarget carries raw artifact bytes handed over by a caller.
type FileUploadTarget struct {
	Filename   string
	SourceKind SourceKind
	Content    []byte
}

func (TemplateTarget) targetKind() string    { return "template" }
func (LiveAccountTarget) targetKind() string { return "live_account" }
func (FileUploadTarget) targetKind() string  { return "file_upload" }

// AnalysisUnit is one (target, framework) pair inside an orchestration run.
type AnalysisUnit struct {
	ID          string
	Target      Target
	FrameworkID string
}

// AnalysisOptions control orchestration behavior for one request.
type AnalysisOptions struct {
	Parallel       bool
	MaxConcurrency int
	FailFast       bool
}

// AnalysisRequest is the orchestrator input: targets crossed with
// frameworks under the given options.
type AnalysisRequest struct {
	ID           string
	Targets      []Target
	FrameworkIDs []string
	Options      AnalysisOptions
}

// AnalysisStatus describes a whole analysis run. RUNNING only appears in
// scan status snapshots; results always carry a terminal status.
type AnalysisStatus string

const (
	AnalysisRunning   AnalysisStatus = "RUNNING"
	AnalysisCompleted AnalysisStatus = "COMPLETED"
	AnalysisPartial   AnalysisStatus = "PARTIAL"
	AnalysisFailed    AnalysisStatus = "FAILED"
)

// RiskLevel classifies an analysis by its worst observed findings.
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
)

// Recommendations bucket remediation guidance by urgency.
type Recommendations struct {
	Immediate []string
	ShortTerm []string
	LongTerm  []string
}

// AnalysisSummary aggregates findings across every unit of a run.
type AnalysisSummary struct {
	TotalFindings       int
	FindingsBySeverity  map[Severity]int
	FindingsByPillar    map[string]int
	FindingsByFramework map[string]int
	PillarScores        map[string]float64
	OverallScore        int
	RiskLevel           RiskLevel
	Recommendations     Recommendations
}

// UnitResult records the terminal state of a single unit.
type UnitResult struct {
	UnitID      string
	FrameworkID string
	Status      UnitStatus
	Error       string
	Duration    time.Duration
}

// AnalysisResult is the write-once terminal aggregate of a run.
type AnalysisResult struct {
	ID          string
	Status      AnalysisStatus
	Summary     AnalysisSummary
	Findings    []Finding
	UnitResults []UnitResult
	StartedAt   time.Time
	CompletedAt time.Time
}

// MultiUnitScanStatus tracks a many-account scan while it runs and after
// it settles. Progress is completed units over total units.
type MultiUnitScanStatus struct {
	ScanID         string
	TotalUnits     int
	CompletedUnits int
	FailedUnits    int
	Progress       float64
	Status         AnalysisStatus
	UnitResults    []UnitResult
	Summary        AnalysisSummary
}
