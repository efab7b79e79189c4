package api

import "time"

// Target kinds accepted by analysis requests.
const (
	TargetKindTemplate    = "template"
	TargetKindLiveAccount = "live_account"
	TargetKindFileUpload  = "file_upload"
)

type AnalysisTarget struct {
	Kind string `json:"kind"`

	// template targets
	Location   string `json:"location,omitempty"`
	SourceKind string `json:"source_kind,omitempty"`

	// file_upload targets; content is the raw artifact text
	Filename string `json:"filename,omitempty"`
	Content  string `json:"content,omitempty"`

	// live_account targets
	Profile   string   `json:"profile,omitempty"`
	AccountId string   `json:"account_id,omitempty"`
	Regions   []string `json:"regions,omitempty"`
}

type AnalysisOptions struct {
	Parallel       bool `json:"parallel"`
	MaxConcurrency int  `json:"max_concurrency,omitempty"`
	FailFast       bool `json:"fail_fast"`
}

type AnalysisRequest struct {
	Id           string           `json:"id,omitempty"`
	Targets      []AnalysisTarget `json:"targets"`
	FrameworkIds []string         `json:"framework_ids"`
	Options      AnalysisOptions  `json:"options"`
}

type Remediation struct {
	Description string   `json:"description"`
	Steps       []string `json:"steps,omitempty"`
}

type Finding struct {
	Id                string      `json:"id"`
	RuleId            string      `json:"rule_id"`
	FrameworkId       string      `json:"framework_id"`
	PillarId          string      `json:"pillar_id"`
	Category          string      `json:"category,omitempty"`
	Severity          string      `json:"severity"`
	Status            string      `json:"status"`
	Message           string      `json:"message"`
	AffectedResources []string    `json:"affected_resources"`
	Remediation       Remediation `json:"remediation"`
	Confidence        float64     `json:"confidence"`
}

type Recommendations struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

type AnalysisSummary struct {
	TotalFindings       int                `json:"total_findings"`
	FindingsBySeverity  map[string]int     `json:"findings_by_severity"`
	FindingsByPillar    map[string]int     `json:"findings_by_pillar"`
	FindingsByFramework map[string]int     `json:"findings_by_framework"`
	PillarScores        map[string]float64 `json:"pillar_scores"`
	OverallScore        int                `json:"overall_score"`
	RiskLevel           string             `json:"risk_level"`
	Recommendations     Recommendations    `json:"recommendations"`
}

type UnitResult struct {
	UnitId      string `json:"unit_id"`
	FrameworkId string `json:"framework_id"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

type AnalysisResult struct {
	Id          string          `json:"id"`
	Status      string          `json:"status"`
	Summary     AnalysisSummary `json:"summary"`
	Findings    []Finding       `json:"findings"`
	UnitResults []UnitResult    `json:"unit_results"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// AnalysisRecord is one row of the stored-results index.
type AnalysisRecord struct {
	Id        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ScanStarted struct {
	ScanId string `json:"scan_id"`
}

type ScanStatus struct {
	ScanId         string          `json:"scan_id"`
	TotalUnits     int             `json:"total_units"`
	CompletedUnits int             `json:"completed_units"`
	FailedUnits    int             `json:"failed_units"`
	Progress       float64         `json:"progress"`
	Status         string          `json:"status"`
	UnitResults    []UnitResult    `json:"unit_results"`
	Summary        AnalysisSummary `json:"summary"`
}

type Error struct {
	Error string `json:"error"`
}
