package adapters

import (
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/api"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/models/store"
)

func MapAnalysisRequestApiToDomain(req api.AnalysisRequest) (domain.AnalysisRequest, error) {
	targets := make([]domain.Target, 0, len(req.Targets))
	for i, target := range req.Targets {
		mapped, err := MapTargetApiToDomain(target)
		if err != nil {
			return domain.AnalysisRequest{}, &domain.ConfigurationError{
				Field:  "targets",
				Reason: fmt.Sprintf("target %d: %v", i, err),
			}
		}
		targets = append(targets, mapped)
	}

	return domain.AnalysisRequest{
		ID:           req.Id,
		Targets:      targets,
		FrameworkIDs: req.FrameworkIds,
		Options: domain.AnalysisOptions{
			Parallel:       req.Options.Parallel,
			MaxConcurrency: req.Options.MaxConcurrency,
			FailFast:       req.Options.FailFast,
		},
	}, nil
}

func MapTargetApiToDomain(target api.AnalysisTarget) (domain.Target, error) {
	switch target.Kind {
	case api.TargetKindTemplate:
		if target.Location == "" {
			return nil, fmt.Errorf("template target requires a location")
		}
		return domain.TemplateTarget{
			Location:   target.Location,
			SourceKind: domain.SourceKind(target.SourceKind),
		}, nil
	case api.TargetKindFileUpload:
		if target.Filename == "" || target.Content == "" {
			return nil, fmt.Errorf("file upload target requires a filename and content")
		}
		return domain.FileUploadTarget{
			Filename:   target.Filename,
			SourceKind: domain.SourceKind(target.SourceKind),
			Content:    []byte(target.Content),
		}, nil
	case api.TargetKindLiveAccount:
		if target.Profile == "" && target.AccountId == "" {
			return nil, fmt.Errorf("live account target requires a profile or account id")
		}
		return domain.LiveAccountTarget{
			Profile:   target.Profile,
			AccountID: target.AccountId,
			Regions:   target.Regions,
		}, nil
	default:
		return nil, fmt.Errorf("unknown target kind %q", target.Kind)
	}
}

func MapAnalysisResultDomainToApi(result domain.AnalysisResult) api.AnalysisResult {
	findings := make([]api.Finding, 0, len(result.Findings))
	for _, finding := range result.Findings {
		findings = append(findings, MapFindingDomainToApi(finding))
	}

	units := make([]api.UnitResult, 0, len(result.UnitResults))
	for _, unit := range result.UnitResults {
		units = append(units, MapUnitResultDomainToApi(unit))
	}

	return api.AnalysisResult{
		Id:          result.ID,
		Status:      string(result.Status),
		Summary:     MapAnalysisSummaryDomainToApi(result.Summary),
		Findings:    findings,
		UnitResults: units,
		StartedAt:   result.StartedAt,
		CompletedAt: result.CompletedAt,
	}
}

func MapFindingDomainToApi(finding domain.Finding) api.Finding {
	affected := finding.AffectedResources
	if affected == nil {
		affected = []string{}
	}
	return api.Finding{
		Id:                finding.ID,
		RuleId:            finding.RuleID,
		FrameworkId:       finding.FrameworkID,
		PillarId:          finding.PillarID,
		Category:          finding.Category,
		Severity:          string(finding.Severity),
		Status:            string(finding.Status),
		Message:           finding.Message,
		AffectedResources: affected,
		Remediation: api.Remediation{
			Description: finding.Remediation.Description,
			Steps:       finding.Remediation.Steps,
		},
		Confidence: finding.Confidence,
	}
}

func MapUnitResultDomainToApi(unit domain.UnitResult) api.UnitResult {
	return api.UnitResult{
		UnitId:      unit.UnitID,
		FrameworkId: unit.FrameworkID,
		Status:      string(unit.Status),
		Error:       unit.Error,
		DurationMs:  unit.Duration.Milliseconds(),
	}
}

func MapAnalysisSummaryDomainToApi(summary domain.AnalysisSummary) api.AnalysisSummary {
	bySeverity := make(map[string]int, len(summary.FindingsBySeverity))
	for severity, count := range summary.FindingsBySeverity {
		bySeverity[string(severity)] = count
	}

	return api.AnalysisSummary{
		TotalFindings:       summary.TotalFindings,
		FindingsBySeverity:  bySeverity,
		FindingsByPillar:    summary.FindingsByPillar,
		FindingsByFramework: summary.FindingsByFramework,
		PillarScores:        summary.PillarScores,
		OverallScore:        summary.OverallScore,
		RiskLevel:           string(summary.RiskLevel),
		Recommendations: api.Recommendations{
			Immediate: summary.Recommendations.Immediate,
			ShortTerm: summary.Recommendations.ShortTerm,
			LongTerm:  summary.Recommendations.LongTerm,
		},
	}
}

func MapScanStatusDomainToApi(status domain.MultiUnitScanStatus) api.ScanStatus {
	units := make([]api.UnitResult, 0, len(status.UnitResults))
	for _, unit := range status.UnitResults {
		units = append(units, MapUnitResultDomainToApi(unit))
	}

	return api.ScanStatus{
		ScanId:         status.ScanID,
		TotalUnits:     status.TotalUnits,
		CompletedUnits: status.CompletedUnits,
		FailedUnits:    status.FailedUnits,
		Progress:       status.Progress,
		Status:         string(status.Status),
		UnitResults:    units,
		Summary:        MapAnalysisSummaryDomainToApi(status.Summary),
	}
}

func MapAnalysisRecordStoreToApi(record store.AnalysisRecord) api.AnalysisRecord {
	return api.AnalysisRecord{
		Id:        record.ID,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
	}
}
