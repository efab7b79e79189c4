package analysis

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// ArtifactFetcher resolves a target into raw bytes plus a source-kind
// hint. Fetch errors fail the unit; transient ones are retried first.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, target domain.Target) ([]byte, domain.SourceKind, error)
}

// CredentialProvider resolves access for account-scan targets. Only
// success or failure crosses this boundary; credentials themselves never
// enter the pipeline and are never logged.
type CredentialProvider interface {
	Resolve(ctx context.Context, target domain.LiveAccountTarget) error
}

// ResultSink receives the final aggregate exactly once per run.
type ResultSink interface {
	Store(ctx context.Context, result domain.AnalysisResult) error
}

// Observer watches unit lifecycle transitions. Callbacks may arrive from
// concurrent goroutines; implementations synchronize internally.
type Observer interface {
	UnitStarted(unitID string)
	UnitSettled(result domain.UnitResult, progress float64)
}

// FileFetcher serves template targets from the local filesystem and
// upload targets from their in-memory content.
type FileFetcher struct{}

func (FileFetcher) Fetch(_ context.Context, target domain.Target) ([]byte, domain.SourceKind, error) {
	switch t := target.(type) {
	case domain.FileUploadTarget:
		return t.Content, t.SourceKind, nil
	case domain.TemplateTarget:
		raw, err := os.ReadFile(t.Location)
		if err != nil {
			if os.IsNotExist(err) || os.IsPermission(err) {
				return nil, "", &domain.AccessError{Target: t.Location, Err: err}
			}
			return nil, "", &domain.TransientError{Op: "read template", Err: err}
		}
		kind := t.SourceKind
		if kind == "" {
			kind = guessKind(t.Location)
		}
		return raw, kind, nil
	default:
		return nil, "", fmt.Errorf("file fetcher cannot serve %T", target)
	}
}

func guessKind(location string) domain.SourceKind {
	if strings.HasSuffix(location, ".tf") || strings.HasSuffix(location, ".tf.json") {
		return domain.SourceTerraform
	}
	return domain.SourceCloudFormation
}

// RoutingFetcher dispatches by target kind so file-based and live-scan
// backends can be wired independently.
type RoutingFetcher struct {
	Files ArtifactFetcher
	Live  ArtifactFetcher
}

func (r RoutingFetcher) Fetch(ctx context.Context, target domain.Target) ([]byte, domain.SourceKind, error) {
	if _, ok := target.(domain.LiveAccountTarget); ok {
		if r.Live == nil {
			return nil, "", &domain.ConfigurationError{
				Field:  "targets",
				Reason: "no live-scan collector configured",
			}
		}
		return r.Live.Fetch(ctx, target)
	}
	if r.Files == nil {
		return nil, "", &domain.ConfigurationError{
			Field:  "targets",
			Reason: "no artifact fetcher configured",
		}
	}
	return r.Files.Fetch(ctx, target)
}
