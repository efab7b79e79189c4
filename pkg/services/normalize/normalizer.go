package normalize

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

// SourceFile is one artifact file inside a multi-file ingestion (e.g. a
// repository upload).
type SourceFile struct {
	Path    string
	Content []byte
}

// Normalizer turns raw IaC artifacts or live-scan payloads into the
// format-independent resource model the evaluator consumes.
type Normalizer interface {
	Normalize(ctx context.Context, raw []byte, kind domain.SourceKind) (domain.NormalizedTemplate, error)
	NormalizeFiles(ctx context.Context, files []SourceFile) (domain.NormalizedTemplate, error)
}

type normalizer struct{}

func NewNormalizer() Normalizer {
	return &normalizer{}
}

func (n *normalizer) Normalize(ctx context.Context, raw []byte, kind domain.SourceKind) (domain.NormalizedTemplate, error) {
	logger := zerolog.Ctx(ctx)

	if !utf8.Valid(raw) {
		return domain.NormalizedTemplate{}, &domain.ParseError{
			SourceKind: kind,
			Detail:     "artifact is not valid UTF-8 text",
		}
	}

	var (
		resources []domain.ResourceDefinition
		err       error
	)
	switch kind {
	case domain.SourceCloudFormation, domain.SourceCDK:
		// CDK synthesizes CloudFormation; both parse the same way.
		resources, err = parseCloudFormation(raw, kind)
	case domain.SourceTerraform:
		resources, err = parseTerraform(raw)
	case domain.SourceLiveScan:
		resources, err = parseLiveScan(raw)
	default:
		return domain.NormalizedTemplate{}, &domain.ParseError{
			SourceKind: kind,
			Detail:     "unsupported source kind",
		}
	}
	if err != nil {
		return domain.NormalizedTemplate{}, err
	}

	technologies := detectTechnologies(raw, kind)
	tmpl := domain.NormalizedTemplate{
		SourceKind:   kind,
		Resources:    resources,
		Technologies: technologies,
		ByteSize:     len(raw),
		RawExcerpt:   excerpt(raw),
	}
	tmpl.Complexity = classifyComplexity(len(resources), len(raw), len(technologies))

	logger.Debug().
		Str("source_kind", string(kind)).
		Int("resources", len(resources)).
		Str("complexity", string(tmpl.Complexity)).
		Msg("normalized artifact")

	return tmpl, nil
}

// NormalizeFiles merges a set of files into one template. Files on the
// skip list are excluded from extraction and technology detection without
// failing the run; per-file parse errors fail the whole ingestion since a
// broken artifact set cannot be trusted.
func (n *normalizer) NormalizeFiles(ctx context.Context, files []SourceFile) (domain.NormalizedTemplate, error) {
	logger := zerolog.Ctx(ctx)

	merged := domain.NormalizedTemplate{SourceKind: domain.SourceCloudFormation}
	techSet := map[string]struct{}{}
	kindSeen := map[domain.SourceKind]int{}

	for _, f := range files {
		if ShouldSkipPath(f.Path) {
			logger.Debug().Str("path", f.Path).Msg("skipping excluded path")
			continue
		}
		kind, ok := detectSourceKind(f.Path, f.Content)
		if !ok {
			continue
		}
		tmpl, err := n.Normalize(ctx, f.Content, kind)
		if err != nil {
			return domain.NormalizedTemplate{}, err
		}
		for i := range tmpl.Resources {
			if tmpl.Resources[i].Location.File == "" {
				tmpl.Resources[i].Location.File = f.Path
			}
		}
		merged.Resources = append(merged.Resources, tmpl.Resources...)
		merged.ByteSize += len(f.Content)
		if len(merged.RawExcerpt) < excerptLimit {
			merged.RawExcerpt = excerpt(append(merged.RawExcerpt, f.Content...))
		}
		for _, t := range tmpl.Technologies {
			techSet[t] = struct{}{}
		}
		kindSeen[kind]++
	}

	// The merged template reports the dominant source kind.
	best := 0
	for kind, count := range kindSeen {
		if count > best {
			best = count
			merged.SourceKind = kind
		}
	}

	merged.Technologies = make([]string, 0, len(techSet))
	for t := range techSet {
		merged.Technologies = append(merged.Technologies, t)
	}
	sort.Strings(merged.Technologies)
	merged.Complexity = classifyComplexity(len(merged.Resources), merged.ByteSize, len(merged.Technologies))

	return merged, nil
}

// excerptLimit caps how much raw artifact text travels with a template
// for augmentation prompts.
const excerptLimit = 16 * 1024

func excerpt(raw []byte) []byte {
	if len(raw) <= excerptLimit {
		return raw
	}
	return raw[:excerptLimit]
}

var skipDirs = []string{"node_modules", ".git", "__pycache__", "venv", ".terraform"}

var skipExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {},
	".zip": {}, ".gz": {}, ".tar": {}, ".tgz": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {},
	".jar": {}, ".class": {}, ".pyc": {},
	".pdf": {}, ".bin": {}, ".wasm": {},
}

// ShouldSkipPath reports whether a file is excluded from resource
// extraction and technology detection.
func ShouldSkipPath(path string) bool {
	normalized := filepath.ToSlash(path)
	for _, part := range strings.Split(normalized, "/") {
		for _, dir := range skipDirs {
			if part == dir {
				return true
			}
		}
	}
	_, skip := skipExtensions[strings.ToLower(filepath.Ext(normalized))]
	return skip
}

// detectSourceKind guesses the artifact format of a file from its path and
// content. Returns false for files that are not IaC artifacts.
func detectSourceKind(path string, content []byte) (domain.SourceKind, bool) {
	switch {
	case strings.HasSuffix(path, ".tf"):
		return domain.SourceTerraform, true
	case strings.HasSuffix(path, ".tf.json"):
		return domain.SourceTerraform, true
	case strings.HasSuffix(path, ".template"):
		return domain.SourceCloudFormation, true
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return "", false
	}
	text := string(content)
	if strings.Contains(text, "AWSTemplateFormatVersion") || strings.Contains(text, `"Resources"`) || strings.Contains(text, "Resources:") {
		return domain.SourceCloudFormation, true
	}
	return "", false
}
