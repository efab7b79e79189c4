package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFetcherServesUploads(t *testing.T) {
	content := []byte(`{"Resources":{}}`)
	raw, kind, err := FileFetcher{}.Fetch(context.Background(), domain.FileUploadTarget{
		Filename:   "stack.json",
		SourceKind: domain.SourceCloudFormation,
		Content:    content,
	})

	require.NoError(t, err)
	assert.Equal(t, content, raw)
	assert.Equal(t, domain.SourceCloudFormation, kind)
}

func TestFileFetcherReadsTemplatesFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.tf")
	require.NoError(t, os.WriteFile(path, []byte(`resource "aws_s3_bucket" "logs" {}`), 0o600))

	raw, kind, err := FileFetcher{}.Fetch(context.Background(), domain.TemplateTarget{Location: path})

	require.NoError(t, err)
	assert.Contains(t, string(raw), "aws_s3_bucket")
	assert.Equal(t, domain.SourceTerraform, kind)
}

func TestFileFetcherMissingFileIsAccessError(t *testing.T) {
	_, _, err := FileFetcher{}.Fetch(context.Background(), domain.TemplateTarget{
		Location: filepath.Join(t.TempDir(), "missing.yaml"),
	})

	require.Error(t, err)
	assert.True(t, domain.IsAccessError(err))
}

func TestFileFetcherRejectsLiveTargets(t *testing.T) {
	_, _, err := FileFetcher{}.Fetch(context.Background(), domain.LiveAccountTarget{AccountID: "123456789012"})
	require.Error(t, err)
}

func TestRoutingFetcherDispatchesByTargetKind(t *testing.T) {
	files := &fakeFetcher{payload: []byte("files")}
	live := &fakeFetcher{payload: []byte("live")}
	router := RoutingFetcher{Files: files, Live: live}

	raw, _, err := router.Fetch(context.Background(), domain.FileUploadTarget{Filename: "a.json"})
	require.NoError(t, err)
	assert.Equal(t, []byte("files"), raw)

	raw, _, err = router.Fetch(context.Background(), domain.LiveAccountTarget{AccountID: "123456789012"})
	require.NoError(t, err)
	assert.Equal(t, []byte("live"), raw)
}

func TestRoutingFetcherWithoutLiveBackend(t *testing.T) {
	router := RoutingFetcher{Files: &fakeFetcher{}}

	_, _, err := router.Fetch(context.Background(), domain.LiveAccountTarget{AccountID: "123456789012"})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
