package terminal

import (
	"bytes"
	"testing"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

func TestProgressReporterPrintsTransitions(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressReporter(&buf)

	reporter.UnitStarted("prod/baseline")
	reporter.UnitSettled(domain.UnitResult{
		UnitID:   "prod/baseline",
		Status:   domain.UnitCompleted,
		Duration: 250 * time.Millisecond,
	}, 50)
	reporter.UnitSettled(domain.UnitResult{
		UnitID: "staging/baseline",
		Status: domain.UnitFailed,
		Error:  "access denied",
	}, 100)

	out := buf.String()
	assert.Contains(t, out, "[ run] prod/baseline")
	assert.Contains(t, out, "[done] prod/baseline (50%) in 250ms")
	assert.Contains(t, out, "[fail] staging/baseline (100%): access denied")
}
