package terminal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// ProgressReporter prints unit lifecycle transitions while a scan works
// through its accounts and frameworks. Callbacks may arrive from
// concurrent workers, so writes are serialized.
type ProgressReporter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewProgressReporter creates a reporter writing to the given writer.
func NewProgressReporter(writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &ProgressReporter{writer: writer}
}

func (r *ProgressReporter) UnitStarted(unitID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.writer, "[ run] %s\n", unitID)
}

func (r *ProgressReporter) UnitSettled(result domain.UnitResult, progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch result.Status {
	case domain.UnitFailed:
		fmt.Fprintf(r.writer, "[fail] %s (%.0f%%): %s\n", result.UnitID, progress, result.Error)
	default:
		fmt.Fprintf(r.writer, "[done] %s (%.0f%%) in %s\n",
			result.UnitID, progress, result.Duration.Round(time.Millisecond))
	}
}
