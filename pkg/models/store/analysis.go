package store

import "time"

// AnalysisRecord is the persisted index entry for one finished analysis.
// The full result document lives in the payload column as JSON.
type AnalysisRecord struct {
	ID        string
	Status    string
	Payload   []byte
	CreatedAt time.Time
}
