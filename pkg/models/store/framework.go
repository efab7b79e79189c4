package store

// FrameworkRecord is one stored framework definition. Definition holds
// the original YAML document; indexed columns mirror its header fields.
type FrameworkRecord struct {
	ID         string
	Name       string
	Version    string
	Status     string
	Definition []byte
}
