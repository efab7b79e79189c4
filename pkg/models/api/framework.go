package api

type Pillar struct {
	Id     string  `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type Condition struct {
	Type     string `json:"type"`
	Operator string `json:"operator"`
	Field    string `json:"field,omitempty"`
	Value    any    `json:"value,omitempty"`
	Logic    string `json:"logic,omitempty"`
}

type Rule struct {
	Id          string      `json:"id"`
	PillarId    string      `json:"pillar_id"`
	Category    string      `json:"category,omitempty"`
	Severity    string      `json:"severity"`
	Active      bool        `json:"active"`
	Conditions  []Condition `json:"conditions"`
	Remediation Remediation `json:"remediation"`
}

type Framework struct {
	Id      string   `json:"id"`
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Status  string   `json:"status"`
	Pillars []Pillar `json:"pillars"`
	Rules   []Rule   `json:"rules"`
}

// FrameworkSummary is the list form; rule bodies are served by the
// detail endpoint.
type FrameworkSummary struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	RuleCount int    `json:"rule_count"`
}
