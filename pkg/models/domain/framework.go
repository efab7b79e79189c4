package domain

// FrameworkStatus reflects the publication lifecycle of a framework.
type FrameworkStatus string

const (
	FrameworkStatusActive     FrameworkStatus = "ACTIVE"
	FrameworkStatusDeprecated FrameworkStatus = "DEPRECATED"
	FrameworkStatusDraft      FrameworkStatus = "DRAFT"
)

// Severity of a rule or finding, ordered from most to least urgent.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Severities lists all severities in descending urgency.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

type ConditionType string

const (
	ConditionResourceType  ConditionType = "RESOURCE_TYPE"
	ConditionPropertyValue ConditionType = "PROPERTY_VALUE"
	ConditionRelationship  ConditionType = "RELATIONSHIP"
	ConditionPattern       ConditionType = "PATTERN"
	ConditionCustom        ConditionType = "CUSTOM"
)

type Operator string

const (
	OperatorEquals      Operator = "EQUALS"
	OperatorNotEquals   Operator = "NOT_EQUALS"
	OperatorContains    Operator = "CONTAINS"
	OperatorNotContains Operator = "NOT_CONTAINS"
	OperatorRegex       Operator = "REGEX"
	OperatorExists      Operator = "EXISTS"
	OperatorNotExists   Operator = "NOT_EXISTS"
)

// Framework is a versioned, named collection of pillars and rules.
// Published frameworks are immutable; analysis never mutates them.
type Framework struct {
	ID      string
	Name    string
	Version string
	Status  FrameworkStatus
	Pillars []Pillar
	Rules   []Rule
}

// ActiveRules returns the rules flagged active, in definition order.
func (f Framework) ActiveRules() []Rule {
	active := make([]Rule, 0, len(f.Rules))
	for _, r := range f.Rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active
}

// Pillar groups rules for scoring (e.g. security, cost, reliability).
// Weights need not sum to 1 across pillars; the aggregator normalizes.
type Pillar struct {
	ID     string
	Name   string
	Weight float64
}

// Rule is a single compliance check: an ordered set of conditions that
// must all hold for the rule to pass.
type Rule struct {
	ID          string
	PillarID    string
	Category    string
	Severity    Severity
	Conditions  []Condition
	Remediation Remediation
	IsActive    bool
}

// Condition is one predicate inside a rule. Field is a dot-path into
// resource properties; Value is the operand for the operator.
// CustomLogic is only consulted for ConditionCustom and is forwarded to
// the augmentation port verbatim.
type Condition struct {
	Type        ConditionType
	Operator    Operator
	Field       string
	Value       any
	CustomLogic string
}

// Remediation carries the guidance attached to a rule, copied onto every
// finding the rule produces.
type Remediation struct {
	Description string
	Steps       []string
}
