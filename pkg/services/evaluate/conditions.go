package evaluate

import (
	"fmt"
	"regexp"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// conditionResult is the outcome of one deterministic condition. affected
// lists the resources that violated it, in template order.
type conditionResult struct {
	holds    bool
	affected []string
	detail   string
}

func evaluateCondition(cond domain.Condition, tmpl domain.NormalizedTemplate) conditionResult {
	switch cond.Type {
	case domain.ConditionResourceType:
		return evaluateResourceType(cond, tmpl)
	case domain.ConditionPropertyValue:
		return evaluatePropertyValue(cond, tmpl)
	case domain.ConditionRelationship:
		return evaluateRelationship(cond, tmpl)
	case domain.ConditionPattern:
		return evaluatePattern(cond, tmpl)
	default:
		return conditionResult{
			detail: fmt.Sprintf("unsupported condition type %q", cond.Type),
		}
	}
}

// evaluateResourceType checks whether the template contains resources of
// the named type. The operand may live in either Field or Value. Negated
// operators invert the presence test and report the offending matches.
func evaluateResourceType(cond domain.Condition, tmpl domain.NormalizedTemplate) conditionResult {
	operand := cond.Field
	if operand == "" {
		operand = coerceString(cond.Value)
	}

	var matches []string
	for _, r := range tmpl.Resources {
		if typeMatches(cond.Operator, r.Type, operand) {
			matches = append(matches, r.Name)
		}
	}

	switch cond.Operator {
	case domain.OperatorNotExists, domain.OperatorNotEquals, domain.OperatorNotContains:
		if len(matches) == 0 {
			return conditionResult{holds: true}
		}
		return conditionResult{
			affected: matches,
			detail:   fmt.Sprintf("%d resources of type %q are present but must not be", len(matches), operand),
		}
	default:
		if len(matches) > 0 {
			return conditionResult{holds: true}
		}
		// No offenders to point at when the failure is an absence.
		return conditionResult{
			affected: []string{},
			detail:   fmt.Sprintf("no resource of type %q found", operand),
		}
	}
}

// typeMatches applies the positive form of the operator to one resource
// type; negation is handled by the caller at the presence level.
func typeMatches(op domain.Operator, resourceType, operand string) bool {
	switch op {
	case domain.OperatorContains, domain.OperatorNotContains:
		return valueContains(resourceType, operand)
	case domain.OperatorRegex:
		return regexMatches(operand, resourceType)
	default:
		return resourceType == operand
	}
}

// evaluatePropertyValue resolves Field on every resource and fails the
// ones whose value does not satisfy the operator. A missing path is
// undefined: it fails positive operators and satisfies negated ones.
func evaluatePropertyValue(cond domain.Condition, tmpl domain.NormalizedTemplate) conditionResult {
	var affected []string
	for _, r := range tmpl.Resources {
		value, found := resolvePath(r.Properties, cond.Field)
		if !propertyHolds(cond.Operator, value, found, cond.Value) {
			affected = append(affected, r.Name)
		}
	}
	if len(affected) == 0 {
		return conditionResult{holds: true}
	}
	return conditionResult{
		affected: affected,
		detail:   fmt.Sprintf("%d resources violate %s %s", len(affected), cond.Field, cond.Operator),
	}
}

func propertyHolds(op domain.Operator, value any, found bool, operand any) bool {
	exists := found && value != nil
	switch op {
	case domain.OperatorExists:
		return exists
	case domain.OperatorNotExists:
		return !exists
	case domain.OperatorEquals:
		return exists && valuesEqual(value, operand)
	case domain.OperatorNotEquals:
		return !(exists && valuesEqual(value, operand))
	case domain.OperatorContains:
		return exists && valueContains(value, operand)
	case domain.OperatorNotContains:
		return !(exists && valueContains(value, operand))
	case domain.OperatorRegex:
		return exists && regexMatches(coerceString(operand), coerceString(value))
	default:
		return false
	}
}

// evaluateRelationship applies the operator to each resource's declared
// dependency set.
func evaluateRelationship(cond domain.Condition, tmpl domain.NormalizedTemplate) conditionResult {
	operand := coerceString(cond.Value)
	if operand == "" {
		operand = cond.Field
	}

	var affected []string
	for _, r := range tmpl.Resources {
		if !dependenciesHold(cond.Operator, r.Dependencies, operand) {
			affected = append(affected, r.Name)
		}
	}
	if len(affected) == 0 {
		return conditionResult{holds: true}
	}
	return conditionResult{
		affected: affected,
		detail:   fmt.Sprintf("%d resources violate dependency constraint %s %q", len(affected), cond.Operator, operand),
	}
}

func dependenciesHold(op domain.Operator, deps []string, operand string) bool {
	anyMatch := func(match func(string) bool) bool {
		for _, d := range deps {
			if match(d) {
				return true
			}
		}
		return false
	}

	switch op {
	case domain.OperatorExists:
		return len(deps) > 0
	case domain.OperatorNotExists:
		return len(deps) == 0
	case domain.OperatorEquals:
		return anyMatch(func(d string) bool { return d == operand })
	case domain.OperatorNotEquals:
		return !anyMatch(func(d string) bool { return d == operand })
	case domain.OperatorContains:
		return anyMatch(func(d string) bool { return valueContains(d, operand) })
	case domain.OperatorNotContains:
		return !anyMatch(func(d string) bool { return valueContains(d, operand) })
	case domain.OperatorRegex:
		return anyMatch(func(d string) bool { return regexMatches(operand, d) })
	default:
		return false
	}
}

// evaluatePattern applies the operator to a canonical text rendering of
// each resource, so rules can assert format-level constraints without
// naming individual properties.
func evaluatePattern(cond domain.Condition, tmpl domain.NormalizedTemplate) conditionResult {
	operand := coerceString(cond.Value)
	if operand == "" {
		operand = cond.Field
	}

	var affected []string
	for _, r := range tmpl.Resources {
		text := resourceText(r)
		if !patternHolds(cond.Operator, text, operand) {
			affected = append(affected, r.Name)
		}
	}
	if len(affected) == 0 {
		return conditionResult{holds: true}
	}
	return conditionResult{
		affected: affected,
		detail:   fmt.Sprintf("%d resources violate pattern %s %q", len(affected), cond.Operator, operand),
	}
}

func patternHolds(op domain.Operator, text, operand string) bool {
	switch op {
	case domain.OperatorExists:
		return text != ""
	case domain.OperatorNotExists:
		return text == ""
	case domain.OperatorEquals:
		return text == operand
	case domain.OperatorNotEquals:
		return text != operand
	case domain.OperatorContains:
		return valueContains(text, operand)
	case domain.OperatorNotContains:
		return !valueContains(text, operand)
	case domain.OperatorRegex:
		return regexMatches(operand, text)
	default:
		return false
	}
}

func resourceText(r domain.ResourceDefinition) string {
	return fmt.Sprintf("%s %s %s", r.Type, r.Name, coerceString(anyMap(r.Properties)))
}

// anyMap keeps the nil case rendering as an empty object, not "".
func anyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// regexMatches is conservative: an uncompilable pattern matches nothing,
// which fails the rule rather than passing it silently.
func regexMatches(pattern, text string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
