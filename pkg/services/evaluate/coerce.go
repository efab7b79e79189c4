package evaluate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// valueKind tags the JSON-like shapes a property or operand can take.
// Every operator works through these explicit coercions instead of
// leaning on runtime type tricks.
type valueKind int

const (
	kindNull valueKind = iota
	kindString
	kindNumber
	kindBool
	kindList
	kindMap
	kindOther
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil:
		return kindNull
	case string:
		return kindString
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return kindNumber
	case bool:
		return kindBool
	case []any:
		return kindList
	case map[string]any:
		return kindMap
	default:
		return kindOther
	}
}

func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// coerceString renders any value canonically: numbers without trailing
// zeros, lists and maps as compact JSON with sorted keys, null as the
// empty string.
func coerceString(v any) string {
	switch kindOf(v) {
	case kindNull:
		return ""
	case kindString:
		return v.(string)
	case kindNumber:
		f, _ := coerceNumber(v)
		return strconv.FormatFloat(f, 'f', -1, 64)
	case kindBool:
		return strconv.FormatBool(v.(bool))
	case kindList, kindMap:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// valuesEqual compares two values, coercing across kinds where a sound
// coercion exists (number-like strings, boolean words). Lists and maps
// compare by canonical encoding.
func valuesEqual(a, b any) bool {
	ka, kb := kindOf(a), kindOf(b)

	if ka == kindNull || kb == kindNull {
		return ka == kb
	}
	if ka == kindNumber || kb == kindNumber {
		fa, oka := coerceNumber(a)
		fb, okb := coerceNumber(b)
		if oka && okb {
			return fa == fb
		}
	}
	return coerceString(a) == coerceString(b)
}

// valueContains holds when the canonical string of needle appears inside
// the canonical string of hay; list hays additionally match on element
// equality so CONTAINS over a list behaves as membership.
func valueContains(hay, needle any) bool {
	if list, ok := hay.([]any); ok {
		for _, elem := range list {
			if valuesEqual(elem, needle) {
				return true
			}
		}
	}
	return strings.Contains(coerceString(hay), coerceString(needle))
}

// resolvePath walks a dot-separated path through nested maps; numeric
// segments index into lists. The second return is false when the path is
// absent, which callers treat as undefined rather than null.
func resolvePath(properties map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = properties
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
