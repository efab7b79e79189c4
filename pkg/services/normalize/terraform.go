package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// parseTerraform extracts resource blocks from Terraform source. Resource
// type and name are read exactly; attributes are a best-effort scalar
// extraction, so expressions and nested blocks are skipped rather than
// evaluated. The JSON configuration syntax is handled separately.
func parseTerraform(raw []byte) ([]domain.ResourceDefinition, error) {
	if looksLikeJSON(raw) {
		return parseTerraformJSON(raw)
	}

	s := &tfScanner{src: string(raw), line: 1}
	var resources []domain.ResourceDefinition
	for {
		s.skipInert()
		if s.eof() {
			return resources, nil
		}
		word := s.readWord()
		if word == "" {
			s.pos++
			continue
		}
		if word != "resource" {
			continue
		}
		res, ok := s.readResourceBlock()
		if ok {
			resources = append(resources, res)
		}
	}
}

type tfScanner struct {
	src  string
	pos  int
	line int
}

func (s *tfScanner) eof() bool { return s.pos >= len(s.src) }

func (s *tfScanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

// skipInert advances past whitespace and comments, tracking line numbers.
func (s *tfScanner) skipInert() {
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case c == '\n':
			s.line++
			s.pos++
		case c == ' ' || c == '\t' || c == '\r':
			s.pos++
		case c == '#':
			s.skipToLineEnd()
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/':
			s.skipToLineEnd()
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '*':
			s.pos += 2
			for !s.eof() {
				if s.src[s.pos] == '\n' {
					s.line++
				}
				if s.src[s.pos] == '*' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/' {
					s.pos += 2
					break
				}
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *tfScanner) skipToLineEnd() {
	for !s.eof() && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *tfScanner) readWord() string {
	start := s.pos
	for !s.eof() {
		c := s.src[s.pos]
		if c == '_' || c == '-' || c == '.' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			s.pos++
			continue
		}
		break
	}
	return s.src[start:s.pos]
}

func (s *tfScanner) readQuoted() (string, bool) {
	if s.peek() != '"' {
		return "", false
	}
	s.pos++
	var b strings.Builder
	for !s.eof() {
		c := s.src[s.pos]
		switch c {
		case '\\':
			if s.pos+1 < len(s.src) {
				b.WriteByte(s.src[s.pos+1])
				s.pos += 2
				continue
			}
			s.pos++
		case '"':
			s.pos++
			return b.String(), true
		case '\n':
			// Unterminated string; give up on this literal.
			s.line++
			s.pos++
			return b.String(), false
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return b.String(), false
}

// readResourceBlock is called right after the `resource` keyword and
// consumes `"type" "name" { ... }`.
func (s *tfScanner) readResourceBlock() (domain.ResourceDefinition, bool) {
	s.skipInert()
	resourceType, ok := s.readQuoted()
	if !ok {
		return domain.ResourceDefinition{}, false
	}
	s.skipInert()
	resourceName, ok := s.readQuoted()
	if !ok {
		return domain.ResourceDefinition{}, false
	}
	s.skipInert()
	if s.peek() != '{' {
		return domain.ResourceDefinition{}, false
	}
	startLine := s.line
	s.pos++

	res := domain.ResourceDefinition{
		Type:       resourceType,
		Name:       resourceName,
		Properties: map[string]any{},
		Location:   domain.SourceLocation{Line: startLine},
	}
	s.readBody(&res)
	return res, true
}

// readBody consumes a `{ ... }` body, collecting top-level scalar
// attributes and depends_on references. Nested blocks are skipped.
func (s *tfScanner) readBody(res *domain.ResourceDefinition) {
	for {
		s.skipInert()
		if s.eof() {
			return
		}
		c := s.peek()
		if c == '}' {
			s.pos++
			return
		}
		if c == '"' {
			// Quoted attribute names and block labels; skip the literal.
			s.readQuoted()
			continue
		}
		word := s.readWord()
		if word == "" {
			s.pos++
			continue
		}
		s.skipInert()
		switch s.peek() {
		case '=':
			s.pos++
			s.skipInert()
			value, deps := s.readValue()
			if word == "depends_on" {
				res.Dependencies = append(res.Dependencies, deps...)
				continue
			}
			if value != nil {
				res.Properties[word] = value
			}
		case '{':
			s.pos++
			s.skipNested()
		case '"':
			// Labeled nested block, e.g. `provisioner "local-exec" {`.
			for s.peek() == '"' {
				s.readQuoted()
				s.skipInert()
			}
			if s.peek() == '{' {
				s.pos++
				s.skipNested()
			}
		}
	}
}

// skipNested consumes a balanced `{ ... }` body without recording anything.
func (s *tfScanner) skipNested() {
	depth := 1
	for !s.eof() && depth > 0 {
		s.skipInert()
		if s.eof() {
			return
		}
		switch s.peek() {
		case '"':
			s.readQuoted()
		case '{':
			depth++
			s.pos++
		case '}':
			depth--
			s.pos++
		default:
			s.pos++
		}
	}
}

// readValue parses the right-hand side of an attribute. Scalars come back
// as typed values; lists come back as both a value and, for reference
// lists, the raw reference names. Complex expressions yield nil.
func (s *tfScanner) readValue() (any, []string) {
	switch s.peek() {
	case '"':
		str, _ := s.readQuoted()
		return str, nil
	case '[':
		return s.readList()
	case '{':
		s.pos++
		s.skipNested()
		return nil, nil
	}
	word := s.readWord()
	switch word {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "":
		s.skipToLineEnd()
		return nil, nil
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return f, nil
	}
	// Bare references (aws_kms_key.main.arn) are kept as strings so rules
	// can at least observe that the attribute is set.
	return word, nil
}

func (s *tfScanner) readList() (any, []string) {
	s.pos++ // consume '['
	var values []any
	var refs []string
	for {
		s.skipInert()
		if s.eof() {
			break
		}
		c := s.peek()
		if c == ']' {
			s.pos++
			break
		}
		if c == ',' {
			s.pos++
			continue
		}
		if c == '"' {
			str, _ := s.readQuoted()
			values = append(values, str)
			continue
		}
		word := s.readWord()
		if word == "" {
			s.pos++
			continue
		}
		if f, err := strconv.ParseFloat(word, 64); err == nil {
			values = append(values, f)
			continue
		}
		values = append(values, word)
		refs = append(refs, word)
	}
	return values, refs
}

// tfJSONDocument mirrors the Terraform JSON configuration syntax:
// {"resource": {"aws_s3_bucket": {"logs": {...attributes}}}}.
type tfJSONDocument struct {
	Resource map[string]map[string]json.RawMessage `json:"resource"`
}

func parseTerraformJSON(raw []byte) ([]domain.ResourceDefinition, error) {
	var doc tfJSONDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &domain.ParseError{
			SourceKind: domain.SourceTerraform,
			Detail:     fmt.Sprintf("invalid JSON configuration: %v", err),
			Err:        err,
		}
	}

	types := make([]string, 0, len(doc.Resource))
	for t := range doc.Resource {
		types = append(types, t)
	}
	sort.Strings(types)

	var resources []domain.ResourceDefinition
	for _, resourceType := range types {
		names := make([]string, 0, len(doc.Resource[resourceType]))
		for name := range doc.Resource[resourceType] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			var props map[string]any
			if err := json.Unmarshal(doc.Resource[resourceType][name], &props); err != nil {
				continue
			}
			res := domain.ResourceDefinition{
				Type:       resourceType,
				Name:       name,
				Properties: props,
			}
			if deps, ok := props["depends_on"].([]any); ok {
				for _, d := range deps {
					if str, ok := d.(string); ok {
						res.Dependencies = append(res.Dependencies, str)
					}
				}
				delete(props, "depends_on")
			}
			resources = append(resources, res)
		}
	}
	return resources, nil
}
