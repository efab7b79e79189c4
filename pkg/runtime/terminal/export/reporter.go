package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

type TableConfig struct {
	RuleWidth     int
	SeverityWidth int
	StatusWidth   int
	MessageWidth  int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		RuleWidth:     32,
		SeverityWidth: 10,
		StatusWidth:   8,
		MessageWidth:  56,
	}
}

// Reporter renders an analysis result to the console in a formatted
// text form: the aggregate summary first, then a findings table.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (c *Reporter) Handle(result *domain.AnalysisResult) error {
	funcMap := template.FuncMap{
		"formatRow": func(rule interface{}, severity interface{}, status interface{}, message interface{}) string {
			return fmt.Sprintf("| %-*v | %-*v | %-*v | %-*v |",
				c.config.RuleWidth, rule,
				c.config.SeverityWidth, severity,
				c.config.StatusWidth, status,
				c.config.MessageWidth, message)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.RuleWidth+2),
				strings.Repeat("-", c.config.SeverityWidth+2),
				strings.Repeat("-", c.config.StatusWidth+2),
				strings.Repeat("-", c.config.MessageWidth+2))
		},
	}

	tmpl := `
Analysis {{.ID}} ({{.Status}})

Window: {{.StartedAt.Format "2006-01-02 15:04:05"}} to {{.CompletedAt.Format "2006-01-02 15:04:05"}}
Overall Score: {{.Summary.OverallScore}}/100
Risk Level: {{.Summary.RiskLevel}}
Total Findings: {{.Summary.TotalFindings}}

=== Pillar Scores ===
{{range $pillar, $score := .Summary.PillarScores}}
{{$pillar}}: {{printf "%.1f" $score}}
{{end}}
{{if .Findings}}
=== Findings ===

{{separator}}
{{formatRow "Rule" "Severity" "Status" "Message"}}
{{separator}}
{{range .Findings}}{{formatRow .RuleID .Severity .Status .Message}}
{{end}}{{separator}}
{{end}}
{{if .Summary.Recommendations.Immediate}}
=== Immediate Actions ===
{{range .Summary.Recommendations.Immediate}}
- {{.}}
{{end}}{{end}}
{{if .Summary.Recommendations.ShortTerm}}
=== Short Term ===
{{range .Summary.Recommendations.ShortTerm}}
- {{.}}
{{end}}{{end}}
{{if .Summary.Recommendations.LongTerm}}
=== Long Term ===
{{range .Summary.Recommendations.LongTerm}}
- {{.}}
{{end}}{{end}}
{{range .UnitResults}}
Unit {{.UnitID}}: {{.Status}}{{if .Error}} ({{.Error}}){{end}}
{{end}}
`

	t, err := template.New("result").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, result)
}
