package maintenance

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
)

// RuleWriter persists exported rules to a destination (file, DB, etc.).
type RuleWriter interface {
	WriteRules(ctx context.Context, content string) error
}

// FileWriter writes exported rules to a file.
type FileWriter struct {
	Path string
}

func (w FileWriter) WriteRules(ctx context.Context, content string) error {
	return os.WriteFile(w.Path, []byte(content), 0o644)
}

// RuleExporter renders association rules as Prolog-style facts:
//
//	rule([bread, butter], [milk]). % support 0.40 confidence 1.00 lift 2.00 leverage 0.20 conviction inf
type RuleExporter struct {
	Writer RuleWriter
}

// Export writes one fact per rule, in table order.
func (e *RuleExporter) Export(ctx context.Context, rules mining.RuleTable) error {
	if e.Writer == nil {
		return fmt.Errorf("rule exporter: nil writer")
	}
	var b strings.Builder
	if rules.Warning != "" {
		fmt.Fprintf(&b, "%% %s\n", rules.Warning)
	}
	for _, r := range rules.Rules {
		fmt.Fprintf(&b, "rule(%s, %s). %% support %.2f confidence %.2f lift %.2f leverage %.2f conviction %s\n",
			atoms(r.Antecedents.Items()), atoms(r.Consequents.Items()),
			r.Support, r.Confidence, r.Lift, r.Leverage, formatScore(r.Conviction))
	}
	return e.Writer.WriteRules(ctx, b.String())
}

func atoms(items []string) string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = sanitize(item)
	}
	return "[" + strings.Join(out, ", ") + "]"
}

// sanitize turns a product name into a lower-case atom, quoting names that
// still hold characters an unquoted atom cannot.
func sanitize(s string) string {
	atom := strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(s))
	for _, c := range atom {
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
		}
	}
	if atom == "" || atom[0] == '_' || atom[0] >= '0' && atom[0] <= '9' {
		return "'" + s + "'"
	}
	return atom
}

func formatScore(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
