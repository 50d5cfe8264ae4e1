package maintenance

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
)

type fakeWriter struct {
	content string
	err     error
}

func (f *fakeWriter) WriteRules(ctx context.Context, content string) error {
	if f.err != nil {
		return f.err
	}
	f.content = content
	return nil
}

func sampleRules() mining.RuleTable {
	return mining.RuleTable{Rules: []mining.Rule{{
		Antecedents: itemset.New("Bread", "Peanut-Butter"),
		Consequents: itemset.New("Whole Milk"),
		Scores:      mining.Scores{Support: 0.4, Confidence: 1, Lift: 2, Leverage: 0.2, Conviction: math.Inf(1)},
	}}}
}

func TestRuleExporterWritesFacts(t *testing.T) {
	writer := &fakeWriter{}
	exporter := RuleExporter{Writer: writer}

	if err := exporter.Export(context.Background(), sampleRules()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if !strings.Contains(writer.content, "rule([bread, peanut_butter], [whole_milk]).") {
		t.Fatalf("unexpected export: %s", writer.content)
	}
	if !strings.Contains(writer.content, "lift 2.00 leverage 0.20 conviction inf") {
		t.Fatalf("unexpected scores: %s", writer.content)
	}
}

func TestRuleExporterQuotesOddNames(t *testing.T) {
	cases := map[string]string{
		"Milk":        "milk",
		"Tea (Green)": "'Tea (Green)'",
		"7up":         "'7up'",
		"Baker's":     `'Baker\'s'`,
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRuleExporterWarning(t *testing.T) {
	writer := &fakeWriter{}
	exporter := RuleExporter{Writer: writer}
	if err := exporter.Export(context.Background(), mining.RuleTable{Warning: mining.WarningSupportTooLarge}); err != nil {
		t.Fatal(err)
	}
	if writer.content != "% Minimum support value is too large\n" {
		t.Fatalf("unexpected export: %q", writer.content)
	}
}

func TestRuleExporterWriterError(t *testing.T) {
	exporter := RuleExporter{Writer: &fakeWriter{err: errors.New("fail")}}
	if err := exporter.Export(context.Background(), mining.RuleTable{}); err == nil {
		t.Fatal("expected error")
	}
	if err := (&RuleExporter{}).Export(context.Background(), mining.RuleTable{}); err == nil {
		t.Fatal("expected error for nil writer")
	}
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.pl")
	exporter := RuleExporter{Writer: FileWriter{Path: path}}
	if err := exporter.Export(context.Background(), sampleRules()); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "rule(") {
		t.Fatalf("unexpected file content: %s", data)
	}
}
