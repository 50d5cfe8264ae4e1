package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/config"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/describe"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/filter"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/maintenance"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/predicate"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/project"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store/memstore"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/table"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/taxonomy"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// inputDataset names the single dataset of an offline run.
const inputDataset = "input"

// --- mine ---

func newMineCmd(a *app) *cobra.Command {
	var (
		input        string
		minSupport   float64
		maxLength    int
		metric       string
		minThreshold float64
		output       string
	)
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine frequent itemsets and association rules from a CSV",
		Long: `Mine frequent itemsets and association rules from a transaction CSV.

Examples:
  basket mine --input sales.csv
  basket mine --input sales.csv --min-support 0.02 --metric confidence --min-threshold 0.6
  basket mine --input sales.csv --output sup_len`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := basket.MineRequest{MaxLength: maxLength, Metric: metric, Output: output}
			if cmd.Flags().Changed("min-support") {
				req.MinSupport = &minSupport
			}
			if cmd.Flags().Changed("min-threshold") {
				req.MinThreshold = &minThreshold
			}

			engine, err := loadEngine(cmd, a.cfg, input)
			if err != nil {
				return err
			}
			snap, err := engine.Mine(cmd.Context(), inputDataset, req)
			if err != nil {
				return err
			}
			if snap.Rules.Warning != "" {
				printWarning(cmd, "%s", snap.Rules.Warning)
			}
			return writeJSON(cmd.OutOrStdout(), snapshotTable(snap))
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "transaction CSV file (required)")
	cmd.Flags().Float64Var(&minSupport, "min-support", mining.DefaultMinSupport, "minimum itemset support in [0, 1]")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "maximum itemset length (0 for no limit)")
	cmd.Flags().StringVar(&metric, "metric", "", "rule metric: support, confidence, lift, leverage or conviction")
	cmd.Flags().Float64Var(&minThreshold, "min-threshold", 0, "minimum value of the rule metric")
	cmd.Flags().StringVar(&output, "output", "rules", "rules or sup_len")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// --- collapse ---

func newCollapseCmd(a *app) *cobra.Command {
	var (
		input     string
		threshold int
	)
	cmd := &cobra.Command{
		Use:   "collapse",
		Short: "Collapse SKU variants into a product taxonomy",
		Long: `Collapse the SKU variants of each product into a bounded product taxonomy
and print the transactions with a Product_Taxonomy column.

Examples:
  basket collapse --input sales.csv --threshold 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTransactions(input)
			if err != nil {
				return err
			}
			if threshold == 0 {
				threshold = a.cfg.Taxonomy.Threshold
			}
			out, decisions, err := taxonomy.Builder{Threshold: threshold}.Collapse(t)
			if err != nil {
				return err
			}
			logging.Debug().Int("threshold", threshold).Int("products", len(decisions)).Msg("taxonomy applied")
			return writeJSON(cmd.OutOrStdout(), table.FromTransactions(out))
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "transaction CSV file (required)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "maximum variants kept per product (0 uses taxonomy.threshold)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// --- filter ---

func newFilterCmd(a *app) *cobra.Command {
	var (
		rulesPath   string
		metrics     []string
		values      []float64
		compOps     []string
		boolOps     []string
		preset      string
		presetsPath string
		pq          filter.ProductQuery
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter a rule table by metrics, products or a saved preset",
		Long: `Filter a rule table by metric clauses, by the products on its sides, or by a
named preset from the presets file.

Examples:
  basket filter --rules rules.json --metrics lift,confidence --values 1.5,0.4 --comp-ops ">,>=" --bool-ops "&"
  basket filter --rules rules.json --rule-type antecedents --products Milk,Bread
  basket filter --rules rules.json --preset strong --presets presets.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := readRules(rulesPath)
			if err != nil {
				return err
			}

			if preset != "" {
				if presetsPath == "" {
					presetsPath = a.cfg.Server.PresetsPath
				}
				comp, err := (&config.Loader{PresetsPath: presetsPath}).Load()
				if err != nil {
					return err
				}
				if q, ok := comp.Queries[preset]; ok {
					return writeMetricFilter(cmd, rules, q)
				}
				q, ok := comp.Products[preset]
				if !ok {
					return fmt.Errorf("preset %q not found in %s", preset, presetsPath)
				}
				return writeProductFilter(cmd, rules, q)
			}

			if cmd.Flags().Changed("products") {
				return writeProductFilter(cmd, rules, pq)
			}

			// Connector lists carry one slot per clause; the last is unused.
			var conns []*string
			if len(boolOps) > 0 {
				conns = append(predicate.Strings(boolOps...), nil)
			}
			compiled, err := predicate.Compile(
				predicate.Strings(metrics...), predicate.Floats(values...),
				predicate.Strings(compOps...), conns)
			if err != nil {
				return err
			}
			q, err := compiled.Query()
			if err != nil {
				return err
			}
			return writeMetricFilter(cmd, rules, q)
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule table in split JSON (required)")
	cmd.Flags().StringSliceVar(&metrics, "metrics", nil, "metric names")
	cmd.Flags().Float64SliceVar(&values, "values", nil, "metric values, one per metric")
	cmd.Flags().StringSliceVar(&compOps, "comp-ops", nil, "comparison operators, one per metric")
	cmd.Flags().StringSliceVar(&boolOps, "bool-ops", nil, "connectors between clauses: & or |")
	cmd.Flags().StringVar(&preset, "preset", "", "apply a named preset")
	cmd.Flags().StringVar(&presetsPath, "presets", "", "presets file (defaults to server.presets_path)")
	cmd.Flags().StringVar(&pq.Search, "search-type", "any", "product search: any or all")
	cmd.Flags().StringVar(&pq.Side, "rule-type", "antecedents", "rule side: antecedents or consequents")
	cmd.Flags().StringSliceVar(&pq.Products, "products", nil, "products to search for")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

func writeMetricFilter(cmd *cobra.Command, rules mining.RuleTable, q predicate.Query) error {
	out, err := filter.ByMetrics(rules, q)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), table.FromRules(out))
}

func writeProductFilter(cmd *cobra.Command, rules mining.RuleTable, q filter.ProductQuery) error {
	res, err := filter.ByProducts(rules, q)
	if err != nil {
		return err
	}
	out, ok := res.Value()
	if !ok {
		printWarning(cmd, "%s", res.Reason())
		return writeJSON(cmd.OutOrStdout(), table.Problem(res.Reason()))
	}
	return writeJSON(cmd.OutOrStdout(), table.FromRules(out))
}

// --- describe ---

func newDescribeCmd(a *app) *cobra.Command {
	var (
		rulesPath string
		markdown  bool
		name      string
	)
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarize a rule or itemset table",
		Long: `Print the row count and the range of each metric of a rule or itemset table.

Examples:
  basket describe --rules rules.json
  basket describe --rules rules.json --markdown --name "Filtered Data"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			split, err := readSplit(rulesPath)
			if err != nil {
				return err
			}
			var summary describe.Summary
			if rules, err := table.ToRules(split); err == nil {
				summary = describe.Describe(rules)
			} else {
				sets, err := table.ToItemsets(split)
				if err != nil {
					return fmt.Errorf("%s is neither a rule nor an itemset table: %w", rulesPath, err)
				}
				summary = describe.DescribeItemsets(sets)
			}
			if markdown {
				_, err := fmt.Fprint(cmd.OutOrStdout(), summary.Markdown(name))
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule or itemset table in split JSON (required)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print a text summary")
	cmd.Flags().StringVar(&name, "name", "Analysis", "source label of the text summary")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

// --- recommend ---

func newRecommendCmd(a *app) *cobra.Command {
	var (
		input      string
		rulesPath  string
		sel        project.Selection
		antecedent []string
		consequent []string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Find customers likely to buy the consequents of rules",
		Long: `Project association rules onto a transaction table and list the customers
likely to buy each consequent. Pairs come from the leading rules of a rule
table, or from --antecedent and --consequent.

Examples:
  basket recommend --input sales.csv --rules rules.json --range 3
  basket recommend --input sales.csv --antecedent Milk --consequent Bread --customer-ids-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTransactions(input)
			if err != nil {
				return err
			}

			var req project.Request
			switch {
			case rulesPath != "":
				rules, err := readRules(rulesPath)
				if err != nil {
					return err
				}
				req = project.FromRules(rules, sel)
			default:
				req = project.Request{
					Pairs:           []project.Pair{{Antecedent: antecedent, Consequent: consequent}},
					CustomerIDsOnly: sel.CustomerIDsOnly,
				}
			}

			res := project.Project(t, req)
			p, ok := res.Value()
			if !ok {
				printWarning(cmd, "%s", res.Reason())
				return writeJSON(cmd.OutOrStdout(), table.Problem(res.Reason()))
			}
			return writeJSON(cmd.OutOrStdout(), table.FromProjection(p, t))
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "transaction CSV file (required)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule table in split JSON")
	cmd.Flags().IntVar(&sel.Range, "range", 0, "number of leading rules to use (0 uses the first rule)")
	cmd.Flags().BoolVar(&sel.ByRow, "by-row", false, "project each rule separately")
	cmd.Flags().BoolVar(&sel.CustomerIDsOnly, "customer-ids-only", false, "print customer ids only")
	cmd.Flags().StringSliceVar(&antecedent, "antecedent", nil, "antecedent products")
	cmd.Flags().StringSliceVar(&consequent, "consequent", nil, "consequent products")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// --- export ---

// stdoutWriter sends exported rules to the command output.
type stdoutWriter struct {
	cmd *cobra.Command
}

func (w stdoutWriter) WriteRules(_ context.Context, content string) error {
	_, err := fmt.Fprint(w.cmd.OutOrStdout(), content)
	return err
}

func newExportCmd(a *app) *cobra.Command {
	var (
		rulesPath string
		out       string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export rules as Prolog facts",
		Long: `Export a rule table as Prolog facts, one rule per line.

Examples:
  basket export --rules rules.json
  basket export --rules rules.json --out rules.pl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := readRules(rulesPath)
			if err != nil {
				return err
			}
			var w maintenance.RuleWriter = stdoutWriter{cmd: cmd}
			if out != "" {
				w = maintenance.FileWriter{Path: out}
			}
			exporter := maintenance.RuleExporter{Writer: w}
			return exporter.Export(cmd.Context(), rules)
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule table in split JSON (required)")
	cmd.Flags().StringVar(&out, "out", "", "output file (defaults to stdout)")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

// --- helpers ---

// loadEngine reads a CSV into an in-memory engine as the input dataset.
func loadEngine(cmd *cobra.Command, cfg *config.Config, path string) (*basket.Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	engine := newEngine(memstore.New(), cfg)
	if _, err := engine.Upload(cmd.Context(), inputDataset, f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return engine, nil
}

func readTransactions(path string) (txn.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return txn.Table{}, err
	}
	defer f.Close()

	t, err := txn.ReadCSV(f)
	if err != nil {
		return txn.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func readSplit(path string) (table.Split, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return table.Split{}, err
	}
	s, err := table.Decode(data)
	if err != nil {
		return table.Split{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func readRules(path string) (mining.RuleTable, error) {
	s, err := readSplit(path)
	if err != nil {
		return mining.RuleTable{}, err
	}
	rules, err := table.ToRules(s)
	if err != nil {
		return mining.RuleTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

func snapshotTable(snap store.Snapshot) table.Split {
	if snap.Kind == store.KindItemsets {
		return table.FromItemsets(snap.Itemsets)
	}
	return table.FromRules(snap.Rules)
}
