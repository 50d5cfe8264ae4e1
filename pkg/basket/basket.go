// Package basket is the market-basket analysis engine facade. It ties the
// transaction store to mining, filtering, projection and summaries, and
// keeps every derived rule table as a snapshot.
package basket

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/internal/metrics"
	"github.com/akins11/market-basket-analysis-web-app/internal/validation"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/describe"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/filter"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/insight"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/maintenance"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/predicate"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/project"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/result"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/taxonomy"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// Engine is the main rule engine facade
type Engine struct {
	store      store.Store
	mining     mining.Options
	thresholds mining.Thresholds
	taxonomy   int
	timeout    time.Duration
}

// Options configures an Engine
type Options struct {
	Store             store.Store
	Mining            mining.Options
	Thresholds        mining.Thresholds
	TaxonomyThreshold int
	Timeout           time.Duration // per mining run; 0 disables the limit
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	if opts.TaxonomyThreshold == 0 {
		opts.TaxonomyThreshold = taxonomy.DefaultThreshold
	}
	return &Engine{
		store:      opts.Store,
		mining:     opts.Mining,
		thresholds: opts.Thresholds,
		taxonomy:   opts.TaxonomyThreshold,
		timeout:    opts.Timeout,
	}
}

// Close cleanly shuts down the engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the backing store.
func (e *Engine) Store() store.Store { return e.store }

// Upload reads a CSV transaction table and stores it under name.
func (e *Engine) Upload(ctx context.Context, name string, r io.Reader) (txn.Table, error) {
	t, err := txn.ReadCSV(r)
	if err != nil {
		return txn.Table{}, err
	}
	if err := e.PutDataset(ctx, name, t); err != nil {
		return txn.Table{}, err
	}
	logging.Ctx(ctx).Info().Str("dataset", name).Int("rows", t.Len()).Msg("dataset uploaded")
	return t, nil
}

// PutDataset stores a transaction table under name.
func (e *Engine) PutDataset(ctx context.Context, name string, t txn.Table) error {
	start := time.Now()
	err := e.store.PutDataset(ctx, name, t)
	metrics.RecordStore("put_dataset", time.Since(start), err)
	return err
}

// Dataset returns a stored transaction table.
func (e *Engine) Dataset(ctx context.Context, name string) (txn.Table, error) {
	start := time.Now()
	t, err := e.store.GetDataset(ctx, name)
	metrics.RecordStore("get_dataset", time.Since(start), err)
	return t, err
}

// Datasets lists the stored dataset names.
func (e *Engine) Datasets(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := e.store.ListDatasets(ctx)
	metrics.RecordStore("list_datasets", time.Since(start), err)
	return names, err
}

// DeleteDataset removes a dataset and its snapshots.
func (e *Engine) DeleteDataset(ctx context.Context, name string) error {
	start := time.Now()
	err := e.store.DeleteDataset(ctx, name)
	metrics.RecordStore("delete_dataset", time.Since(start), err)
	return err
}

// Collapse replaces a dataset with its taxonomy-collapsed version. A zero
// threshold uses the configured one.
func (e *Engine) Collapse(ctx context.Context, name string, threshold int) (txn.Table, []taxonomy.Decision, error) {
	if threshold == 0 {
		threshold = e.taxonomy
	}
	t, err := e.Dataset(ctx, name)
	if err != nil {
		return txn.Table{}, nil, err
	}
	out, decisions, err := taxonomy.Builder{Threshold: threshold}.Collapse(t)
	if err != nil {
		return txn.Table{}, nil, err
	}
	if err := e.PutDataset(ctx, name, out); err != nil {
		return txn.Table{}, nil, err
	}
	logging.Ctx(ctx).Debug().Str("dataset", name).Int("threshold", threshold).
		Int("products", len(decisions)).Msg("taxonomy applied")
	return out, decisions, nil
}

// MineRequest configures a mining run. Nil fields use the engine defaults.
type MineRequest struct {
	MinSupport   *float64 `json:"min_support,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxLength    int      `json:"max_length,omitempty" validate:"gte=0"`
	Metric       string   `json:"metric,omitempty" validate:"omitempty,oneof=support confidence lift leverage conviction"`
	MinThreshold *float64 `json:"min_threshold,omitempty"`
	Output       string   `json:"output,omitempty" validate:"omitempty,oneof=rules sup_len itemsets"`
}

// Mine searches a dataset for frequent itemsets and, unless itemsets were
// asked for, turns them into association rules. The result is stored as a
// snapshot.
func (e *Engine) Mine(ctx context.Context, dataset string, req MineRequest) (store.Snapshot, error) {
	if err := validation.Struct(req); err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: %w", err, internalerr.ErrInvalidInput)
	}
	out, err := mining.ParseOutput(req.Output)
	if err != nil {
		return store.Snapshot{}, err
	}
	opts, th := e.resolve(req)

	t, err := e.Dataset(ctx, dataset)
	if err != nil {
		return store.Snapshot{}, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	sets, err := mining.Mine(ctx, t, opts)
	metrics.RecordMining("itemsets", time.Since(start), sets.Len(), err)
	if err != nil {
		return store.Snapshot{}, err
	}

	params, err := json.Marshal(struct {
		MinSupport   float64 `json:"min_support"`
		MaxLength    int     `json:"max_length"`
		Metric       string  `json:"metric"`
		MinThreshold float64 `json:"min_threshold"`
		Output       string  `json:"output"`
	}{opts.MinSupport, opts.MaxLength, th.Metric, th.MinThreshold, out.String()})
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("encode mining params: %w", err)
	}
	snap := store.Snapshot{Dataset: dataset, Params: string(params)}

	if out == mining.OutputSupLen {
		snap.Kind, snap.Itemsets = store.KindItemsets, sets
	} else {
		start = time.Now()
		rules, err := mining.AssociationRules(sets, th)
		metrics.RecordMining("rules", time.Since(start), rules.Len(), err)
		if err != nil {
			return store.Snapshot{}, err
		}
		snap.Kind, snap.Rules = store.KindRules, rules
	}

	logging.Ctx(ctx).Debug().
		Str("dataset", dataset).
		Float64("min_support", opts.MinSupport).
		Str("output", out.String()).
		Int("itemsets", sets.Len()).
		Int("rules", snap.Rules.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("mining complete")
	return e.putSnapshot(ctx, snap)
}

func (e *Engine) resolve(req MineRequest) (mining.Options, mining.Thresholds) {
	opts, th := e.mining, e.thresholds
	if req.MinSupport != nil {
		opts.MinSupport = *req.MinSupport
	}
	if req.MaxLength != 0 {
		opts.MaxLength = req.MaxLength
	}
	if req.Metric != "" && req.Metric != th.Metric {
		th.Metric = req.Metric
		th.MinThreshold = mining.RangeFor(mining.Metric(req.Metric)).Default
	}
	if th.Metric == "" {
		th.Metric = string(mining.MetricLift)
	}
	if req.MinThreshold != nil {
		th.MinThreshold = *req.MinThreshold
	}
	return opts, th
}

// Snapshot returns a stored snapshot.
func (e *Engine) Snapshot(ctx context.Context, id string) (store.Snapshot, error) {
	start := time.Now()
	snap, err := e.store.GetSnapshot(ctx, id)
	metrics.RecordStore("get_snapshot", time.Since(start), err)
	return snap, err
}

// Snapshots lists the snapshots of a dataset, newest first.
func (e *Engine) Snapshots(ctx context.Context, dataset string) ([]store.Snapshot, error) {
	start := time.Now()
	snaps, err := e.store.ListSnapshots(ctx, dataset)
	metrics.RecordStore("list_snapshots", time.Since(start), err)
	return snaps, err
}

// DeleteSnapshot removes a snapshot. Snapshots derived from it are kept.
func (e *Engine) DeleteSnapshot(ctx context.Context, id string) error {
	start := time.Now()
	err := e.store.DeleteSnapshot(ctx, id)
	metrics.RecordStore("delete_snapshot", time.Since(start), err)
	return err
}

func (e *Engine) putSnapshot(ctx context.Context, snap store.Snapshot) (store.Snapshot, error) {
	start := time.Now()
	snap, err := e.store.PutSnapshot(ctx, snap)
	metrics.RecordStore("put_snapshot", time.Since(start), err)
	return snap, err
}

// rules loads a rule snapshot.
func (e *Engine) rules(ctx context.Context, id string) (store.Snapshot, error) {
	snap, err := e.Snapshot(ctx, id)
	if err != nil {
		return store.Snapshot{}, err
	}
	if snap.Kind != store.KindRules {
		return store.Snapshot{}, fmt.Errorf("snapshot %s holds %s, not rules: %w", id, snap.Kind, internalerr.ErrInvalidArgument)
	}
	return snap, nil
}

// derive stores a filtered copy of a rule snapshot.
func (e *Engine) derive(ctx context.Context, parent store.Snapshot, rules mining.RuleTable, params any) (store.Snapshot, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("encode filter params: %w", err)
	}
	return e.putSnapshot(ctx, store.Snapshot{
		Dataset: parent.Dataset,
		Parent:  parent.ID,
		Kind:    store.KindRules,
		Params:  string(raw),
		Rules:   rules,
	})
}

// FilterMetrics compiles raw clause input and keeps the rules of snapshot
// id that satisfy it.
func (e *Engine) FilterMetrics(ctx context.Context, id string, in predicate.Input) (store.Snapshot, error) {
	snap, err := e.filterMetrics(ctx, id, in)
	metrics.RecordFilter("metrics", false, err)
	return snap, err
}

func (e *Engine) filterMetrics(ctx context.Context, id string, in predicate.Input) (store.Snapshot, error) {
	compiled, err := in.Compile()
	if err != nil {
		return store.Snapshot{}, err
	}
	q, err := compiled.Query()
	if err != nil {
		return store.Snapshot{}, err
	}
	return e.FilterQuery(ctx, id, q)
}

// FilterQuery keeps the rules of snapshot id that satisfy q.
func (e *Engine) FilterQuery(ctx context.Context, id string, q predicate.Query) (store.Snapshot, error) {
	parent, err := e.rules(ctx, id)
	if err != nil {
		return store.Snapshot{}, err
	}
	out, err := filter.ByMetrics(parent.Rules, q)
	if err != nil {
		return store.Snapshot{}, err
	}
	return e.derive(ctx, parent, out, map[string]string{"query": q.String()})
}

// FilterProducts keeps the rules of snapshot id whose sides hold the
// requested products. An incomplete selection stores nothing.
func (e *Engine) FilterProducts(ctx context.Context, id string, q filter.ProductQuery) (result.Result[store.Snapshot], error) {
	res, err := e.filterProducts(ctx, id, q)
	metrics.RecordFilter("products", res.IsEmpty(), err)
	return res, err
}

func (e *Engine) filterProducts(ctx context.Context, id string, q filter.ProductQuery) (result.Result[store.Snapshot], error) {
	parent, err := e.rules(ctx, id)
	if err != nil {
		return result.Result[store.Snapshot]{}, err
	}
	res, err := filter.ByProducts(parent.Rules, q)
	if err != nil {
		return result.Result[store.Snapshot]{}, err
	}
	rules, ok := res.Value()
	if !ok {
		return result.EmptySelection[store.Snapshot](res.Reason()), nil
	}
	snap, err := e.derive(ctx, parent, rules, q)
	if err != nil {
		return result.Result[store.Snapshot]{}, err
	}
	return result.Ok(snap), nil
}

// LengthRequest selects rules by the size of one side.
type LengthRequest struct {
	Side string `json:"rule_type" validate:"required"`
	Op   string `json:"comp_op" validate:"required"`
	N    int    `json:"length" validate:"gte=0"`
}

// FilterLength keeps the rules of snapshot id whose side length satisfies
// the comparison.
func (e *Engine) FilterLength(ctx context.Context, id string, req LengthRequest) (store.Snapshot, error) {
	snap, err := e.filterLength(ctx, id, req)
	metrics.RecordFilter("length", false, err)
	return snap, err
}

func (e *Engine) filterLength(ctx context.Context, id string, req LengthRequest) (store.Snapshot, error) {
	if err := validation.Struct(req); err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: %w", err, internalerr.ErrInvalidArgument)
	}
	parent, err := e.rules(ctx, id)
	if err != nil {
		return store.Snapshot{}, err
	}
	out, err := filter.ByLength(parent.Rules, req.Side, req.Op, req.N)
	if err != nil {
		return store.Snapshot{}, err
	}
	return e.derive(ctx, parent, out, req)
}

// Describe summarizes a snapshot of either kind.
func (e *Engine) Describe(ctx context.Context, id string) (describe.Summary, error) {
	snap, err := e.Snapshot(ctx, id)
	metrics.RecordFilter("describe", false, err)
	if err != nil {
		return describe.Summary{}, err
	}
	if snap.Kind == store.KindItemsets {
		return describe.DescribeItemsets(snap.Itemsets), nil
	}
	return describe.Describe(snap.Rules), nil
}

// Relationship relates two or three metrics across the rules of a
// snapshot.
func (e *Engine) Relationship(ctx context.Context, id, x, y, z string) (insight.Scatter, error) {
	snap, err := e.rules(ctx, id)
	if err != nil {
		return insight.Scatter{}, err
	}
	return insight.Relationship(snap.Rules, x, y, z)
}

// Recommend projects a request onto a dataset.
func (e *Engine) Recommend(ctx context.Context, dataset string, req project.Request) (result.Result[project.Projection], txn.Table, error) {
	t, err := e.Dataset(ctx, dataset)
	if err != nil {
		metrics.RecordFilter("recommend", false, err)
		return result.Result[project.Projection]{}, txn.Table{}, err
	}
	res := project.Project(t, req)
	metrics.RecordFilter("recommend", res.IsEmpty(), nil)
	return res, t, nil
}

// RecommendFromRules projects the leading rules of a rule snapshot onto the
// dataset it was mined from.
func (e *Engine) RecommendFromRules(ctx context.Context, id string, sel project.Selection) (result.Result[project.Projection], txn.Table, error) {
	snap, err := e.rules(ctx, id)
	if err != nil {
		metrics.RecordFilter("recommend", false, err)
		return result.Result[project.Projection]{}, txn.Table{}, err
	}
	return e.Recommend(ctx, snap.Dataset, project.FromRules(snap.Rules, sel))
}

// Export renders the rules of a snapshot through w.
func (e *Engine) Export(ctx context.Context, id string, w maintenance.RuleWriter) error {
	snap, err := e.rules(ctx, id)
	if err != nil {
		return err
	}
	exporter := maintenance.RuleExporter{Writer: w}
	return exporter.Export(ctx, snap.Rules)
}
