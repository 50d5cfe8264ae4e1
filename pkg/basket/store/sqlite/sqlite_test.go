package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

func openTest(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleTable() txn.Table {
	day := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	return txn.NewTable([]txn.Transaction{
		{CustomerID: "C1", Product: "Milk", SKU: "M1", Quantity: 1, SalesAmount: decimal.RequireFromString("2.5"), Date: day},
		{CustomerID: "C1", Product: "Bread", SKU: "B1", Quantity: 2, SalesAmount: decimal.RequireFromString("3"), Date: day},
		{CustomerID: "C2", Product: "Milk", SKU: "M1", Quantity: 1, SalesAmount: decimal.RequireFromString("2.5"), Date: day},
	})
}

// TestSQLiteDatasets tests dataset CRUD operations
func TestSQLiteDatasets(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	if err := st.PutDataset(ctx, "groceries", sampleTable()); err != nil {
		t.Fatalf("PutDataset: %v", err)
	}
	got, err := st.GetDataset(ctx, "groceries")
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("Expected 3 rows, got %d", got.Len())
	}
	r := got.Row(1)
	if r.CustomerID != "C1" || r.Product != "Bread" || r.Quantity != 2 {
		t.Errorf("Row mismatch: %+v", r)
	}
	if !r.SalesAmount.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Sales amount mismatch: %s", r.SalesAmount)
	}
	if !r.Date.Equal(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date mismatch: %v", r.Date)
	}

	// Replacing keeps the name unique
	if err := st.PutDataset(ctx, "groceries", txn.NewTable(sampleTable().Rows()[:1])); err != nil {
		t.Fatalf("PutDataset replace: %v", err)
	}
	names, err := st.ListDatasets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Errorf("Expected 1 dataset, got %v", names)
	}
	got, _ = st.GetDataset(ctx, "groceries")
	if got.Len() != 1 {
		t.Errorf("Replacement not stored, got %d rows", got.Len())
	}

	if _, err := st.GetDataset(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := st.DeleteDataset(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on delete, got %v", err)
	}
}

// TestSQLiteSnapshots tests snapshot persistence of both table kinds
func TestSQLiteSnapshots(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)
	if err := st.PutDataset(ctx, "groceries", sampleTable()); err != nil {
		t.Fatal(err)
	}

	sets := mining.ItemsetTable{Itemsets: []mining.Itemset{
		{Items: itemset.New("Milk"), Support: 1},
		{Items: itemset.New("Bread", "Milk"), Support: 0.5},
	}}
	isnap, err := st.PutSnapshot(ctx, store.Snapshot{
		Dataset: "groceries", Kind: store.KindItemsets, Itemsets: sets, Params: `{"min_support":0.5}`,
	})
	if err != nil {
		t.Fatalf("PutSnapshot itemsets: %v", err)
	}

	rules := mining.RuleTable{Rules: []mining.Rule{{
		Antecedents: itemset.New("Bread"),
		Consequents: itemset.New("Milk"),
		Scores: mining.Scores{
			AntecedentSupport: 0.5, ConsequentSupport: 1, Support: 0.5,
			Confidence: 1, Lift: 1, Leverage: 0, Conviction: math.Inf(1),
		},
	}}}
	rsnap, err := st.PutSnapshot(ctx, store.Snapshot{
		Dataset: "groceries", Kind: store.KindRules, Parent: isnap.ID, Rules: rules,
	})
	if err != nil {
		t.Fatalf("PutSnapshot rules: %v", err)
	}

	got, err := st.GetSnapshot(ctx, isnap.ID)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if got.Kind != store.KindItemsets || got.Itemsets.Len() != 2 || got.Params != `{"min_support":0.5}` {
		t.Errorf("Itemset snapshot mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(isnap.CreatedAt) {
		t.Errorf("CreatedAt mismatch: %v vs %v", got.CreatedAt, isnap.CreatedAt)
	}

	got, err = st.GetSnapshot(ctx, rsnap.ID)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if got.Parent != isnap.ID || got.Rules.Len() != 1 {
		t.Fatalf("Rule snapshot mismatch: %+v", got)
	}
	if !math.IsInf(got.Rules.Rules[0].Conviction, 1) {
		t.Errorf("Infinite conviction lost: %v", got.Rules.Rules[0].Conviction)
	}

	list, err := st.ListSnapshots(ctx, "groceries")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != rsnap.ID {
		t.Errorf("Expected newest first, got %d snapshots", len(list))
	}
	all, _ := st.ListSnapshots(ctx, "")
	if len(all) != 2 {
		t.Errorf("Expected 2 snapshots overall, got %d", len(all))
	}

	if _, err := st.GetSnapshot(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := st.DeleteDataset(ctx, "groceries"); err != nil {
		t.Fatalf("DeleteDataset: %v", err)
	}
	if list, _ := st.ListSnapshots(ctx, "groceries"); len(list) != 0 {
		t.Errorf("Snapshots should cascade, got %d", len(list))
	}
}

func TestSQLiteEmptyRuleWarning(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)
	if err := st.PutDataset(ctx, "groceries", sampleTable()); err != nil {
		t.Fatal(err)
	}

	snap, err := st.PutSnapshot(ctx, store.Snapshot{
		Dataset: "groceries", Kind: store.KindRules,
		Rules: mining.RuleTable{Warning: mining.WarningSupportTooLarge},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := st.GetSnapshot(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rules.Len() != 0 || got.Rules.Warning != mining.WarningSupportTooLarge {
		t.Errorf("Warning lost: %+v", got.Rules)
	}
}

func TestSQLiteSnapshotRequiresDataset(t *testing.T) {
	st := openTest(t)
	_, err := st.PutSnapshot(context.Background(), store.Snapshot{Dataset: "missing", Kind: store.KindRules})
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
