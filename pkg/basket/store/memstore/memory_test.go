package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

func sampleTable() txn.Table {
	return txn.NewTable([]txn.Transaction{
		{CustomerID: "C1", Product: "Milk", Quantity: 1},
		{CustomerID: "C1", Product: "Bread", Quantity: 2},
	})
}

func sampleRules() mining.RuleTable {
	return mining.RuleTable{Rules: []mining.Rule{{
		Antecedents: itemset.New("Bread"),
		Consequents: itemset.New("Milk"),
		Scores:      mining.Scores{Support: 0.5, Lift: 2},
	}}}
}

func TestDatasetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.PutDataset(ctx, "groceries", sampleTable()); err != nil {
		t.Fatalf("PutDataset: %v", err)
	}
	got, err := s.GetDataset(ctx, "groceries")
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if got.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", got.Len())
	}

	if _, err := s.GetDataset(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.PutDataset(ctx, " ", sampleTable()); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank name, got %v", err)
	}

	names, _ := s.ListDatasets(ctx)
	if len(names) != 1 || names[0] != "groceries" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.PutDataset(ctx, "groceries", sampleTable()); err != nil {
		t.Fatal(err)
	}

	first, err := s.PutSnapshot(ctx, store.Snapshot{Dataset: "groceries", Kind: store.KindRules, Rules: sampleRules()})
	if err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("snapshot should get an id and timestamp: %+v", first)
	}
	second, err := s.PutSnapshot(ctx, store.Snapshot{Dataset: "groceries", Kind: store.KindRules, Parent: first.ID})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSnapshot(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if got.Len() != 1 || !got.Rules.Rules[0].Antecedents.Equal(itemset.New("Bread")) {
		t.Errorf("unexpected snapshot %+v", got)
	}

	// Mutating a returned table must not reach the store.
	got.Rules.Rules[0] = mining.Rule{}
	again, _ := s.GetSnapshot(ctx, first.ID)
	if again.Rules.Rules[0].Lift != 2 {
		t.Error("stored snapshot was mutated through a returned copy")
	}

	list, _ := s.ListSnapshots(ctx, "groceries")
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("expected newest first, got %d snapshots", len(list))
	}

	if err := s.DeleteDataset(ctx, "groceries"); err != nil {
		t.Fatalf("DeleteDataset: %v", err)
	}
	if _, err := s.GetSnapshot(ctx, first.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("snapshots should be removed with their dataset, got %v", err)
	}
}

func TestSnapshotRequiresDataset(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.PutSnapshot(ctx, store.Snapshot{Dataset: "missing", Kind: store.KindRules})
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, err = s.PutSnapshot(ctx, store.Snapshot{Dataset: "x", Kind: "plot"})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad kind, got %v", err)
	}
}
