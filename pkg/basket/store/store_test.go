package store

import (
	"errors"
	"testing"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
)

func TestNewIDSortsInCreationOrder(t *testing.T) {
	prev := NewID()
	for range 100 {
		id := NewID()
		if id <= prev {
			t.Fatalf("id %s does not sort after %s", id, prev)
		}
		prev = id
	}
}

func TestPrepare(t *testing.T) {
	s, err := Prepare(Snapshot{Dataset: "groceries", Kind: KindItemsets})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(s.ID) != 26 || s.CreatedAt.IsZero() {
		t.Errorf("unexpected prepared snapshot %+v", s)
	}

	kept, _ := Prepare(Snapshot{ID: "fixed", Dataset: "groceries", Kind: KindRules})
	if kept.ID != "fixed" {
		t.Errorf("existing id should be kept, got %q", kept.ID)
	}

	if _, err := Prepare(Snapshot{Kind: KindRules}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput without dataset, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("RULES"); err != nil || k != KindRules {
		t.Errorf("ParseKind(RULES) = %v, %v", k, err)
	}
	if _, err := ParseKind("plot"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
