// Package store persists uploaded transaction tables and mined rule
// snapshots between requests.
package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// Store is the interface for persisting datasets and snapshots.
type Store interface {
	Close() error

	// Datasets
	PutDataset(ctx context.Context, name string, t txn.Table) error
	GetDataset(ctx context.Context, name string) (txn.Table, error)
	ListDatasets(ctx context.Context) ([]string, error)
	DeleteDataset(ctx context.Context, name string) error

	// Snapshots
	PutSnapshot(ctx context.Context, s Snapshot) (Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (Snapshot, error)
	ListSnapshots(ctx context.Context, dataset string) ([]Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
}

// Kind tells which table a snapshot holds.
type Kind string

const (
	KindItemsets Kind = "itemsets"
	KindRules    Kind = "rules"
)

// ParseKind validates a snapshot kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindItemsets:
		return KindItemsets, nil
	case KindRules:
		return KindRules, nil
	}
	return "", fmt.Errorf("snapshot kind %q: %w", s, internalerr.ErrInvalidInput)
}

// Snapshot is a mined or filtered table derived from a dataset.
type Snapshot struct {
	ID        string
	Dataset   string
	Parent    string // snapshot this one was filtered from, if any
	Kind      Kind
	Params    string // JSON of the request that produced it
	CreatedAt time.Time
	Itemsets  mining.ItemsetTable
	Rules     mining.RuleTable
}

// Len returns the row count of the held table.
func (s Snapshot) Len() int {
	if s.Kind == KindItemsets {
		return s.Itemsets.Len()
	}
	return s.Rules.Len()
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new snapshot id. Ids sort in creation order.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Prepare fills the id and timestamp of a snapshot about to be stored.
func Prepare(s Snapshot) (Snapshot, error) {
	if s.Dataset == "" {
		return Snapshot{}, fmt.Errorf("snapshot without dataset: %w", internalerr.ErrInvalidInput)
	}
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return Snapshot{}, err
	}
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return s, nil
}

// ValidateName rejects empty dataset names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty dataset name: %w", internalerr.ErrInvalidInput)
	}
	return nil
}
