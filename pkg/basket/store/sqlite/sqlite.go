package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/table"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// sqliteStore implements the Store interface using SQLite. Tables are kept
// as split-orientation JSON.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// PRAGMAs are per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS datasets (
	name TEXT PRIMARY KEY,
	row_count INTEGER NOT NULL,
	body TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	dataset TEXT NOT NULL,
	parent TEXT,
	kind TEXT NOT NULL,
	params TEXT,
	warning TEXT,
	body TEXT NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY(dataset) REFERENCES datasets(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_snapshots_dataset ON snapshots(dataset);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// PutDataset inserts or replaces a dataset. Replacing a dataset keeps its
// snapshots.
func (s *sqliteStore) PutDataset(ctx context.Context, name string, t txn.Table) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	body, err := table.FromTransactions(t).Encode()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO datasets (name, row_count, body, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	row_count=excluded.row_count,
	body=excluded.body,
	updated_at=excluded.updated_at;
`, name, t.Len(), string(body), time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetDataset retrieves a dataset by name.
func (s *sqliteStore) GetDataset(ctx context.Context, name string) (txn.Table, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM datasets WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return txn.Table{}, fmt.Errorf("dataset %q: %w", name, internalerr.ErrNotFound)
	}
	if err != nil {
		return txn.Table{}, err
	}

	split, err := table.Decode([]byte(body))
	if err != nil {
		return txn.Table{}, fmt.Errorf("dataset %q: %w", name, err)
	}
	return table.ToTransactions(split)
}

// ListDatasets returns the dataset names in sorted order.
func (s *sqliteStore) ListDatasets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM datasets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteDataset removes a dataset; its snapshots cascade.
func (s *sqliteStore) DeleteDataset(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("dataset %q: %w", name, internalerr.ErrNotFound)
	}
	return nil
}

// PutSnapshot stores a snapshot, assigning its id when empty.
func (s *sqliteStore) PutSnapshot(ctx context.Context, snap store.Snapshot) (store.Snapshot, error) {
	snap, err := store.Prepare(snap)
	if err != nil {
		return store.Snapshot{}, err
	}
	body, err := encodeSnapshot(snap)
	if err != nil {
		return store.Snapshot{}, err
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets WHERE name = ?`, snap.Dataset).Scan(&exists); err != nil {
		return store.Snapshot{}, err
	}
	if exists == 0 {
		return store.Snapshot{}, fmt.Errorf("dataset %q: %w", snap.Dataset, internalerr.ErrNotFound)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshots (id, dataset, parent, kind, params, warning, body, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	dataset=excluded.dataset,
	parent=excluded.parent,
	kind=excluded.kind,
	params=excluded.params,
	warning=excluded.warning,
	body=excluded.body,
	created_at=excluded.created_at;
`, snap.ID, snap.Dataset, snap.Parent, string(snap.Kind), snap.Params, snap.Rules.Warning,
		string(body), snap.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return store.Snapshot{}, err
	}
	return snap, nil
}

// GetSnapshot retrieves a snapshot by id.
func (s *sqliteStore) GetSnapshot(ctx context.Context, id string) (store.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, dataset, parent, kind, params, warning, body, created_at
FROM snapshots
WHERE id = ?;
`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, fmt.Errorf("snapshot %q: %w", id, internalerr.ErrNotFound)
	}
	return snap, err
}

// ListSnapshots returns the snapshots of a dataset, newest first. An empty
// dataset name lists every snapshot.
func (s *sqliteStore) ListSnapshots(ctx context.Context, dataset string) ([]store.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, dataset, parent, kind, params, warning, body, created_at
FROM snapshots
WHERE ? = '' OR dataset = ?
ORDER BY id DESC;
`, dataset, dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a snapshot by id.
func (s *sqliteStore) DeleteSnapshot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("snapshot %q: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (store.Snapshot, error) {
	var snap store.Snapshot
	var parent, params, warning sql.NullString
	var kind, body, created string
	if err := sc.Scan(&snap.ID, &snap.Dataset, &parent, &kind, &params, &warning, &body, &created); err != nil {
		return store.Snapshot{}, err
	}
	snap.Parent = parent.String
	snap.Params = params.String

	var err error
	if snap.Kind, err = store.ParseKind(kind); err != nil {
		return store.Snapshot{}, err
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return store.Snapshot{}, fmt.Errorf("snapshot %s created_at: %w", snap.ID, err)
	}

	var split table.Split
	if err := json.Unmarshal([]byte(body), &split); err != nil {
		return store.Snapshot{}, fmt.Errorf("snapshot %s body: %w", snap.ID, err)
	}
	switch snap.Kind {
	case store.KindItemsets:
		snap.Itemsets, err = table.ToItemsets(split)
	case store.KindRules:
		snap.Rules, err = table.ToRules(split)
		snap.Rules.Warning = warning.String
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("snapshot %s: %w", snap.ID, err)
	}
	return snap, nil
}

func encodeSnapshot(snap store.Snapshot) ([]byte, error) {
	if snap.Kind == store.KindItemsets {
		return table.FromItemsets(snap.Itemsets).Encode()
	}
	return table.FromRules(snap.Rules).Encode()
}
