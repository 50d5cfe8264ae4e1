// Package api serves the basket engine over HTTP.
package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/config"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/table"
)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	engine    *basket.Engine
	presets   *config.Components
	startTime time.Time
}

// NewHandler creates the handlers. presets may be nil.
func NewHandler(engine *basket.Engine, presets *config.Components) *Handler {
	if presets == nil {
		presets, _ = (&config.Loader{}).Load()
	}
	return &Handler{engine: engine, presets: presets, startTime: time.Now()}
}

// Health reports liveness and uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	datasets, err := h.engine.Datasets(ctx)
	if err != nil {
		status = "degraded"
	}
	respondOK(w, map[string]any{
		"status":   status,
		"uptime":   time.Since(h.startTime).Round(time.Second).String(),
		"datasets": len(datasets),
	}, start)
}

// Presets lists the saved filter names.
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	products := make([]string, 0, len(h.presets.Products))
	for name := range h.presets.Products {
		products = append(products, name)
	}
	sort.Strings(products)
	queries := make(map[string]string, len(h.presets.Queries))
	for _, name := range h.presets.QueryNames() {
		queries[name] = h.presets.Queries[name].String()
	}
	respondOK(w, map[string]any{"queries": queries, "products": products}, start)
}

// snapshotView is the wire form of a snapshot.
type snapshotView struct {
	ID        string          `json:"id"`
	Dataset   string          `json:"dataset"`
	Parent    string          `json:"parent,omitempty"`
	Kind      store.Kind      `json:"kind"`
	Params    json.RawMessage `json:"params,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Rows      int             `json:"rows"`
	Warning   string          `json:"warning,omitempty"`
	Table     *table.Split    `json:"table,omitempty"`
}

// viewOf renders a snapshot; withTable adds its rows in split form.
func viewOf(snap store.Snapshot, withTable bool) snapshotView {
	v := snapshotView{
		ID:        snap.ID,
		Dataset:   snap.Dataset,
		Parent:    snap.Parent,
		Kind:      snap.Kind,
		CreatedAt: snap.CreatedAt,
		Rows:      snap.Len(),
		Warning:   snap.Rules.Warning,
	}
	if snap.Params != "" && json.Valid([]byte(snap.Params)) {
		v.Params = json.RawMessage(snap.Params)
	}
	if withTable {
		var t table.Split
		if snap.Kind == store.KindItemsets {
			t = table.FromItemsets(snap.Itemsets)
		} else {
			t = table.FromRules(snap.Rules)
		}
		v.Table = &t
	}
	return v
}
