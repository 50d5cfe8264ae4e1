package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akins11/market-basket-analysis-web-app/internal/validation"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/insight"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/project"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/table"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

type datasetView struct {
	Name        string   `json:"name"`
	Rows        int      `json:"rows"`
	Columns     []string `json:"columns"`
	HasTaxonomy bool     `json:"has_taxonomy"`
	HasDate     bool     `json:"has_date"`
}

func datasetOf(name string, t txn.Table) datasetView {
	return datasetView{
		Name:        name,
		Rows:        t.Len(),
		Columns:     t.Columns(),
		HasTaxonomy: t.HasTaxonomy(),
		HasDate:     t.HasDate(),
	}
}

// ListDatasets handles GET /api/v1/datasets.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	names, err := h.engine.Datasets(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, names, start)
}

// UploadDataset handles POST /api/v1/datasets/{name} with a CSV body.
func (h *Handler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")
	t, err := h.engine.Upload(r.Context(), name, r.Body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, &APIResponse{
		Status:   StatusOK,
		Data:     datasetOf(name, t),
		Metadata: Metadata{QueryTimeMS: time.Since(start).Milliseconds()},
	})
}

// GetDataset handles GET /api/v1/datasets/{name}. With ?rows=true the
// transactions are included in split form.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")
	t, err := h.engine.Dataset(r.Context(), name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("rows") == "true" {
		respondOK(w, table.FromTransactions(t), start)
		return
	}
	respondOK(w, datasetOf(name, t), start)
}

// DeleteDataset handles DELETE /api/v1/datasets/{name}.
func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")
	if err := h.engine.DeleteDataset(r.Context(), name); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, map[string]string{"deleted": name}, start)
}

type taxonomyRequest struct {
	Threshold int `json:"threshold" validate:"gte=0"`
}

type decisionView struct {
	Product string   `json:"product"`
	Kept    []string `json:"kept,omitempty"`
	Lumped  []string `json:"lumped,omitempty"`
	Value   string   `json:"value,omitempty"`
}

// Taxonomy handles POST /api/v1/datasets/{name}/taxonomy. The dataset is
// replaced by its collapsed version.
func (h *Handler) Taxonomy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")
	var req taxonomyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %w", err, internalerr.ErrInvalidArgument))
		return
	}
	t, decisions, err := h.engine.Collapse(r.Context(), name, req.Threshold)
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]decisionView, len(decisions))
	for i, d := range decisions {
		views[i] = decisionView{Product: d.Product, Kept: d.Kept, Lumped: d.Lumped, Value: d.Value}
	}
	respondOK(w, map[string]any{
		"dataset":   datasetOf(name, t),
		"decisions": views,
	}, start)
}

// Info handles GET /api/v1/datasets/{name}/info. ?kind= selects one
// figure; without it every figure is returned.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	t, err := h.engine.Dataset(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	kinds := insight.InfoKinds
	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := insight.ParseInfoKind(k)
		if err != nil {
			respondError(w, r, err)
			return
		}
		kinds = []insight.InfoKind{kind}
	}

	stats := insight.Analyze(t).Snapshot()
	out := make(map[string]string, len(kinds))
	for _, k := range kinds {
		v, err := stats.Info(k)
		if err != nil {
			respondError(w, r, err)
			return
		}
		out[string(k)] = v
	}
	respondOK(w, out, start)
}

// Products handles GET /api/v1/datasets/{name}/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	t, err := h.engine.Dataset(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, insight.ProductList(t), start)
}

// Report handles GET /api/v1/datasets/{name}/reports/{report} for the
// purchased, profitable and quantity rankings. Query parameters: output
// (table or plot), agg and top_n.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	t, err := h.engine.Dataset(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	out, err := insight.ParseOutput(valueOr(q.Get("output"), "table"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	topN, err := intParam(q.Get("top_n"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	agg := insight.Agg(valueOr(q.Get("agg"), string(insight.Sum)))

	var rep insight.Report
	switch report := chi.URLParam(r, "report"); report {
	case "purchased":
		rep = insight.MostPurchased(t, out, topN)
	case "profitable":
		rep, err = insight.MostProfitable(t, agg, out, topN)
	case "quantity":
		rep, err = insight.Quantity(t, agg, out, topN)
	default:
		err = fmt.Errorf("unknown report %q: %w", report, internalerr.ErrNotFound)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, map[string]any{"output": out.String(), "report": rep}, start)
}

// Mine handles POST /api/v1/datasets/{name}/rules.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req basket.MineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	snap, err := h.engine.Mine(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, &APIResponse{
		Status:   StatusOK,
		Data:     viewOf(snap, true),
		Metadata: Metadata{QueryTimeMS: time.Since(start).Milliseconds()},
	})
}

// ListSnapshots handles GET /api/v1/datasets/{name}/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")
	if _, err := h.engine.Dataset(r.Context(), name); err != nil {
		respondError(w, r, err)
		return
	}
	snaps, err := h.engine.Snapshots(r.Context(), name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]snapshotView, len(snaps))
	for i, s := range snaps {
		views[i] = viewOf(s, false)
	}
	respondOK(w, views, start)
}

// Recommend handles POST /api/v1/datasets/{name}/recommendations.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req project.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, t, err := h.engine.Recommend(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, ok := res.Value()
	if !ok {
		respondEmpty(w, res.Reason(), start)
		return
	}
	respondOK(w, table.FromProjection(p, t), start)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q is not a non-negative integer: %w", v, internalerr.ErrInvalidArgument)
	}
	return n, nil
}
