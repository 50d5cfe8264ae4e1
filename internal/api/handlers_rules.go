package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/filter"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/predicate"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/project"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/result"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/table"
)

// GetSnapshot handles GET /api/v1/rules/{id}.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, err := h.engine.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, viewOf(snap, true), start)
}

// DeleteSnapshot handles DELETE /api/v1/rules/{id}.
func (h *Handler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	if err := h.engine.DeleteSnapshot(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, map[string]string{"deleted": id}, start)
}

// FilterMetrics handles POST /api/v1/rules/{id}/filter/metrics. The body
// holds the parallel metrics, values, comp_ops and bool_ops lists.
func (h *Handler) FilterMetrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var in predicate.Input
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	snap, err := h.engine.FilterMetrics(r.Context(), chi.URLParam(r, "id"), in)
	respondSnapshot(w, r, snap, err, start)
}

// FilterProducts handles POST /api/v1/rules/{id}/filter/products.
func (h *Handler) FilterProducts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var q filter.ProductQuery
	if err := decodeJSON(r, &q); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.engine.FilterProducts(r.Context(), chi.URLParam(r, "id"), q)
	respondResult(w, r, res, err, start)
}

// FilterLength handles POST /api/v1/rules/{id}/filter/length.
func (h *Handler) FilterLength(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req basket.LengthRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	snap, err := h.engine.FilterLength(r.Context(), chi.URLParam(r, "id"), req)
	respondSnapshot(w, r, snap, err, start)
}

// FilterPreset handles POST /api/v1/rules/{id}/filter/presets/{preset},
// applying a saved query or product filter by name.
func (h *Handler) FilterPreset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, name := chi.URLParam(r, "id"), chi.URLParam(r, "preset")

	if q, ok := h.presets.Queries[name]; ok {
		snap, err := h.engine.FilterQuery(r.Context(), id, q)
		respondSnapshot(w, r, snap, err, start)
		return
	}
	if q, ok := h.presets.Products[name]; ok {
		res, err := h.engine.FilterProducts(r.Context(), id, q)
		respondResult(w, r, res, err, start)
		return
	}
	respondError(w, r, fmt.Errorf("preset %q: %w", name, internalerr.ErrNotFound))
}

// Describe handles GET /api/v1/rules/{id}/describe. ?format=markdown
// returns the text summary instead of the ranges.
func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	summary, err := h.engine.Describe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "markdown") {
		name := valueOr(r.URL.Query().Get("name"), "Analysis")
		respondOK(w, map[string]string{"markdown": summary.Markdown(name)}, start)
		return
	}
	respondOK(w, summary, start)
}

// Relationship handles GET /api/v1/rules/{id}/relationship?x=&y=&z=.
func (h *Handler) Relationship(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	scatter, err := h.engine.Relationship(r.Context(), chi.URLParam(r, "id"), q.Get("x"), q.Get("y"), q.Get("z"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, scatter, start)
}

// RecommendFromRules handles POST /api/v1/rules/{id}/recommendations.
func (h *Handler) RecommendFromRules(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var sel project.Selection
	if err := decodeJSON(r, &sel); err != nil {
		respondError(w, r, err)
		return
	}
	res, t, err := h.engine.RecommendFromRules(r.Context(), chi.URLParam(r, "id"), sel)
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

// textWriter collects exported rules in memory.
type textWriter struct {
	strings.Builder
}

func (tw *textWriter) WriteRules(ctx context.Context, content string) error {
	_, err := tw.WriteString(content)
	return err
}

// Export handles GET /api/v1/rules/{id}/export, returning the rules as
// Prolog facts.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var out textWriter
	if err := h.engine.Export(r.Context(), chi.URLParam(r, "id"), &out); err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out.String()))
}

func respondSnapshot(w http.ResponseWriter, r *http.Request, snap store.Snapshot, err error, start time.Time) {
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

func respondResult(w http.ResponseWriter, r *http.Request, res result.Result[store.Snapshot], err error, start time.Time) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	snap, ok := res.Value()
	if !ok {
		respondEmpty(w, res.Reason(), start)
		return
	}
	respondSnapshot(w, r, snap, nil, start)
}
