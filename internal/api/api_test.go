package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/config"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/filter"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/predicate"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store/memstore"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/table"
)

// Four baskets: {A,B} {A,B,C} {A} {B,C}.
const sampleCSV = `Customer_ID,Product,SKU,Quantity,Sales_Amount
C1,A,a1,1,2.50
C1,B,b1,2,4.00
C2,A,a1,1,2.50
C2,B,b1,1,2.00
C2,C,c1,1,1.00
C3,A,a2,3,7.50
C4,B,b1,1,2.00
C4,C,c1,1,1.00
`

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *APIError       `json:"error"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T, maxBody int64) *testServer {
	t.Helper()
	engine := basket.New(basket.Options{
		Store:      memstore.New(),
		Mining:     mining.Options{MinSupport: 0.3},
		Thresholds: mining.Thresholds{Metric: "lift", MinThreshold: 1},
		Timeout:    time.Minute,
	})
	t.Cleanup(func() { engine.Close() })

	strong, err := predicate.NewQuery([]string{"lift"}, []float64{1}, []string{">"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	presets := &config.Components{
		Queries: map[string]predicate.Query{"strong": strong},
		Products: map[string]filter.ProductQuery{
			"with_b": {Search: "any", Side: "antecedents", Products: []string{"B"}},
		},
	}
	cfg := DefaultMiddlewareConfig()
	cfg.RateLimitRequests = 0
	router := NewRouter(NewHandler(engine, presets), NewMiddleware(cfg), maxBody)
	return &testServer{t: t, handler: router.Setup()}
}

func (s *testServer) do(method, path, body string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: decode response: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func (s *testServer) upload() {
	s.t.Helper()
	rec, _ := s.do(http.MethodPost, "/api/v1/datasets/groceries", sampleCSV)
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("upload: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func (s *testServer) mine(body string) snapshotView {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/v1/datasets/groceries/rules", body)
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("mine: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeSnapshot(s.t, env)
}

func decodeSnapshot(t *testing.T, env envelope) snapshotView {
	t.Helper()
	var v snapshotView
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return v
}

func TestUploadAndInspectDataset(t *testing.T) {
	s := newTestServer(t, 0)
	s.upload()

	rec, env := s.do(http.MethodGet, "/api/v1/datasets", "")
	if rec.Code != http.StatusOK || string(env.Data) != `["groceries"]` {
		t.Fatalf("unexpected dataset list %d %s", rec.Code, env.Data)
	}

	_, env = s.do(http.MethodGet, "/api/v1/datasets/groceries/products", "")
	if string(env.Data) != `["A","B","C"]` {
		t.Errorf("unexpected products %s", env.Data)
	}

	_, env = s.do(http.MethodGet, "/api/v1/datasets/groceries/info?kind=no_unique_customers", "")
	var info map[string]string
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatal(err)
	}
	if info["no_unique_customers"] != "4" {
		t.Errorf("expected 4 customers, got %v", info)
	}

	rec, env = s.do(http.MethodGet, "/api/v1/datasets/groceries/info?kind=bogus", "")
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("expected a validation error, got %d %+v", rec.Code, env.Error)
	}

	rec, env = s.do(http.MethodGet, "/api/v1/datasets/groceries/reports/purchased?output=plot&top_n=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report: %d %s", rec.Code, rec.Body.String())
	}
	var report struct {
		Output string `json:"output"`
		Report struct {
			Title string `json:"title"`
			Rows  []struct {
				Product string `json:"product"`
			} `json:"rows"`
		} `json:"report"`
	}
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Output != "plot" || len(report.Report.Rows) != 2 || report.Report.Title == "" {
		t.Errorf("unexpected chart %+v", report)
	}

	rec, _ = s.do(http.MethodGet, "/api/v1/datasets/groceries?rows=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get dataset: %d", rec.Code)
	}
}

func TestMineFilterDescribe(t *testing.T) {
	s := newTestServer(t, 0)
	s.upload()

	mined := s.mine(`{"metric":"confidence"}`)
	if mined.Kind != "rules" || mined.Rows != 4 || mined.Table == nil {
		t.Fatalf("expected 4 confidence rules, got %+v", mined)
	}
	base := "/api/v1/rules/" + mined.ID

	rec, env := s.do(http.MethodPost, base+"/filter/metrics", `{"metrics":["lift"],"values":[1],"comp_ops":[">"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("filter metrics: %d %s", rec.Code, rec.Body.String())
	}
	byLift := decodeSnapshot(t, env)
	if byLift.Rows != 2 || byLift.Parent != mined.ID {
		t.Fatalf("expected 2 rules derived from %s, got %+v", mined.ID, byLift)
	}

	rec, env = s.do(http.MethodPost, base+"/filter/products", `{"search_type":"any","rule_type":"antecedents","products":[]}`)
	if rec.Code != http.StatusOK || env.Status != StatusEmptySelection {
		t.Fatalf("expected an empty selection, got %d %s", rec.Code, env.Status)
	}
	var problem table.Split
	if err := json.Unmarshal(env.Data, &problem); err != nil {
		t.Fatal(err)
	}
	if reason, ok := problem.Problem(); !ok || reason == "" {
		t.Errorf("expected a Problem table, got %+v", problem)
	}

	rec, env = s.do(http.MethodPost, base+"/filter/length", `{"rule_type":"antecedents","comp_op":"==","length":1}`)
	if rec.Code != http.StatusCreated || decodeSnapshot(t, env).Rows != 4 {
		t.Fatalf("filter length: %d %s", rec.Code, rec.Body.String())
	}

	rec, env = s.do(http.MethodGet, "/api/v1/rules/"+byLift.ID+"/describe", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("describe: %d", rec.Code)
	}
	var summary map[string]any
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatal(err)
	}
	if summary["n_rules"] != float64(2) {
		t.Errorf("expected n_rules 2, got %v", summary)
	}

	rec, _ = s.do(http.MethodGet, base+"/relationship?x=support&y=confidence&z=lift", "")
	if rec.Code != http.StatusOK {
		t.Errorf("relationship: %d %s", rec.Code, rec.Body.String())
	}

	rec, env = s.do(http.MethodGet, "/api/v1/datasets/groceries/snapshots", "")
	var snaps []snapshotView
	if err := json.Unmarshal(env.Data, &snaps); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || len(snaps) != 3 {
		t.Errorf("expected 3 snapshots, got %d", len(snaps))
	}
}

func TestPresetsAndExport(t *testing.T) {
	s := newTestServer(t, 0)
	s.upload()
	mined := s.mine(`{"metric":"confidence"}`)
	base := "/api/v1/rules/" + mined.ID

	rec, env := s.do(http.MethodPost, base+"/filter/presets/strong", "")
	if rec.Code != http.StatusCreated || decodeSnapshot(t, env).Rows != 2 {
		t.Fatalf("query preset: %d %s", rec.Code, rec.Body.String())
	}
	rec, env = s.do(http.MethodPost, base+"/filter/presets/with_b", "")
	if rec.Code != http.StatusCreated || decodeSnapshot(t, env).Rows != 2 {
		t.Fatalf("product preset: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = s.do(http.MethodPost, base+"/filter/presets/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown preset, got %d", rec.Code)
	}

	rec, _ = s.do(http.MethodGet, base+"/export", "")
	if rec.Code != http.StatusOK || strings.Count(rec.Body.String(), "rule(") != 4 {
		t.Errorf("unexpected export %d %q", rec.Code, rec.Body.String())
	}
}

func TestRecommendations(t *testing.T) {
	s := newTestServer(t, 0)
	s.upload()

	rec, env := s.do(http.MethodPost, "/api/v1/datasets/groceries/recommendations",
		`{"pairs":[{"antecedent":["B"],"consequent":["C"]}],"customer_ids_only":true}`)
	if rec.Code != http.StatusOK || env.Status != StatusOK {
		t.Fatalf("recommend: %d %s", rec.Code, rec.Body.String())
	}
	var split table.Split
	if err := json.Unmarshal(env.Data, &split); err != nil {
		t.Fatal(err)
	}
	if len(split.Columns) != 1 || split.Len() != 3 {
		t.Errorf("expected the three B customers, got %+v", split)
	}

	_, env = s.do(http.MethodPost, "/api/v1/datasets/groceries/recommendations", `{"pairs":[]}`)
	if env.Status != StatusEmptySelection {
		t.Errorf("expected an empty selection, got %s", env.Status)
	}

	mined := s.mine(`{}`)
	rec, env = s.do(http.MethodPost, "/api/v1/rules/"+mined.ID+"/recommendations", `{"range":2,"customer_ids_only":true}`)
	if rec.Code != http.StatusOK || env.Status != StatusOK {
		t.Fatalf("recommend from rules: %d %s", rec.Code, rec.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, 0)

	rec, env := s.do(http.MethodGet, "/api/v1/datasets/missing", "")
	if rec.Code != http.StatusNotFound || env.Status != StatusError || env.Error.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %d %+v", rec.Code, env.Error)
	}

	s.upload()
	rec, env = s.do(http.MethodPost, "/api/v1/datasets/groceries/rules", `{"min_support":2}`)
	if rec.Code != http.StatusBadRequest || env.Error.Details == nil {
		t.Errorf("expected a validation error with details, got %d %+v", rec.Code, env.Error)
	}

	rec, _ = s.do(http.MethodPost, "/api/v1/datasets/groceries/rules", `{"unknown":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected unknown fields to be rejected, got %d", rec.Code)
	}

	sets := s.mine(`{"output":"itemsets"}`)
	rec, _ = s.do(http.MethodPost, "/api/v1/rules/"+sets.ID+"/filter/length", `{"rule_type":"antecedents","comp_op":">","length":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("filtering itemsets should be rejected, got %d", rec.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, 16)
	rec, env := s.do(http.MethodPost, "/api/v1/datasets/groceries", sampleCSV)
	if rec.Code != http.StatusRequestEntityTooLarge || env.Error.Code != "PAYLOAD_TOO_LARGE" {
		t.Errorf("expected 413, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 0)
	rec, env := s.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || env.Status != StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected a request id header")
	}

	s.do(http.MethodGet, "/api/v1/datasets", "")
	rec, _ = s.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Errorf("metrics endpoint missing API counters")
	}
}
