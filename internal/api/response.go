package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/internal/validation"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/table"
)

// Response statuses.
const (
	StatusOK             = "ok"
	StatusError          = "error"
	StatusEmptySelection = "empty_selection"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata describes the response itself.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError explains a failed request or an empty selection.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, resp *APIResponse) {
	if resp.Metadata.Timestamp.IsZero() {
		resp.Metadata.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
		http.Error(w, `{"status":"error","error":{"code":"ENCODING_ERROR","message":"failed to encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Debug().Err(err).Msg("failed to write response")
	}
}

// respondOK writes data with the elapsed time since start.
func respondOK(w http.ResponseWriter, data any, start time.Time) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status:   StatusOK,
		Data:     data,
		Metadata: Metadata{QueryTimeMS: time.Since(start).Milliseconds()},
	})
}

// respondEmpty reports an empty selection. The data is a one-row Problem
// table so clients can render it like any other result.
func respondEmpty(w http.ResponseWriter, reason string, start time.Time) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status:   StatusEmptySelection,
		Data:     table.Problem(reason),
		Metadata: Metadata{QueryTimeMS: time.Since(start).Milliseconds()},
		Error:    &APIError{Code: "EMPTY_SELECTION", Message: reason},
	})
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	ev := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = logging.Ctx(r.Context()).Error()
	}
	ev.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	apiErr := &APIError{Code: code, Message: err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		apiErr.Details = map[string]any{"fields": verr.Fields}
	}
	if status == http.StatusInternalServerError {
		apiErr.Message = "internal error"
	}
	respondJSON(w, status, &APIResponse{Status: StatusError, Error: apiErr})
}

// classify maps engine errors to an HTTP status and an error code.
func classify(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, internalerr.ErrInvalidMetric):
		return http.StatusBadRequest, "INVALID_METRIC"
	case errors.Is(err, internalerr.ErrLengthMismatch):
		return http.StatusBadRequest, "LENGTH_MISMATCH"
	case errors.Is(err, internalerr.ErrRange):
		return http.StatusBadRequest, "OUT_OF_RANGE"
	case internalerr.IsContract(err):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, internalerr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil || internalerr.IsContract(err) {
		return err
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return fmt.Errorf("decode request body: %v: %w", err, internalerr.ErrInvalidInput)
}
