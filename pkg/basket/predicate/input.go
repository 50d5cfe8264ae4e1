package predicate

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
)

// Input is the raw payload of the clause builder. Every field is a list;
// null entries are unset fields.
type Input struct {
	Metrics    []*string  `json:"metrics" yaml:"metrics"`
	Values     []*float64 `json:"values" yaml:"values"`
	Ops        []*string  `json:"comp_ops" yaml:"comp_ops"`
	Connectors []*string  `json:"bool_ops,omitempty" yaml:"bool_ops"`
}

// UnmarshalJSON rejects payloads whose fields are not lists before any
// element is looked at.
func (in *Input) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("clause input: %v: %w", err, internalerr.ErrTypeConstraint)
	}

	required := []string{"metrics", "values", "comp_ops"}
	for _, name := range required {
		if !isList(raw[name]) {
			return fmt.Errorf("clause input field %q must be a list: %w", name, internalerr.ErrTypeConstraint)
		}
	}
	conns, hasConns := raw["bool_ops"]
	if hasConns && !isNull(conns) && !isList(conns) {
		return fmt.Errorf("clause input field %q must be a list: %w", "bool_ops", internalerr.ErrTypeConstraint)
	}

	var out Input
	if err := json.Unmarshal(raw["metrics"], &out.Metrics); err != nil {
		return fmt.Errorf("metrics: %v: %w", err, internalerr.ErrTypeConstraint)
	}
	if err := json.Unmarshal(raw["values"], &out.Values); err != nil {
		return fmt.Errorf("values: %v: %w", err, internalerr.ErrTypeConstraint)
	}
	if err := json.Unmarshal(raw["comp_ops"], &out.Ops); err != nil {
		return fmt.Errorf("comp_ops: %v: %w", err, internalerr.ErrTypeConstraint)
	}
	if hasConns && !isNull(conns) {
		out.Connectors = []*string{}
		if err := json.Unmarshal(conns, &out.Connectors); err != nil {
			return fmt.Errorf("bool_ops: %v: %w", err, internalerr.ErrTypeConstraint)
		}
	}
	*in = out
	return nil
}

// Compile runs Compile over the payload.
func (in Input) Compile() (Compiled, error) {
	return Compile(in.Metrics, in.Values, in.Ops, in.Connectors)
}

func isList(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Strings converts plain values to an input list.
func Strings(values ...string) []*string {
	out := make([]*string, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

// Floats converts plain values to an input list.
func Floats(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}
