package validation

import (
	"errors"
	"strings"
	"testing"
)

type request struct {
	Metric  string  `validate:"required,oneof=support confidence lift leverage conviction"`
	Support float64 `validate:"gte=0,lte=1"`
}

func TestStructValid(t *testing.T) {
	if err := Struct(&request{Metric: "lift", Support: 0.1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructReportsEveryField(t *testing.T) {
	err := Struct(&request{Metric: "zhang", Support: 2})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", verr.Fields)
	}
	if verr.Fields[0].Tag != "oneof" || !strings.Contains(verr.Fields[0].Message, "must be one of") {
		t.Errorf("unexpected first error %+v", verr.Fields[0])
	}
	if verr.Fields[1].Tag != "lte" || verr.Fields[1].Param != "1" {
		t.Errorf("unexpected second error %+v", verr.Fields[1])
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("combined message = %q", err.Error())
	}
}
