package validate

import (
	"strings"
	"testing"

	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

type window struct {
	Start string `json:"start" validate:"required,hhmm"`
	Size  int    `json:"page_size" validate:"min=1,max=10"`
	Calc  string `json:"calculation" validate:"omitempty,oneof=count resolution_time response_time"`
}

func TestStruct_OK(t *testing.T) {
	t.Parallel()

	if err := Struct(window{Start: "09:30", Size: 5, Calc: "count"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_MapsFieldAndMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    window
		field string
		msg   string
	}{
		{window{Start: "9h", Size: 1}, "start", "HH:MM"},
		{window{Start: "25:00", Size: 1}, "start", "HH:MM"},
		{window{Start: "09:00", Size: 0}, "page_size", "at least 1"},
		{window{Start: "09:00", Size: 11}, "page_size", "at most 10"},
		{window{Start: "09:00", Size: 1, Calc: "p99"}, "calculation", "calculation"},
	}
	for _, c := range cases {
		err := Struct(c.in)
		if !perr.IsCode(err, perr.ErrorCodeValidation) {
			t.Fatalf("%+v: code = %v", c.in, perr.CodeOf(err))
		}
		e, _ := perr.As(err)
		if e.Field() != c.field {
			t.Fatalf("%+v: field = %q, want %q", c.in, e.Field(), c.field)
		}
		if !strings.Contains(err.Error(), c.msg) {
			t.Fatalf("%+v: message %q does not mention %q", c.in, err.Error(), c.msg)
		}
	}
}

func TestStruct_InvalidTarget(t *testing.T) {
	t.Parallel()

	if err := Struct(nil); !perr.IsCode(err, perr.ErrorCodeCompilation) {
		t.Fatalf("nil target should be a compilation error, got %v", err)
	}
}

func TestVar(t *testing.T) {
	t.Parallel()

	if err := Var("page", 0, "min=0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := Var("page", -1, "min=0")
	if !perr.IsCode(err, perr.ErrorCodeValidation) || !strings.Contains(err.Error(), "page must be at least 0") {
		t.Fatalf("Var = %v", err)
	}
}
