package inspect

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func transfer(src string, amount int) (string, error) { return "", nil }

func TestDescribe(t *testing.T) {
	sig, err := Describe(transfer, "src", "amount")
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	if diff := cmp.Diff([]string{"src", "amount"}, sig.Params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
	if sig.Name != "transfer" {
		t.Fatalf("name = %q, want transfer", sig.Name)
	}
	if !strings.HasSuffix(sig.Package, "inspect") {
		t.Fatalf("package = %q, want inspect import path", sig.Package)
	}
	if sig.File == "" || sig.Line == 0 {
		t.Fatalf("missing source position: %q:%d", sig.File, sig.Line)
	}
	if !sig.Has("src") || sig.Has("dst") {
		t.Fatal("Has must answer for declared names only")
	}
}

func TestDescribeRejectsBadDeclarations(t *testing.T) {
	cases := []struct {
		name   string
		fn     any
		params []string
	}{
		{"not a function", 3, nil},
		{"arity mismatch", transfer, []string{"src"}},
		{"duplicate name", transfer, []string{"a", "a"}},
		{"empty name", transfer, []string{"a", ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Describe(tc.fn, tc.params...); err == nil {
				t.Fatal("want error")
			}
		})
	}
}

func TestPositionalBinder(t *testing.T) {
	sig, err := Describe(transfer, "src", "amount")
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	bound, err := sig.Binder().Bind([]any{"acct-1", 250})
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	want := map[string]any{"src": "acct-1", "amount": 250}
	if diff := cmp.Diff(want, bound); diff != "" {
		t.Fatalf("binding mismatch (-want +got):\n%s", diff)
	}

	if _, err := sig.Binder().Bind([]any{"acct-1"}); err == nil {
		t.Fatal("want arity error")
	}
}

func TestVariadicBinder(t *testing.T) {
	join := func(sep string, parts ...string) string { return "" }
	sig, err := Describe(join, "sep", "parts")
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	if !sig.Variadic {
		t.Fatal("signature should be variadic")
	}
	bound, err := sig.Binder().Bind([]any{",", "a", "b"})
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	want := map[string]any{"sep": ",", "parts": []any{"a", "b"}}
	if diff := cmp.Diff(want, bound); diff != "" {
		t.Fatalf("binding mismatch (-want +got):\n%s", diff)
	}
}

func TestMapBinder(t *testing.T) {
	bound, err := MapBinder{}.Bind([]any{map[string]any{"k": 1}})
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"k": 1}, bound); diff != "" {
		t.Fatalf("binding mismatch (-want +got):\n%s", diff)
	}
	if _, err := (MapBinder{}).Bind([]any{"not a map"}); err == nil {
		t.Fatal("want type error")
	}
}
