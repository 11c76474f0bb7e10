package template

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type account struct {
	ID    string
	Owner *person
	tags  []string
}

func (a account) Kind() string { return "account" }

type person struct {
	Name string
}

func (p *person) Greeting() string { return "hello " + p.Name }

func mustRef(t *testing.T, name string) Reference {
	t.Helper()
	ref, err := ParseName(name)
	if err != nil {
		t.Fatalf("parse %q: %v", name, err)
	}
	return ref
}

func TestApplyPath(t *testing.T) {
	acct := account{ID: "a-1", Owner: &person{Name: "kim"}, tags: []string{"x"}}
	cases := []struct {
		name string
		ref  string
		val  any
		want any
	}{
		{"plain value", "v", 42, 42},
		{"struct field", "v.ID", acct, "a-1"},
		{"lowercase field", "v.owner.Name", acct, "kim"},
		{"through pointer", "v.Owner.Name", acct, "kim"},
		{"value method", "v.Kind", acct, "account"},
		{"pointer receiver method", "v.Greeting", &person{Name: "kim"}, "hello kim"},
		{"map key", "v.region", map[string]any{"region": "eu"}, "eu"},
		{"map key bracket", "v[region]", map[string]any{"region": "eu"}, "eu"},
		{"int map", "v[2]", map[int]string{2: "two"}, "two"},
		{"slice index", "v[1]", []any{"a", "b"}, "b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ApplyPath(tc.val, mustRef(t, tc.ref))
			if err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyPathFailures(t *testing.T) {
	cases := []struct {
		name string
		ref  string
		val  any
	}{
		{"missing field", "v.Nope", account{}},
		{"unexported field", "v.tags", account{}},
		{"index out of range", "v[5]", []any{"a"}},
		{"missing key", "v.missing", map[string]any{}},
		{"nil pointer", "v.Owner.Name", account{}},
		{"not indexable", "v[0]", 3},
		{"scalar attribute", "v.x", 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ApplyPath(tc.val, mustRef(t, tc.ref))
			var resErr *AttributeResolutionError
			if !errors.As(err, &resErr) {
				t.Fatalf("want *AttributeResolutionError, got %v", err)
			}
		})
	}
}
