package template

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseClassifiesNamespaces(t *testing.T) {
	tmpl, err := Parse("user {name} took {@time} with {>request_id}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	want := []Reference{
		{Namespace: Parameter, Name: "name", Raw: "name"},
		{Namespace: Metadata, Name: "time", Raw: "@time"},
		{Namespace: Computed, Name: "request_id", Raw: ">request_id"},
	}
	if diff := cmp.Diff(want, tmpl.References()); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAccessorPaths(t *testing.T) {
	tmpl, err := Parse("{user.Name} {items[0]} {env[HOME]} {a.b[2].c}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	want := []Reference{
		{Namespace: Parameter, Name: "user", Path: []Accessor{{Name: "Name"}}, Raw: "user.Name"},
		{Namespace: Parameter, Name: "items", Path: []Accessor{{Index: 0, IsIndex: true}}, Raw: "items[0]"},
		{Namespace: Parameter, Name: "env", Path: []Accessor{{Name: "HOME"}}, Raw: "env[HOME]"},
		{Namespace: Parameter, Name: "a", Path: []Accessor{{Name: "b"}, {Index: 2, IsIndex: true}, {Name: "c"}}, Raw: "a.b[2].c"},
	}
	if diff := cmp.Diff(want, tmpl.References()); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDeduplicatesReferences(t *testing.T) {
	tmpl, err := Parse("{x} and {x:>8} and {x!r}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(tmpl.References()) != 1 {
		t.Fatalf("want 1 reference, got %d", len(tmpl.References()))
	}
}

func TestParseIsDeterministic(t *testing.T) {
	const text = "call {@func} with {a.b} and {>c}"
	first, err := Parse(text)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	second, err := Parse(text)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if diff := cmp.Diff(first.References(), second.References()); diff != "" {
		t.Fatalf("reparse references differ (-first +second):\n%s", diff)
	}
}

func TestParseEscapedBraces(t *testing.T) {
	tmpl, err := Parse("literal {{braces}} around {x}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	got, err := tmpl.Render(func(Reference) (any, error) { return 7, nil })
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if got != "literal {braces} around 7" {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"unterminated", "before {name"},
		{"lone closing brace", "oops } here"},
		{"nested field", "{a{b}}"},
		{"empty name", "{}"},
		{"positional", "{0}"},
		{"bad conversion", "{x!z}"},
		{"bad spec precision", "{x:.}"},
		{"bad spec", "{x:1x2}"},
		{"unterminated index", "{x[1}"},
		{"empty index", "{x[]}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.text)
			var syn *SyntaxError
			if !errors.As(err, &syn) {
				t.Fatalf("want *SyntaxError, got %v", err)
			}
			if syn.Template != tc.text {
				t.Fatalf("error names template %q, want %q", syn.Template, tc.text)
			}
		})
	}
}

func TestParseNameRejectsDecorations(t *testing.T) {
	if _, err := ParseName("user.Name"); err != nil {
		t.Fatalf("plain path should parse: %v", err)
	}
	if _, err := ParseName("user!r"); err == nil {
		t.Fatal("conversion suffix should not parse as a bare name")
	}
}

func TestConversionAndSpec(t *testing.T) {
	cases := []struct {
		text string
		val  any
		want string
	}{
		{"{x}", 3, "3"},
		{"{x!s}", 3, "3"},
		{"{x!r}", "hi", `"hi"`},
		{"{x!q}", "hi", `"hi"`},
		{"{x!q}", 3, `"3"`},
		{"{x:5}", "ab", "   ab"},
		{"{x:-5}", "ab", "ab   "},
		{"{x:>5}", "ab", "   ab"},
		{"{x:<5}", "ab", "ab   "},
		{"{x:^5}", "ab", "   ab"},
		{"{x:>8}", 3, "       3"},
		{"{x:05d}", 42, "00042"},
		{"{x:.2f}", 3.14159, "3.14"},
		{"{x:x}", 255, "ff"},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			tmpl := MustParse(tc.text)
			got, err := tmpl.Render(func(Reference) (any, error) { return tc.val, nil })
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("render mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderPlaceholderOnResolutionFailure(t *testing.T) {
	tmpl := MustParse("a={a} b={b.field}")
	resolve := func(ref Reference) (any, error) {
		if ref.Name == "a" {
			return 1, nil
		}
		return nil, &AttributeResolutionError{Ref: ref, Step: Accessor{Name: "field"}, Reason: "boom"}
	}
	got, err := tmpl.Render(resolve)
	if err == nil {
		t.Fatal("want resolution error returned alongside message")
	}
	if got != "a=1 b=<unresolved b.field>" {
		t.Fatalf("unexpected render: %q", got)
	}
}
