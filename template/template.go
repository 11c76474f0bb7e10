// Package template parses log message templates and renders them against
// resolved values.
//
// A template is ordinary text with replacement fields in braces:
//
//	"moved {count} items to {dest.Path} in {@time:.3s}"
//
// A field is a name, an optional chain of attribute/index accessors, an
// optional conversion (!s, !r, !q) and an optional format spec. The leading
// name decides the namespace: '@' marks built-in call metadata, '>' marks a
// user-supplied computed value, and a bare name refers to a parameter of the
// wrapped function. Doubled braces ({{ and }}) escape literal braces.
package template

import (
	"fmt"
	"strings"
	"sync"
)

// Namespace classifies the source a reference draws its value from.
type Namespace int

const (
	// Parameter references a bound argument of the wrapped function.
	Parameter Namespace = iota
	// Metadata references a built-in call value such as @time or @ret.
	Metadata
	// Computed references a method of a registered computed-value provider.
	Computed
)

// String returns the namespace name as used in error messages.
func (n Namespace) String() string {
	switch n {
	case Parameter:
		return "parameter"
	case Metadata:
		return "metadata"
	case Computed:
		return "computed"
	default:
		return "unknown"
	}
}

// Marker returns the prefix character that tags the namespace in templates,
// or the empty string for parameters.
func (n Namespace) Marker() string {
	switch n {
	case Metadata:
		return "@"
	case Computed:
		return ">"
	default:
		return ""
	}
}

// Accessor is one step of a reference's access path: either an
// attribute/key access (.Name or [key]) or a numeric index ([3]).
type Accessor struct {
	Name    string
	Index   int
	IsIndex bool
}

// String renders the accessor as written in a template.
func (a Accessor) String() string {
	if a.IsIndex {
		return fmt.Sprintf("[%d]", a.Index)
	}
	return "." + a.Name
}

// Reference is a parsed, classified replacement field identity. Conversion
// and format-spec suffixes are deliberately not part of a Reference: two
// fields naming the same value are the same reference however they format
// it.
type Reference struct {
	Namespace Namespace
	Name      string // leading name, marker stripped
	Path      []Accessor
	Raw       string // field name as written, marker and path included
}

// Field is one replacement field occurrence inside a template.
type Field struct {
	Ref  Reference
	Conv byte   // 0, 's', 'r' or 'q'
	Spec string // format spec without the leading ':'
}

// segment is either a literal run or a replacement field.
type segment struct {
	literal string
	field   *Field
}

// Template is an immutable parsed message template. It is safe for
// unsynchronized concurrent use.
type Template struct {
	text     string
	segments []segment
	refs     []Reference // ordered, de-duplicated by Raw
}

// SyntaxError reports a malformed replacement field. It is always raised at
// definition time, never during a call.
type SyntaxError struct {
	Template string
	Pos      int // byte offset of the offending field
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template %q: offset %d: %s", e.Template, e.Pos, e.Msg)
}

// parseCache caches parsed templates by text so that repeated definitions of
// the same message reuse one Template and one validation result.
type parseCache struct {
	mu      sync.RWMutex
	cache   map[string]*Template
	maxSize int
}

func (c *parseCache) get(text string) (*Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.cache[text]
	return t, ok
}

func (c *parseCache) put(text string, t *Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Simple eviction: if cache full, clear it.
	if len(c.cache) >= c.maxSize {
		c.cache = make(map[string]*Template)
	}
	c.cache[text] = t
}

var cache = &parseCache{cache: make(map[string]*Template), maxSize: 1024}

// Parse parses a message template. It is a pure function of its input:
// parsing the same text twice yields structurally equal templates and
// reference sets.
func Parse(text string) (*Template, error) {
	if t, ok := cache.get(text); ok {
		return t, nil
	}
	t, err := parse(text)
	if err != nil {
		return nil, err
	}
	cache.put(text, t)
	return t, nil
}

// MustParse is Parse for templates known to be well formed, such as
// compile-time constants in tests.
func MustParse(text string) *Template {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Text returns the original template text.
func (t *Template) Text() string { return t.text }

// References returns the ordered, de-duplicated references the template
// names. The returned slice is shared; callers must not modify it.
func (t *Template) References() []Reference { return t.refs }

func parse(text string) (*Template, error) {
	t := &Template{text: text}
	seen := make(map[string]bool)
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			t.segments = append(t.segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(text); {
		switch text[i] {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				literal.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, &SyntaxError{Template: text, Pos: i, Msg: "unterminated replacement field"}
			}
			body := text[i+1 : i+1+end]
			if strings.IndexByte(body, '{') >= 0 {
				return nil, &SyntaxError{Template: text, Pos: i, Msg: "nested replacement fields are not supported"}
			}
			field, err := parseField(text, i, body)
			if err != nil {
				return nil, err
			}
			flush()
			t.segments = append(t.segments, segment{field: field})
			if !seen[field.Ref.Raw] {
				seen[field.Ref.Raw] = true
				t.refs = append(t.refs, field.Ref)
			}
			i += end + 2
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				literal.WriteByte('}')
				i += 2
				continue
			}
			return nil, &SyntaxError{Template: text, Pos: i, Msg: "single '}' outside replacement field"}
		default:
			literal.WriteByte(text[i])
			i++
		}
	}
	flush()
	return t, nil
}

// parseField parses one replacement field body (the text between braces).
func parseField(tmpl string, pos int, body string) (*Field, error) {
	name := body
	var conv byte
	var spec string

	if c := strings.IndexByte(name, ':'); c >= 0 {
		spec = name[c+1:]
		name = name[:c]
	}
	if b := strings.IndexByte(name, '!'); b >= 0 {
		convStr := name[b+1:]
		name = name[:b]
		if len(convStr) != 1 || (convStr[0] != 's' && convStr[0] != 'r' && convStr[0] != 'q') {
			return nil, &SyntaxError{Template: tmpl, Pos: pos, Msg: fmt.Sprintf("unknown conversion %q (want !s, !r or !q)", convStr)}
		}
		conv = convStr[0]
	}
	if err := checkSpec(tmpl, pos, spec); err != nil {
		return nil, err
	}
	ref, err := parseFieldName(tmpl, pos, name)
	if err != nil {
		return nil, err
	}
	return &Field{Ref: ref, Conv: conv, Spec: spec}, nil
}

// ParseName parses a bare field name (a reference without braces,
// conversion or format spec), as used by computed provider input
// declarations and extra-attribute references.
func ParseName(name string) (Reference, error) {
	return parseFieldName(name, 0, name)
}

func parseFieldName(tmpl string, pos int, name string) (Reference, error) {
	ref := Reference{Raw: name}
	rest := name

	switch {
	case strings.HasPrefix(rest, "@"):
		ref.Namespace = Metadata
		rest = rest[1:]
	case strings.HasPrefix(rest, ">"):
		ref.Namespace = Computed
		rest = rest[1:]
	default:
		ref.Namespace = Parameter
	}

	head, rest, err := scanIdent(tmpl, pos, rest)
	if err != nil {
		return Reference{}, err
	}
	ref.Name = head

	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			var attr string
			attr, rest, err = scanIdent(tmpl, pos, rest[1:])
			if err != nil {
				return Reference{}, err
			}
			ref.Path = append(ref.Path, Accessor{Name: attr})
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return Reference{}, &SyntaxError{Template: tmpl, Pos: pos, Msg: "unterminated index accessor"}
			}
			key := rest[1:end]
			if key == "" {
				return Reference{}, &SyntaxError{Template: tmpl, Pos: pos, Msg: "empty index accessor"}
			}
			rest = rest[end+1:]
			if idx, ok := parseInt(key); ok {
				ref.Path = append(ref.Path, Accessor{Index: idx, IsIndex: true})
			} else {
				ref.Path = append(ref.Path, Accessor{Name: key})
			}
		default:
			return Reference{}, &SyntaxError{Template: tmpl, Pos: pos, Msg: fmt.Sprintf("unexpected %q in field name %q", rest[0], name)}
		}
	}
	return ref, nil
}

// scanIdent consumes a leading identifier. Empty or numeric leading names
// are rejected: positional fields have no meaning here because every value
// is looked up by name.
func scanIdent(tmpl string, pos int, s string) (ident, rest string, err error) {
	n := 0
	for n < len(s) && isIdentPart(s[n], n) {
		n++
	}
	if n == 0 {
		if len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
			return "", "", &SyntaxError{Template: tmpl, Pos: pos, Msg: "positional fields are not supported; use a named field"}
		}
		return "", "", &SyntaxError{Template: tmpl, Pos: pos, Msg: "empty field name; use a named field"}
	}
	return s[:n], s[n:], nil
}

func isIdentPart(ch byte, i int) bool {
	if ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') {
		return true
	}
	return i > 0 && '0' <= ch && ch <= '9'
}

func parseInt(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

// checkSpec validates a format spec at parse time so that a malformed spec
// is a definition-time error. The accepted shape is
// [align][flags][width][.precision][verb] with the leading '%' implied:
// fmt-style flags plus an optional leading '<', '>' or '^' alignment
// character (see alignSpec for how alignment maps onto fmt).
func checkSpec(tmpl string, pos int, spec string) error {
	s := spec
	if len(s) > 0 && strings.IndexByte("<>^", s[0]) >= 0 {
		s = s[1:]
	}
	for len(s) > 0 && strings.IndexByte("-+ #0", s[0]) >= 0 {
		s = s[1:]
	}
	for len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '.' {
		s = s[1:]
		if len(s) == 0 || s[0] < '0' || s[0] > '9' {
			return &SyntaxError{Template: tmpl, Pos: pos, Msg: fmt.Sprintf("format spec %q: precision requires digits", spec)}
		}
		for len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
			s = s[1:]
		}
	}
	switch {
	case len(s) == 0:
		return nil
	case len(s) == 1 && (('a' <= s[0] && s[0] <= 'z') || ('A' <= s[0] && s[0] <= 'Z')):
		return nil
	default:
		return &SyntaxError{Template: tmpl, Pos: pos, Msg: fmt.Sprintf("malformed format spec %q", spec)}
	}
}
