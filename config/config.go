// Package config loads Dog configurations from YAML documents.
//
// A document names the phases, their message templates, levels and extra
// attributes. It is validated against an embedded JSON Schema before any
// option is built, so a malformed document is rejected as a whole and
// never produces a partially configured Dog.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/reuvenpo/dogging"
	"github.com/reuvenpo/dogging/sink"
)

// Document is the YAML shape of one Dog configuration.
type Document struct {
	Logger   string              `yaml:"logger"`
	CallID   bool                `yaml:"call_id"`
	Fallback yaml.Node           `yaml:"fallback"`
	Attrs    map[string]any      `yaml:"attrs"`
	Refs     map[string]string   `yaml:"refs"`
	Phases   map[string]PhaseDoc `yaml:"phases"`
}

// PhaseDoc configures one phase. Refs are extra attributes whose values
// are template references resolved per call.
type PhaseDoc struct {
	Message string            `yaml:"message"`
	Level   string            `yaml:"level"`
	Attrs   map[string]any    `yaml:"attrs"`
	Refs    map[string]string `yaml:"refs"`
}

const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "logger": {"type": "string"},
    "call_id": {"type": "boolean"},
    "fallback": {},
    "attrs": {"type": "object"},
    "refs": {"type": "object", "additionalProperties": {"type": "string"}},
    "phases": {
      "type": "object",
      "propertyNames": {"enum": ["enter", "exit", "error"]},
      "additionalProperties": {
        "type": "object",
        "properties": {
          "message": {"type": "string"},
          "level": {"enum": ["debug", "info", "warn", "error", "fatal"]},
          "attrs": {"type": "object"},
          "refs": {"type": "object", "additionalProperties": {"type": "string"}}
        },
        "required": ["message"],
        "additionalProperties": false
      },
      "minProperties": 1
    }
  },
  "required": ["phases"],
  "additionalProperties": false
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("schema://dogging-config.json", strings.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("schema://dogging-config.json")
	})
	return schema, schemaErr
}

// Load parses and validates a YAML document and builds the equivalent
// option list. The returned options are ready for dogging.New.
func Load(data []byte) ([]dogging.Option, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("config: schema: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := s.Validate(raw); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return doc.Options()
}

// Options builds the option list for an already-decoded document.
func (doc *Document) Options() ([]dogging.Option, error) {
	var opts []dogging.Option
	if doc.Logger != "" {
		opts = append(opts, dogging.WithLogger(doc.Logger))
	}
	if doc.CallID {
		opts = append(opts, dogging.WithCallID())
	}
	if doc.Fallback.Kind != 0 {
		var v any
		if err := doc.Fallback.Decode(&v); err != nil {
			return nil, fmt.Errorf("config: fallback: %w", err)
		}
		opts = append(opts, dogging.WithFallback(v))
	}
	if attrs := mergeAttrs(doc.Attrs, doc.Refs); attrs != nil {
		opts = append(opts, dogging.WithAttrs(attrs))
	}

	for _, name := range []string{"enter", "exit", "error"} {
		pd, ok := doc.Phases[name]
		if !ok {
			continue
		}
		popts, err := pd.phaseOptions()
		if err != nil {
			return nil, fmt.Errorf("config: phase %s: %w", name, err)
		}
		switch name {
		case "enter":
			opts = append(opts, dogging.Enter(pd.Message, popts...))
		case "exit":
			opts = append(opts, dogging.Exit(pd.Message, popts...))
		case "error":
			opts = append(opts, dogging.Error(pd.Message, popts...))
		}
	}
	return opts, nil
}

func (pd PhaseDoc) phaseOptions() ([]dogging.PhaseOption, error) {
	var popts []dogging.PhaseOption
	if pd.Level != "" {
		l, err := sink.ParseLevel(pd.Level)
		if err != nil {
			return nil, err
		}
		popts = append(popts, dogging.AtLevel(l))
	}
	if attrs := mergeAttrs(pd.Attrs, pd.Refs); attrs != nil {
		popts = append(popts, dogging.Attrs(attrs))
	}
	return popts, nil
}

func mergeAttrs(attrs map[string]any, refs map[string]string) map[string]any {
	if len(attrs) == 0 && len(refs) == 0 {
		return nil
	}
	merged := make(map[string]any, len(attrs)+len(refs))
	for k, v := range attrs {
		merged[k] = v
	}
	for k, v := range refs {
		merged[k] = dogging.Ref(v)
	}
	return merged
}
