package mcp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/standardbeagle/lcr/internal/pipeline"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// UnknownField represents a field that was passed but not recognized
type UnknownField struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// ReduceParams are the arguments of the reduce tool. Exactly one of Source
// and Path is set. Without spans or lines the whole text is reduced.
type ReduceParams struct {
	Source string   `json:"source,omitempty"`
	Path   string   `json:"path,omitempty"`
	Spans  []string `json:"spans,omitempty"` // "start:length" or "start-end"
	Lines  []string `json:"lines,omitempty"` // "a-b" or "a"
	All    bool     `json:"all,omitempty"`
	Write  bool     `json:"write,omitempty"`

	Reducers []string `json:"reducers,omitempty"`
	Serial   bool     `json:"serial,omitempty"`

	// Option overrides; nil keeps the configured value
	PreferVar               *bool           `json:"prefer_var,omitempty"`
	QualifyFieldAccess      *bool           `json:"qualify_field_access,omitempty"`
	PreferSimpleNames       *bool           `json:"prefer_simple_names,omitempty"`
	PreferIntrinsicKeywords *bool           `json:"prefer_intrinsic_keywords,omitempty"`
	RemoveUnnecessaryParens *bool           `json:"remove_unnecessary_parens,omitempty"`
	Extra                   map[string]bool `json:"extra,omitempty"`

	Warnings []UnknownField `json:"-"`
}

var reduceParamFields = map[string]struct{}{
	"source": {}, "path": {}, "spans": {}, "lines": {}, "all": {}, "write": {},
	"reducers": {}, "serial": {},
	"prefer_var": {}, "qualify_field_access": {}, "prefer_simple_names": {},
	"prefer_intrinsic_keywords": {}, "remove_unnecessary_parens": {}, "extra": {},
}

// UnmarshalJSON accepts unknown fields and records them as warnings
func (p *ReduceParams) UnmarshalJSON(data []byte) error {
	type Alias ReduceParams

	_, warnings, err := collectUnknownFields(data, reduceParamFields, nil)
	if err != nil {
		return err
	}
	var alias Alias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*p = ReduceParams(alias)
	p.Warnings = warnings
	return nil
}

// Validate checks the combination of arguments
func (p *ReduceParams) Validate() error {
	switch {
	case p.Source == "" && p.Path == "":
		return fmt.Errorf("one of source or path is required")
	case p.Source != "" && p.Path != "":
		return fmt.Errorf("source and path are mutually exclusive")
	case p.Write && p.Path == "":
		return fmt.Errorf("write needs a path")
	}
	return nil
}

// Selection converts the span and line arguments
func (p *ReduceParams) Selection() (pipeline.Selection, error) {
	sel := pipeline.Selection{All: p.All}
	for _, s := range p.Spans {
		span, err := pipeline.ParseSpan(s)
		if err != nil {
			return sel, err
		}
		sel.Spans = append(sel.Spans, span)
	}
	for _, l := range p.Lines {
		lr, err := pipeline.ParseLines(l)
		if err != nil {
			return sel, err
		}
		sel.Lines = append(sel.Lines, lr)
	}
	if len(sel.Spans) == 0 && len(sel.Lines) == 0 {
		sel.All = true
	}
	return sel, nil
}

// ApplyOptions overlays the overrides on opts
func (p *ReduceParams) ApplyOptions(opts reduce.Options) reduce.Options {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&opts.PreferVar, p.PreferVar)
	set(&opts.QualifyFieldAccess, p.QualifyFieldAccess)
	set(&opts.PreferSimpleNames, p.PreferSimpleNames)
	set(&opts.PreferIntrinsicKeywords, p.PreferIntrinsicKeywords)
	set(&opts.RemoveUnnecessaryParens, p.RemoveUnnecessaryParens)
	if len(p.Extra) > 0 {
		extra := make(map[string]bool, len(opts.Extra)+len(p.Extra))
		for k, v := range opts.Extra {
			extra[k] = v
		}
		for k, v := range p.Extra {
			extra[k] = v
		}
		opts.Extra = extra
	}
	return opts
}

// collectUnknownFields parses raw JSON into a map, capturing any fields
// that aren't part of the provided known field set. Nested objects named in
// nested are checked one level down.
func collectUnknownFields(
	data []byte,
	known map[string]struct{},
	nested map[string]map[string]struct{},
) (map[string]json.RawMessage, []UnknownField, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	var warnings []UnknownField
	for key, value := range raw {
		if _, ok := known[key]; !ok {
			warnings = append(warnings, decodeUnknownField(key, value))
			continue
		}
		if nestedFields, ok := nested[key]; ok {
			warnings = append(warnings, collectNestedUnknownFields(key, value, nestedFields)...)
		}
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Name < warnings[j].Name })

	return raw, warnings, nil
}

func decodeUnknownField(name string, data json.RawMessage) UnknownField {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		value = string(data)
	}
	return UnknownField{Name: name, Value: value}
}

func collectNestedUnknownFields(parent string, data json.RawMessage, allowed map[string]struct{}) []UnknownField {
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil
	}

	var warnings []UnknownField
	for key, value := range nested {
		if _, ok := allowed[key]; ok {
			continue
		}
		warnings = append(warnings, decodeUnknownField(parent+"."+key, value))
	}
	return warnings
}

// spanList renders spans for log lines
func spanList(spans []syntax.Span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
