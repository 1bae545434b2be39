package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// NamedArg is one entry of a named argument list
type NamedArg struct {
	Name  string
	Value Value
}

// Args is either a positional list or an ordered list of named values
type Args struct {
	named      bool
	Positional []Value
	Named      []NamedArg
}

// PositionalArgs builds a positional argument list
func PositionalArgs(values ...Value) Args {
	return Args{Positional: values}
}

// NamedArgs builds a named argument list from alternating name/value pairs
func NamedArgs(pairs ...NamedArg) Args {
	return Args{named: true, Named: pairs}
}

func Arg(name string, v Value) NamedArg {
	return NamedArg{Name: name, Value: v}
}

func (a Args) IsNamed() bool {
	return a.named
}

func (a Args) Len() int {
	if a.named {
		return len(a.Named)
	}
	return len(a.Positional)
}

// Values returns the values in declaration order
func (a Args) Values() []Value {
	if !a.named {
		return a.Positional
	}
	out := make([]Value, len(a.Named))
	for i, n := range a.Named {
		out[i] = n.Value
	}
	return out
}

// Refs returns referenced names in order of first appearance
func (a Args) Refs() []string {
	var refs []string
	seen := map[string]bool{}
	for _, v := range a.Values() {
		if v.IsRef() && !seen[v.Ref] {
			seen[v.Ref] = true
			refs = append(refs, v.Ref)
		}
	}
	return refs
}

// Get looks up a named argument
func (a Args) Get(name string) (Value, bool) {
	for _, n := range a.Named {
		if n.Name == name {
			return n.Value, true
		}
	}
	return Value{}, false
}

// Map rewrites every value with fn, preserving shape and order
func (a Args) Map(fn func(Value) (Value, error)) (Args, error) {
	out := Args{named: a.named}
	if a.named {
		out.Named = make([]NamedArg, len(a.Named))
		for i, n := range a.Named {
			v, err := fn(n.Value)
			if err != nil {
				return Args{}, fmt.Errorf("argument %s: %w", n.Name, err)
			}
			out.Named[i] = NamedArg{Name: n.Name, Value: v}
		}
		return out, nil
	}
	if len(a.Positional) > 0 {
		out.Positional = make([]Value, len(a.Positional))
	}
	for i, v := range a.Positional {
		mv, err := fn(v)
		if err != nil {
			return Args{}, fmt.Errorf("argument %d: %w", i, err)
		}
		out.Positional[i] = mv
	}
	return out, nil
}

func (a Args) Equal(o Args) bool {
	if a.named != o.named || a.Len() != o.Len() {
		return false
	}
	if a.named {
		for i := range a.Named {
			if a.Named[i].Name != o.Named[i].Name || !a.Named[i].Value.Equal(o.Named[i].Value) {
				return false
			}
		}
		return true
	}
	for i := range a.Positional {
		if !a.Positional[i].Equal(o.Positional[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON writes named args as an object in declaration order
func (a Args) MarshalJSON() ([]byte, error) {
	if !a.named {
		if a.Positional == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Positional)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range a.Named {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(n.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Args) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = Args{}
		return nil
	}
	if data[0] == '[' {
		var vals []Value
		if err := json.Unmarshal(data, &vals); err != nil {
			return err
		}
		if len(vals) == 0 {
			vals = nil
		}
		*a = Args{Positional: vals}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("arguments must be an array or an object, got %s", data)
	}
	out := Args{named: true}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected argument name, got %v", tok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("argument %s: %w", name, err)
		}
		out.Named = append(out.Named, NamedArg{Name: name, Value: v})
	}
	*a = out
	return nil
}

// UnmarshalYAML keeps mapping order for named args
func (a *Args) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var vals []Value
		if err := node.Decode(&vals); err != nil {
			return err
		}
		*a = Args{Positional: vals}
		return nil
	case yaml.MappingNode:
		out := Args{named: true}
		for i := 0; i+1 < len(node.Content); i += 2 {
			var v Value
			if err := node.Content[i+1].Decode(&v); err != nil {
				return fmt.Errorf("argument %s: %w", node.Content[i].Value, err)
			}
			out.Named = append(out.Named, NamedArg{Name: node.Content[i].Value, Value: v})
		}
		*a = out
		return nil
	}
	return fmt.Errorf("line %d: args must be a list or a mapping", node.Line)
}
