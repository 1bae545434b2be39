package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// ValueKind tags the variant held by a Value
type ValueKind int

const (
	LiteralValue ValueKind = iota
	NumericValue
	RefValue
)

// DeployerRef is the reference name bound to the deploying account
const DeployerRef = "deployer"

// Value is a constructor or call argument.
// Literal strings are encoded per the ABI type, numbers as integers,
// and refs resolve to the address of a contract or the deployer.
type Value struct {
	Kind    ValueKind
	Literal string
	Number  *uint256.Int
	Ref     string
}

func Literal(s string) Value {
	return Value{Kind: LiteralValue, Literal: s}
}

func Number(n uint64) Value {
	return Value{Kind: NumericValue, Number: uint256.NewInt(n)}
}

func NumberFrom(n *uint256.Int) Value {
	return Value{Kind: NumericValue, Number: new(uint256.Int).Set(n)}
}

func Ref(name string) Value {
	return Value{Kind: RefValue, Ref: name}
}

// FeltValue is a literal carrying the hex form of f
func FeltValue(f Felt) Value {
	return Literal(f.String())
}

// ParseValue reads the textual form used in topology files.
// "@Name" is a reference, "@@text" escapes a literal starting with "@".
func ParseValue(s string) Value {
	switch {
	case strings.HasPrefix(s, "@@"):
		return Literal(s[1:])
	case strings.HasPrefix(s, "@") && len(s) > 1:
		return Ref(s[1:])
	}
	return Literal(s)
}

func (v Value) IsRef() bool {
	return v.Kind == RefValue
}

// String is the inverse of ParseValue
func (v Value) String() string {
	switch v.Kind {
	case RefValue:
		return "@" + v.Ref
	case NumericValue:
		if v.Number == nil {
			return "0"
		}
		return v.Number.Dec()
	}
	if strings.HasPrefix(v.Literal, "@") && len(v.Literal) > 1 {
		return "@" + v.Literal
	}
	return v.Literal
}

func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case NumericValue:
		if v.Number == nil || o.Number == nil {
			return v.Number == o.Number
		}
		return v.Number.Eq(o.Number)
	case RefValue:
		return v.Ref == o.Ref
	}
	return v.Literal == o.Literal
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == NumericValue {
		if v.Number == nil {
			return []byte("0"), nil
		}
		return []byte(v.Number.Dec()), nil
	}
	return json.Marshal(v.String())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ParseValue(s)
		return nil
	}
	switch string(data) {
	case "true", "false":
		*v = Literal(string(data))
		return nil
	}
	n, err := uint256.FromDecimal(string(data))
	if err != nil {
		return fmt.Errorf("invalid numeric value %s: %w", data, err)
	}
	*v = Value{Kind: NumericValue, Number: n}
	return nil
}

// UnmarshalYAML accepts scalars; integers stay numeric and strings go through ParseValue
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: argument must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!int":
		if strings.HasPrefix(node.Value, "0x") {
			*v = Literal(node.Value)
			return nil
		}
		n, err := uint256.FromDecimal(strings.ReplaceAll(node.Value, "_", ""))
		if err != nil {
			return fmt.Errorf("line %d: invalid integer %q: %w", node.Line, node.Value, err)
		}
		*v = Value{Kind: NumericValue, Number: n}
	case "!!null":
		return fmt.Errorf("line %d: null argument value", node.Line)
	default:
		*v = ParseValue(node.Value)
	}
	return nil
}
