package cairo

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Param is a named, typed function input or struct member
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Function is an external entrypoint or the constructor
type Function struct {
	Name            string  `json:"name"`
	Inputs          []Param `json:"inputs"`
	StateMutability string  `json:"state_mutability,omitempty"`
}

// Struct is a user-defined struct type
type Struct struct {
	Name    string  `json:"name"`
	Members []Param `json:"members"`
}

// ABI is the subset of a Sierra contract ABI needed to encode calldata
type ABI struct {
	Constructor *Function
	Functions   map[string]Function
	Structs     map[string]Struct
}

type abiItem struct {
	Type    string    `json:"type"`
	Name    string    `json:"name"`
	Inputs  []Param   `json:"inputs"`
	Members []Param   `json:"members"`
	Items   []abiItem `json:"items"`

	StateMutability string `json:"state_mutability"`
}

// ParseABI reads an ABI given either as a JSON array or as a JSON string
// containing the array, as returned by starknet_getClass.
func ParseABI(raw []byte) (*ABI, error) {
	abi := &ABI{
		Functions: make(map[string]Function),
		Structs:   make(map[string]Struct),
	}
	if len(raw) == 0 {
		return abi, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("failed to decode abi string: %w", err)
		}
		raw = []byte(inner)
	}

	var items []abiItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to parse abi: %w", err)
	}
	abi.collect(items)
	return abi, nil
}

func (a *ABI) collect(items []abiItem) {
	for _, item := range items {
		switch item.Type {
		case "constructor":
			fn := Function{Name: item.Name, Inputs: item.Inputs}
			a.Constructor = &fn
		case "function", "l1_handler":
			a.Functions[item.Name] = Function{
				Name:            item.Name,
				Inputs:          item.Inputs,
				StateMutability: item.StateMutability,
			}
		case "interface":
			a.collect(item.Items)
		case "struct":
			a.Structs[item.Name] = Struct{Name: item.Name, Members: item.Members}
		}
	}
}

// Function looks up an entrypoint by name
func (a *ABI) Function(name string) (Function, bool) {
	fn, ok := a.Functions[name]
	return fn, ok
}

// IsEmpty reports whether the ABI declares no entrypoints at all
func (a *ABI) IsEmpty() bool {
	return a.Constructor == nil && len(a.Functions) == 0
}
