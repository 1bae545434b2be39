package models

import "encoding/json"

// Artifact is the compiled output of one Cairo contract
type Artifact struct {
	Name       string `json:"name"`
	Package    string `json:"package"`
	SierraPath string `json:"sierraPath"`
	CasmPath   string `json:"casmPath,omitempty"`

	// Raw sections of the Sierra class file
	ABI           json.RawMessage `json:"-"`
	SierraProgram json.RawMessage `json:"-"`
	EntryPoints   json.RawMessage `json:"-"`
}
