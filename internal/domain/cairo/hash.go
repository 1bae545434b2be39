package cairo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/ethereum/go-ethereum/crypto"
)

// SnKeccak is keccak256 truncated to the low 250 bits
func SnKeccak(data ...[]byte) models.Felt {
	h := crypto.Keccak256(data...)
	h[0] &= 0x03
	f, _ := models.FeltFromBytes(h)
	return f
}

// Selector returns the entrypoint selector for name
func Selector(name string) models.Felt {
	return SnKeccak([]byte(name))
}

// HashFelts folds a felt sequence into one felt
func HashFelts(felts ...models.Felt) models.Felt {
	buf := make([]byte, 0, 32*len(felts))
	for _, f := range felts {
		b := f.Bytes32()
		buf = append(buf, b[:]...)
	}
	return SnKeccak(buf)
}

// Fingerprint identifies a compiled class by its Sierra program and entry points.
// Formatting differences in the class file do not change the result.
func Fingerprint(artifact *models.Artifact) (models.Felt, error) {
	if len(artifact.SierraProgram) == 0 {
		return models.Felt{}, fmt.Errorf("artifact %s has no sierra program", artifact.Name)
	}
	var program, entries bytes.Buffer
	if err := json.Compact(&program, artifact.SierraProgram); err != nil {
		return models.Felt{}, fmt.Errorf("invalid sierra program for %s: %w", artifact.Name, err)
	}
	if len(artifact.EntryPoints) > 0 {
		if err := json.Compact(&entries, artifact.EntryPoints); err != nil {
			return models.Felt{}, fmt.Errorf("invalid entry points for %s: %w", artifact.Name, err)
		}
	}
	return SnKeccak(program.Bytes(), []byte{0}, entries.Bytes()), nil
}
