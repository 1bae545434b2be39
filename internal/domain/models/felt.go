package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// StarkPrime is the field modulus P = 2^251 + 17*2^192 + 1
var StarkPrime = func() *uint256.Int {
	p := new(uint256.Int).Lsh(uint256.NewInt(1), 251)
	p.Add(p, new(uint256.Int).Lsh(uint256.NewInt(17), 192))
	return p.AddUint64(p, 1)
}()

// Felt is a Starknet field element
type Felt struct {
	v uint256.Int
}

// ZeroFelt is the zero element
var ZeroFelt = Felt{}

// NewFelt builds a felt from a uint64
func NewFelt(x uint64) Felt {
	var f Felt
	f.v.SetUint64(x)
	return f
}

// FeltFromUint256 checks x against the field modulus
func FeltFromUint256(x *uint256.Int) (Felt, error) {
	if x.Cmp(StarkPrime) >= 0 {
		return Felt{}, fmt.Errorf("value %s exceeds field modulus", x.Hex())
	}
	var f Felt
	f.v.Set(x)
	return f, nil
}

// FeltFromBytes interprets b as a big-endian integer of at most 32 bytes
func FeltFromBytes(b []byte) (Felt, error) {
	if len(b) > 32 {
		return Felt{}, fmt.Errorf("felt overflow: %d bytes", len(b))
	}
	return FeltFromUint256(new(uint256.Int).SetBytes(b))
}

// ParseFelt accepts 0x-prefixed hex or decimal
func ParseFelt(s string) (Felt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Felt{}, fmt.Errorf("empty felt")
	}
	var x *uint256.Int
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			return Felt{}, nil
		}
		x, err = uint256.FromHex("0x" + strings.ToLower(digits))
	} else {
		x, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return Felt{}, fmt.Errorf("invalid felt %q: %w", s, err)
	}
	return FeltFromUint256(x)
}

// MustParseFelt panics on malformed input; for constants and tests
func MustParseFelt(s string) Felt {
	f, err := ParseFelt(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Uint256 returns a copy of the underlying integer
func (f Felt) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&f.v)
}

// Bytes32 returns the big-endian 32-byte encoding
func (f Felt) Bytes32() [32]byte {
	return f.v.Bytes32()
}

func (f Felt) IsZero() bool {
	return f.v.IsZero()
}

func (f Felt) Equal(o Felt) bool {
	return f.v.Eq(&o.v)
}

// String renders 0x followed by 64 lowercase hex digits
func (f Felt) String() string {
	b := f.v.Bytes32()
	return "0x" + hex.EncodeToString(b[:])
}

// Short renders the minimal hex form, as used in calldata
func (f Felt) Short() string {
	return f.v.Hex()
}

func (f Felt) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Felt) UnmarshalText(text []byte) error {
	parsed, err := ParseFelt(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Felt) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Felt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("felt must be a string: %w", err)
	}
	return f.UnmarshalText([]byte(s))
}
