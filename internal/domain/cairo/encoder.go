package cairo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/holiman/uint256"
)

// Core type paths as they appear in Sierra ABIs
const (
	TypeFelt252         = "core::felt252"
	TypeContractAddress = "core::starknet::contract_address::ContractAddress"
	TypeClassHash       = "core::starknet::class_hash::ClassHash"
	TypeEthAddress      = "core::starknet::eth_address::EthAddress"
	TypeBool            = "core::bool"
	TypeU256            = "core::integer::u256"
	TypeByteArray       = "core::byte_array::ByteArray"
)

var uintBits = map[string]uint{
	"core::integer::u8":   8,
	"core::integer::u16":  16,
	"core::integer::u32":  32,
	"core::integer::u64":  64,
	"core::integer::u128": 128,
}

// EncodedCall is an invoke ready for submission
type EncodedCall struct {
	To         models.Felt
	Entrypoint string
	Selector   models.Felt
	Calldata   []models.Felt
}

// EncodeConstructor encodes args against the constructor inputs.
// Without an ABI (or without a constructor) the values are encoded raw.
func (a *ABI) EncodeConstructor(args models.Args) ([]models.Felt, error) {
	if a == nil || a.Constructor == nil {
		if args.Len() > 0 && a != nil && !a.IsEmpty() {
			return nil, fmt.Errorf("contract has no constructor but %d arguments were given", args.Len())
		}
		return EncodeRaw(args)
	}
	return a.encodeInputs(a.Constructor.Inputs, args)
}

// EncodeFunction encodes args for entrypoint
func (a *ABI) EncodeFunction(entrypoint string, args models.Args) ([]models.Felt, error) {
	if a == nil || a.IsEmpty() {
		return EncodeRaw(args)
	}
	fn, ok := a.Function(entrypoint)
	if !ok {
		return nil, fmt.Errorf("entrypoint %q not found in abi", entrypoint)
	}
	return a.encodeInputs(fn.Inputs, args)
}

// EncodeCall binds a call to its selector and calldata
func EncodeCall(call models.Call) (EncodedCall, error) {
	var abi *ABI
	if len(call.ABI) > 0 {
		parsed, err := ParseABI(call.ABI)
		if err != nil {
			return EncodedCall{}, err
		}
		abi = parsed
	}
	calldata, err := abi.EncodeFunction(call.Entrypoint, call.Args)
	if err != nil {
		return EncodedCall{}, fmt.Errorf("%s: %w", call.Entrypoint, err)
	}
	return EncodedCall{
		To:         call.Target,
		Entrypoint: call.Entrypoint,
		Selector:   Selector(call.Entrypoint),
		Calldata:   calldata,
	}, nil
}

// BatchFingerprint identifies an encoded batch; equal batches hash equal
func BatchFingerprint(calls []EncodedCall) models.Felt {
	var felts []models.Felt
	for _, c := range calls {
		felts = append(felts, c.To, c.Selector, models.NewFelt(uint64(len(c.Calldata))))
		felts = append(felts, c.Calldata...)
	}
	return HashFelts(felts...)
}

// EncodeRaw turns each value into a single felt; literals that are not
// numbers become short strings.
func EncodeRaw(args models.Args) ([]models.Felt, error) {
	var out []models.Felt
	for i, v := range args.Values() {
		f, err := encodeFeltLike(TypeFelt252, v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (a *ABI) encodeInputs(inputs []Param, args models.Args) ([]models.Felt, error) {
	values, err := orderArgs(inputs, args)
	if err != nil {
		return nil, err
	}
	var out []models.Felt
	for i, p := range inputs {
		felts, err := a.encodeValue(p.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("argument %s (%s): %w", p.Name, shortType(p.Type), err)
		}
		out = append(out, felts...)
	}
	return out, nil
}

// orderArgs lines values up with inputs; named args are reordered to ABI order
func orderArgs(inputs []Param, args models.Args) ([]models.Value, error) {
	if !args.IsNamed() {
		if len(args.Positional) != len(inputs) {
			return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(args.Positional))
		}
		return args.Positional, nil
	}

	values := make([]models.Value, len(inputs))
	used := make(map[string]bool, len(inputs))
	var missing []string
	for i, p := range inputs {
		v, ok := args.Get(p.Name)
		if !ok {
			missing = append(missing, p.Name)
			continue
		}
		values[i] = v
		used[p.Name] = true
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing arguments: %s", strings.Join(missing, ", "))
	}
	var extra []string
	for _, n := range args.Named {
		if !used[n.Name] {
			extra = append(extra, n.Name)
		}
	}
	if len(extra) > 0 {
		return nil, fmt.Errorf("unknown arguments: %s", strings.Join(extra, ", "))
	}
	return values, nil
}

func (a *ABI) encodeValue(typ string, v models.Value) ([]models.Felt, error) {
	if v.IsRef() {
		return nil, fmt.Errorf("unresolved reference @%s", v.Ref)
	}
	switch typ {
	case TypeU256:
		x, err := parseUint(v)
		if err != nil {
			return nil, err
		}
		low := new(uint256.Int).And(x, new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1))
		high := new(uint256.Int).Rsh(x, 128)
		lf, _ := models.FeltFromUint256(low)
		hf, _ := models.FeltFromUint256(high)
		return []models.Felt{lf, hf}, nil
	case TypeBool:
		b, err := parseBool(v)
		if err != nil {
			return nil, err
		}
		if b {
			return []models.Felt{models.NewFelt(1)}, nil
		}
		return []models.Felt{models.ZeroFelt}, nil
	case TypeByteArray:
		return EncodeByteArray(v.String())
	}

	if bits, ok := uintBits[typ]; ok {
		x, err := parseUint(v)
		if err != nil {
			return nil, err
		}
		if x.BitLen() > int(bits) {
			return nil, fmt.Errorf("value %s overflows u%d", x.Dec(), bits)
		}
		f, _ := models.FeltFromUint256(x)
		return []models.Felt{f}, nil
	}

	switch typ {
	case TypeFelt252, TypeContractAddress, TypeClassHash, TypeEthAddress:
		f, err := encodeFeltLike(typ, v)
		if err != nil {
			return nil, err
		}
		return []models.Felt{f}, nil
	}

	if st, ok := a.Structs[typ]; ok && len(st.Members) == 1 {
		return a.encodeValue(st.Members[0].Type, v)
	}
	return nil, fmt.Errorf("unsupported type %s", typ)
}

func encodeFeltLike(typ string, v models.Value) (models.Felt, error) {
	switch v.Kind {
	case models.NumericValue:
		return models.FeltFromUint256(v.Number)
	case models.RefValue:
		return models.Felt{}, fmt.Errorf("unresolved reference @%s", v.Ref)
	}
	if isNumeric(v.Literal) {
		return models.ParseFelt(v.Literal)
	}
	if typ != TypeFelt252 {
		return models.Felt{}, fmt.Errorf("%q is not a valid %s", v.Literal, shortType(typ))
	}
	return EncodeShortString(v.Literal)
}

func parseUint(v models.Value) (*uint256.Int, error) {
	switch v.Kind {
	case models.NumericValue:
		return new(uint256.Int).Set(v.Number), nil
	case models.LiteralValue:
		s := strings.TrimSpace(v.Literal)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			digits := strings.TrimLeft(s[2:], "0")
			if digits == "" {
				return new(uint256.Int), nil
			}
			return uint256.FromHex("0x" + strings.ToLower(digits))
		}
		return uint256.FromDecimal(s)
	}
	return nil, fmt.Errorf("unresolved reference @%s", v.Ref)
}

func parseBool(v models.Value) (bool, error) {
	if v.Kind == models.NumericValue {
		if v.Number.IsUint64() && v.Number.Uint64() <= 1 {
			return v.Number.Uint64() == 1, nil
		}
		return false, fmt.Errorf("invalid bool %s", v.Number.Dec())
	}
	return strconv.ParseBool(v.Literal)
}

func isNumeric(s string) bool {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return len(s) > 2
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func shortType(typ string) string {
	if i := strings.LastIndex(typ, "::"); i >= 0 {
		return typ[i+2:]
	}
	return typ
}
