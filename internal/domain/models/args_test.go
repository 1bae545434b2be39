package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{"@Marketplace", Ref("Marketplace")},
		{"@deployer", Ref(DeployerRef)},
		{"@@handle", Literal("@handle")},
		{"@", Literal("@")},
		{"https://cofi.example/meta/", Literal("https://cofi.example/meta/")},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseValue(tt.input)
			assert.True(t, tt.want.Equal(got), "got %+v", got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestArgsJSONPreservesOrder(t *testing.T) {
	args := NamedArgs(
		Arg("cofi_collection_address", Ref("CofiCollection")),
		Arg("distribution_address", Ref("Distribution")),
		Arg("usdc_address", Ref("USDC")),
		Arg("admin", Ref(DeployerRef)),
		Arg("market_fee", Number(5000)),
	)

	data, err := json.Marshal(args)
	require.NoError(t, err)
	assert.Equal(t,
		`{"cofi_collection_address":"@CofiCollection","distribution_address":"@Distribution","usdc_address":"@USDC","admin":"@deployer","market_fee":5000}`,
		string(data))

	var back Args
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IsNamed())
	assert.True(t, args.Equal(back))
	assert.Equal(t, []string{"CofiCollection", "Distribution", "USDC", "deployer"}, back.Refs())
}

func TestArgsJSONPositional(t *testing.T) {
	var empty Args
	require.NoError(t, json.Unmarshal([]byte(`[]`), &empty))
	assert.False(t, empty.IsNamed())
	assert.Nil(t, empty.Positional)

	var args Args
	require.NoError(t, json.Unmarshal([]byte(`["0x1", 7, "@Distribution"]`), &args))
	require.Len(t, args.Positional, 3)
	assert.Equal(t, LiteralValue, args.Positional[0].Kind)
	assert.Equal(t, NumericValue, args.Positional[1].Kind)
	assert.Equal(t, "Distribution", args.Positional[2].Ref)
}

func TestArgsJSONRejectsScalars(t *testing.T) {
	for _, input := range []string{`"garbage"`, `42`, `true`} {
		t.Run(input, func(t *testing.T) {
			var args Args
			assert.Error(t, json.Unmarshal([]byte(input), &args))
		})
	}
}

func TestArgsYAML(t *testing.T) {
	src := `
named:
  minter: "@Marketplace"
  fee: 5000
  flag: true
positional:
  - "@deployer"
  - 0x10
`
	var doc struct {
		Named      Args `yaml:"named"`
		Positional Args `yaml:"positional"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	require.True(t, doc.Named.IsNamed())
	require.Len(t, doc.Named.Named, 3)
	assert.Equal(t, "minter", doc.Named.Named[0].Name)
	assert.Equal(t, "Marketplace", doc.Named.Named[0].Value.Ref)
	assert.Equal(t, uint64(5000), doc.Named.Named[1].Value.Number.Uint64())
	assert.Equal(t, "true", doc.Named.Named[2].Value.Literal)

	require.Len(t, doc.Positional.Positional, 2)
	assert.Equal(t, DeployerRef, doc.Positional.Positional[0].Ref)
	assert.Equal(t, "0x10", doc.Positional.Positional[1].Literal)
}

func TestArgsMap(t *testing.T) {
	args := NamedArgs(Arg("admin", Ref(DeployerRef)), Arg("fee", Number(1)))
	mapped, err := args.Map(func(v Value) (Value, error) {
		if v.IsRef() {
			return Literal("0xabc"), nil
		}
		return v, nil
	})
	require.NoError(t, err)
	assert.Empty(t, mapped.Refs())
	v, ok := mapped.Get("admin")
	require.True(t, ok)
	assert.Equal(t, "0xabc", v.Literal)
	// the original is untouched
	assert.Equal(t, []string{DeployerRef}, args.Refs())
}
