package topology

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseDefaultTopology(t *testing.T) {
	topo, err := Parse(defaultTopology, envMap(map[string]string{
		"TOKEN_METADATA_URL": "https://cofi.example/meta/",
	}))
	require.NoError(t, err)
	assert.Equal(t, "cofi", topo.Name)

	names := make([]string, 0, len(topo.Contracts))
	for _, c := range topo.Contracts {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"CofiCollection", "Distribution", "MockUSDC", "Marketplace", "Swap"}, names)

	market, ok := topo.Lookup("Marketplace")
	require.True(t, ok)
	assert.True(t, market.Args.IsNamed())
	fee, ok := market.Args.Get("market_fee")
	require.True(t, ok)
	assert.Equal(t, models.Number(5000), fee)
	assert.Equal(t, []string{"CofiCollection", "Distribution", "USDC", models.DeployerRef}, market.Args.Refs())

	usdc, ok, err := topo.External("USDC", models.Mainnet)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0x33068f6539f8e6e6b131e6b2b814e6c34a5224bc66947c47dab9dfee93b35fb", usdc.Short())

	require.Len(t, topo.Wiring, 3)
	uri, ok := topo.Wiring[1].Args.Get("base_uri")
	require.True(t, ok)
	assert.Equal(t, models.Literal("https://cofi.example/meta/"), uri)

	names = nil
	for _, c := range topo.Upgradeable() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Distribution", "Marketplace", "Swap"}, names)
}

func TestDefaultTopologyPerNetwork(t *testing.T) {
	topo, err := Parse(defaultTopology, envMap(nil))
	require.NoError(t, err)

	tests := []struct {
		network models.Network
		want    []string
	}{
		{models.Devnet, []string{"CofiCollection", "Distribution", "MockUSDC", "Marketplace"}},
		{models.Sepolia, []string{"CofiCollection", "Distribution", "MockUSDC", "Marketplace"}},
		{models.Mainnet, []string{"CofiCollection", "Distribution", "Marketplace", "Swap"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.network), func(t *testing.T) {
			active := topo.ForNetwork(tt.network, "")
			var got []string
			for _, c := range active.Contracts {
				got = append(got, c.Name)
			}
			assert.Equal(t, tt.want, got)
			assert.Len(t, active.Wiring, 3)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "name: x\ncontracts:\n  - name: A\n    upgradable: true\n"},
		{"no contracts", "name: x\ncontracts: []\n"},
		{"unknown ref", "name: x\ncontracts:\n  - name: A\n    args: [\"@B\"]\n"},
		{"bad yaml", "name: [x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), envMap(nil))
			assert.ErrorIs(t, err, domain.ErrInvalidTopology)
		})
	}
}

func TestLoaderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: custom
contracts:
  - name: Token
    args: ["@deployer", 18]
`), 0644))

	l := NewLoader(&config.RuntimeConfig{Project: config.ProjectConfig{Topology: path}},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	topo, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "custom", topo.Name)
	require.Len(t, topo.Contracts, 1)
	assert.Equal(t, []models.Value{models.Ref(models.DeployerRef), models.Number(18)}, topo.Contracts[0].Args.Values())
}

func TestLoaderMissingFile(t *testing.T) {
	l := NewLoader(&config.RuntimeConfig{Project: config.ProjectConfig{Topology: "/nonexistent/topology.yaml"}},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := l.Load(context.Background())
	assert.Error(t, err)
}
