package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newViper(root string, values map[string]any) *viper.Viper {
	v := viper.New()
	v.Set("project_root", root)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestProviderDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Scarb.toml"), "[package]\nname = \"contracts\"\n")

	cfg, err := Provider(newViper(root, map[string]any{"network": "devnet", "reset": true}))
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "deployments"), cfg.DeploymentsDir)
	assert.Equal(t, "contracts", cfg.Project.Package)
	assert.Equal(t, "dev", cfg.Project.Profile)
	assert.Equal(t, "scarb", cfg.Project.ScarbBinary)
	assert.Equal(t, "sncast", cfg.Project.SncastBinary)
	assert.True(t, cfg.Reset)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.ConfirmTimeout)

	require.NotNil(t, cfg.Network)
	assert.Equal(t, models.Devnet, cfg.Network.Name)
	assert.Equal(t, "http://127.0.0.1:5050/rpc", cfg.Network.RPCURL)
	assert.Equal(t, DevnetAccountAddress, cfg.Network.DeployerAddress.String())
}

func TestProviderNoReset(t *testing.T) {
	root := t.TempDir()
	cfg, err := Provider(newViper(root, map[string]any{"reset": true, "no-reset": true}))
	require.NoError(t, err)
	assert.False(t, cfg.Reset)
	assert.Nil(t, cfg.Network)
}

func TestProviderProjectFile(t *testing.T) {
	root := t.TempDir()
	t.Setenv("COFI_TEST_SEPOLIA_RPC", "https://rpc.sepolia.example")
	writeFile(t, filepath.Join(root, ProjectFileName), `
deployments_dir = "packages/snfoundry/deployments"

[project]
package = "cofi"
profile = "release"
topology = "topology.yaml"

[networks.sepolia]
rpc_url = "${COFI_TEST_SEPOLIA_RPC}"
account = "cofi-deployer"
accounts_file = "accounts.json"
deployer_address = "0xabc"
`)

	cfg, err := Provider(newViper(root, map[string]any{"network": "sepolia"}))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "packages/snfoundry/deployments"), cfg.DeploymentsDir)
	assert.Equal(t, "cofi", cfg.Project.Package)
	assert.Equal(t, "release", cfg.Project.Profile)
	assert.Equal(t, filepath.Join(root, "topology.yaml"), cfg.Project.Topology)

	require.NotNil(t, cfg.Network)
	assert.Equal(t, "https://rpc.sepolia.example", cfg.Network.RPCURL)
	assert.Equal(t, "SN_SEPOLIA", cfg.Network.ChainID)
	assert.Equal(t, "cofi-deployer", cfg.Network.Account)
	assert.Equal(t, "accounts.json", cfg.Network.AccountsFile)
	assert.Equal(t, "0xabc", cfg.Network.DeployerAddress.Short())
}

func TestProviderEnvFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "MAINNET_RPC_URL=https://rpc.mainnet.example\nMAINNET_ACCOUNT_ADDRESS=0x123\n")
	t.Cleanup(func() {
		os.Unsetenv("MAINNET_RPC_URL")
		os.Unsetenv("MAINNET_ACCOUNT_ADDRESS")
	})

	cfg, err := Provider(newViper(root, map[string]any{"network": "mainnet"}))
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.mainnet.example", cfg.Network.RPCURL)
	assert.Equal(t, "SN_MAIN", cfg.Network.ChainID)
	assert.Equal(t, "0x123", cfg.Network.DeployerAddress.Short())
}

func TestProviderErrors(t *testing.T) {
	t.Run("unknown network", func(t *testing.T) {
		_, err := Provider(newViper(t.TempDir(), map[string]any{"network": "goerli"}))
		assert.ErrorIs(t, err, domain.ErrUnknownNetwork)
	})

	t.Run("missing rpc url", func(t *testing.T) {
		t.Setenv("SEPOLIA_RPC_URL", "")
		_, err := Provider(newViper(t.TempDir(), map[string]any{"network": "sepolia"}))
		assert.ErrorContains(t, err, "SEPOLIA_RPC_URL")
	})

	t.Run("malformed project file", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ProjectFileName), "[project\n")
		_, err := Provider(newViper(root, nil))
		assert.ErrorContains(t, err, ProjectFileName)
	})
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Scarb.toml"), "")
	nested := filepath.Join(root, "src", "tokens")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := findProjectRootFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}
