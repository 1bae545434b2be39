package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/joho/godotenv"
)

// DevnetAccountAddress is the first predeployed account of starknet-devnet (seed 0)
const DevnetAccountAddress = "0x064b48806902a367c8598f4f95c305e8c1a1acba5f082d294a43793113115691"

// networkDefaults apply when cofi.toml does not configure a field
var networkDefaults = map[models.Network]config.NetworkFileConfig{
	models.Devnet: {
		RPCURL:          "http://127.0.0.1:5050/rpc",
		Account:         "devnet",
		DeployerAddress: DevnetAccountAddress,
	},
	models.Sepolia: {
		RPCURL:  "${SEPOLIA_RPC_URL}",
		ChainID: "SN_SEPOLIA",
		Account: "sepolia",
	},
	models.Mainnet: {
		RPCURL:  "${MAINNET_RPC_URL}",
		ChainID: "SN_MAIN",
		Account: "mainnet",
	},
}

// loadEnvFiles loads .env and .env.local without overriding the process environment
func loadEnvFiles(projectRoot string) {
	envFiles := []string{
		filepath.Join(projectRoot, ".env"),
		filepath.Join(projectRoot, ".env.local"),
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				// Log warning but don't fail
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}
}

// loadProjectFile parses cofi.toml if it exists.
// Returns an empty file when cofi.toml does not exist.
func loadProjectFile(projectRoot string) (*config.ProjectFile, error) {
	path := filepath.Join(projectRoot, ProjectFileName)

	var file config.ProjectFile
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &file, nil
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ProjectFileName, err)
	}
	return &file, nil
}

func applyProjectDefaults(p config.ProjectConfig) config.ProjectConfig {
	p.Package = firstNonEmpty(p.Package, "contracts")
	p.Profile = firstNonEmpty(p.Profile, "dev")
	p.TargetDir = firstNonEmpty(p.TargetDir, "target")
	p.ScarbBinary = firstNonEmpty(p.ScarbBinary, "scarb")
	p.SncastBinary = firstNonEmpty(p.SncastBinary, "sncast")
	return p
}

// resolveNetwork merges the file config over defaults and expands env vars.
// The deployer address falls back to <NETWORK>_ACCOUNT_ADDRESS.
func resolveNetwork(name models.Network, file config.NetworkFileConfig) (*config.Network, error) {
	def := networkDefaults[name]
	envPrefix := strings.ToUpper(string(name))

	network := &config.Network{
		Name:         name,
		RPCURL:       os.ExpandEnv(firstNonEmpty(file.RPCURL, def.RPCURL)),
		ChainID:      os.ExpandEnv(firstNonEmpty(file.ChainID, def.ChainID)),
		Account:      os.ExpandEnv(firstNonEmpty(file.Account, os.Getenv(envPrefix+"_ACCOUNT"), def.Account)),
		AccountsFile: os.ExpandEnv(file.AccountsFile),
	}
	if network.RPCURL == "" {
		return nil, fmt.Errorf("no RPC URL (set %s_RPC_URL or rpc_url in %s)", envPrefix, ProjectFileName)
	}

	rawAddress := os.ExpandEnv(firstNonEmpty(file.DeployerAddress, os.Getenv(envPrefix+"_ACCOUNT_ADDRESS"), def.DeployerAddress))
	if rawAddress == "" {
		return nil, fmt.Errorf("no deployer address (set %s_ACCOUNT_ADDRESS or deployer_address in %s)", envPrefix, ProjectFileName)
	}
	addr, err := models.ParseFelt(rawAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid deployer address: %w", err)
	}
	network.DeployerAddress = addr
	return network, nil
}
