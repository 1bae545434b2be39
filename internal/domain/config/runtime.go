package config

import (
	"time"

	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot    string
	DeploymentsDir string

	// Target network, nil for commands that do not need one
	Network *Network

	// Build and topology settings
	Project ProjectConfig

	// Deploy settings
	Feature   string
	Reset     bool
	Upgrade   bool
	SkipBuild bool
	DryRun    bool

	// Execution settings
	Debug          bool
	NonInteractive bool
	Timeout        time.Duration // whole run
	ConfirmTimeout time.Duration // per transaction
	PollInterval   time.Duration
}

// Network represents a resolved network configuration
type Network struct {
	Name         models.Network `json:"name"`
	RPCURL       string         `json:"rpcUrl"`
	ChainID      string         `json:"chainId,omitempty"` // e.g. SN_SEPOLIA; empty skips the check
	Account      string         `json:"account"`
	AccountsFile string         `json:"accountsFile,omitempty"`

	// Address of Account, bound to @deployer in topologies
	DeployerAddress models.Felt `json:"deployerAddress"`
}

// ProjectConfig describes the Cairo project being deployed
type ProjectConfig struct {
	Package      string `toml:"package"`
	Profile      string `toml:"profile"`
	TargetDir    string `toml:"target_dir"`
	Topology     string `toml:"topology"` // empty uses the embedded topology
	ScarbBinary  string `toml:"scarb"`
	SncastBinary string `toml:"sncast"`
}

// ProjectFile is the on-disk cofi.toml
type ProjectFile struct {
	Project        ProjectConfig                `toml:"project"`
	DeploymentsDir string                       `toml:"deployments_dir"`
	Networks       map[string]NetworkFileConfig `toml:"networks"`
}

// NetworkFileConfig is one [networks.<name>] table
type NetworkFileConfig struct {
	RPCURL          string `toml:"rpc_url"`
	ChainID         string `toml:"chain_id"`
	Account         string `toml:"account"`
	AccountsFile    string `toml:"accounts_file"`
	DeployerAddress string `toml:"deployer_address"`
}
