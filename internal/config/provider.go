package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ProjectFileName is the optional project configuration file
const ProjectFileName = "cofi.toml"

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	// .env is loaded before anything reads the environment
	loadEnvFiles(projectRoot)

	file, err := loadProjectFile(projectRoot)
	if err != nil {
		return nil, err
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DeploymentsDir: resolvePath(projectRoot, firstNonEmpty(v.GetString("deployments_dir"), file.DeploymentsDir, "deployments")),
		Project:        applyProjectDefaults(file.Project),
		Feature:        v.GetString("feature"),
		Reset:          v.GetBool("reset") && !v.GetBool("no-reset"),
		Upgrade:        v.GetBool("upgrade"),
		SkipBuild:      v.GetBool("no-build"),
		DryRun:         v.GetBool("dry-run"),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non-interactive"),
		Timeout:        v.GetDuration("timeout"),
		ConfirmTimeout: v.GetDuration("confirm_timeout"),
		PollInterval:   v.GetDuration("poll_interval"),
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 5 * time.Minute
	}
	if cfg.Project.Topology != "" {
		cfg.Project.Topology = resolvePath(projectRoot, cfg.Project.Topology)
	}

	if networkName := v.GetString("network"); networkName != "" {
		name, err := domain.ParseNetwork(networkName)
		if err != nil {
			return nil, err
		}
		network, err := resolveNetwork(name, file.Networks[string(name)])
		if err != nil {
			return nil, fmt.Errorf("failed to resolve network %s: %w", name, err)
		}
		if rpc := v.GetString("rpc-url"); rpc != "" {
			network.RPCURL = rpc
		}
		if account := v.GetString("account"); account != "" {
			network.Account = account
		}
		cfg.Network = network
	}

	return cfg, nil
}

// FindProjectRoot walks up from current directory to find cofi.toml or Scarb.toml
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return findProjectRootFrom(dir)
}

func findProjectRootFrom(dir string) (string, error) {
	for {
		for _, marker := range []string{ProjectFileName, "Scarb.toml"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Scarb project (Scarb.toml not found)")
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// Set up environment variables
	v.SetEnvPrefix("COFI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("timeout", "30m")
	v.SetDefault("confirm_timeout", "5m")
	v.SetDefault("poll_interval", "2s")
	v.SetDefault("debug", false)
	v.SetDefault("non-interactive", false)
	v.SetDefault("project_root", projectRoot)

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		err := v.BindPFlag(f.Name, f)
		if err != nil {
			panic(err)
		}
	})

	return v
}

func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
