//go:build wireinject
// +build wireinject

package app

import (
	"github.com/cofi-market/cofi-deploy/internal/adapters"
	"github.com/cofi-market/cofi-deploy/internal/config"
	"github.com/cofi-market/cofi-deploy/internal/logging"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/google/wire"
	"github.com/spf13/viper"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewDeploySystem,
		usecase.NewUpgradeSystem,
		usecase.NewListDeployments,
		usecase.NewCheckLedger,

		// App
		NewApp,
	)
	return nil, nil
}
