package app

import (
	"github.com/cofi-market/cofi-deploy/internal/adapters/progress"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig

	// Use cases
	DeploySystem    *usecase.DeploySystem
	UpgradeSystem   *usecase.UpgradeSystem
	ListDeployments *usecase.ListDeployments
	CheckLedger     *usecase.CheckLedger

	// Progress is stopped before results are rendered
	Progress *progress.SpinnerSink
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	deploySystem *usecase.DeploySystem,
	upgradeSystem *usecase.UpgradeSystem,
	listDeployments *usecase.ListDeployments,
	checkLedger *usecase.CheckLedger,
	sink *progress.SpinnerSink,
) (*App, error) {
	return &App{
		Config:          cfg,
		DeploySystem:    deploySystem,
		UpgradeSystem:   upgradeSystem,
		ListDeployments: listDeployments,
		CheckLedger:     checkLedger,
		Progress:        sink,
	}, nil
}
