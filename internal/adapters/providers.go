package adapters

import (
	"log/slog"

	"github.com/cofi-market/cofi-deploy/internal/adapters/artifacts"
	"github.com/cofi-market/cofi-deploy/internal/adapters/interactive"
	"github.com/cofi-market/cofi-deploy/internal/adapters/progress"
	"github.com/cofi-market/cofi-deploy/internal/adapters/repository/ledger"
	"github.com/cofi-market/cofi-deploy/internal/adapters/simulated"
	"github.com/cofi-market/cofi-deploy/internal/adapters/sncast"
	"github.com/cofi-market/cofi-deploy/internal/adapters/starknet"
	"github.com/cofi-market/cofi-deploy/internal/adapters/topology"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/google/wire"
)

// Chain is the gateway selected for a run: it submits and it inspects
type Chain interface {
	usecase.ChainGateway
	usecase.ChainInspector
}

// ProvideChain returns the simulated chain for dry runs and the
// sncast/JSON-RPC gateway otherwise
func ProvideChain(cfg *config.RuntimeConfig, log *slog.Logger) Chain {
	if cfg.DryRun {
		return simulated.NewGatewayFromConfig(cfg, log)
	}
	return starknet.NewGateway(cfg, sncast.NewExecutor(cfg, log), log)
}

func ProvideChainGateway(c Chain) usecase.ChainGateway {
	return c
}

func ProvideChainInspector(c Chain) usecase.ChainInspector {
	return c
}

// ChainSet provides the chain gateway
var ChainSet = wire.NewSet(
	ProvideChain,
	ProvideChainGateway,
	ProvideChainInspector,
)

// StorageSet provides filesystem-based implementations
var StorageSet = wire.NewSet(
	ledger.NewFileStoreFromConfig,
	wire.Bind(new(usecase.LedgerStore), new(*ledger.FileStore)),

	topology.NewLoader,
	wire.Bind(new(usecase.TopologySource), new(*topology.Loader)),
)

// BuildSet provides the Scarb build and artifact implementations
var BuildSet = wire.NewSet(
	artifacts.NewScarbBuilder,
	wire.Bind(new(usecase.ArtifactBuilder), new(*artifacts.ScarbBuilder)),

	artifacts.NewResolverFromConfig,
	wire.Bind(new(usecase.ArtifactResolver), new(*artifacts.Resolver)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewConfirmAdapter,
	wire.Bind(new(usecase.Confirmer), new(*interactive.ConfirmAdapter)),

	progress.NewSpinnerSink,
	wire.Bind(new(usecase.ProgressSink), new(*progress.SpinnerSink)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	ChainSet,
	StorageSet,
	BuildSet,
	InteractiveSet,
)
