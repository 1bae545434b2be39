package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cofi-market/cofi-deploy/internal/adapters/simulated"
	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func argAddress(t *testing.T, rec models.DeploymentRecord, name string) models.Felt {
	t.Helper()
	require.NotNil(t, rec.ConstructorArgs)
	v, ok := rec.ConstructorArgs.Get(name)
	require.True(t, ok, "argument %s", name)
	f, err := models.ParseFelt(v.String())
	require.NoError(t, err)
	return f
}

func TestDeploySystemFreshSepolia(t *testing.T) {
	h := newHarness(t, models.Sepolia)

	result, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"CofiCollection", "Distribution", "MockUSDC", "Marketplace"}, result.Plan.Names())
	require.Len(t, result.Deployed, 4)
	assert.Empty(t, result.Skipped)
	for _, name := range result.Plan.Names() {
		assert.Equal(t, models.StateDeployed, result.States[name], name)
	}

	ledger := h.store.ledger(models.Sepolia)
	require.NotNil(t, ledger)
	assert.Equal(t, []string{"CofiCollection", "Distribution", "MockUSDC", "Marketplace"}, ledger.Names())
	assert.Equal(t, 1, h.store.exports)

	collection, _ := ledger.Get("CofiCollection")
	distribution, _ := ledger.Get("Distribution")
	usdc, _ := ledger.Get("MockUSDC")
	market, _ := ledger.Get("Marketplace")
	assert.Equal(t, collection.Address, argAddress(t, market, "cofi_collection_address"))
	assert.Equal(t, distribution.Address, argAddress(t, market, "distribution_address"))
	assert.Equal(t, usdc.Address, argAddress(t, market, "usdc_address"))
	assert.Equal(t, testDeployer, argAddress(t, market, "admin"))

	for _, rec := range ledger.Records() {
		onChain, ok := h.chain.ClassOf(rec.Address)
		require.True(t, ok, rec.Contract)
		assert.Equal(t, rec.ClassHash, onChain)
		require.NotNil(t, rec.ArtifactHash)
	}

	require.NotNil(t, result.Wiring)
	assert.True(t, result.Wiring.Applied)
	assert.Equal(t, 3, result.Wiring.Calls)
	require.NotNil(t, ledger.Wiring())
	assert.Equal(t, result.Wiring.Fingerprint, ledger.Wiring().Fingerprint)

	ops := h.chain.Ops()
	require.Len(t, ops, 9)
	last := ops[len(ops)-1]
	assert.Equal(t, simulated.OpInvoke, last.Kind)
	assert.Equal(t, []string{"set_minter", "set_base_uri", "set_marketplace"}, last.Entrypoints)
	require.Len(t, last.Calls, 3)
	assert.Equal(t, collection.Address, last.Calls[0].To)
	assert.Equal(t, []models.Felt{market.Address}, last.Calls[0].Calldata)
	assert.Equal(t, distribution.Address, last.Calls[2].To)
	assert.Equal(t, []models.Felt{market.Address}, last.Calls[2].Calldata)

	h.confirmer.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	h.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything)
}

func TestDeploySystemMainnetUsesExternalUSDC(t *testing.T) {
	h := newHarness(t, models.Mainnet)
	h.confirmer.On("Confirm", mock.Anything, mock.Anything).Return(true, nil)

	result, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"CofiCollection", "Distribution", "Marketplace", "Swap"}, result.Plan.Names())

	market, ok := h.store.ledger(models.Mainnet).Get("Marketplace")
	require.True(t, ok)
	assert.Equal(t, models.MustParseFelt(mainnetUSDC), argAddress(t, market, "usdc_address"))
	assert.False(t, h.store.ledger(models.Mainnet).Has("MockUSDC"))

	h.confirmer.AssertExpectations(t)
}

func TestDeploySystemMainnetDeclined(t *testing.T) {
	h := newHarness(t, models.Mainnet)
	h.confirmer.On("Confirm", mock.Anything, mock.Anything).Return(false, nil)

	_, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true})
	assert.ErrorIs(t, err, domain.ErrAborted)
	assert.Empty(t, h.chain.Ops())
	assert.Equal(t, 0, h.store.exports)
}

func TestDeploySystemRerunIsIdempotent(t *testing.T) {
	h := newHarness(t, models.Sepolia)
	ctx := context.Background()

	_, err := h.deploySystem().Run(ctx, usecase.DeploySystemParams{Reset: true})
	require.NoError(t, err)
	opsAfterFirst := len(h.chain.Ops())

	result, err := h.deploySystem().Run(ctx, usecase.DeploySystemParams{Reset: false})
	require.NoError(t, err)
	assert.Empty(t, result.Deployed)
	assert.Empty(t, result.States)
	assert.Equal(t, []string{"CofiCollection", "Distribution", "MockUSDC", "Marketplace"}, result.Skipped)
	require.NotNil(t, result.Wiring)
	assert.False(t, result.Wiring.Applied)
	assert.Equal(t, "already applied", result.Wiring.SkipReason)
	assert.Len(t, h.chain.Ops(), opsAfterFirst)
}

func TestDeploySystemResetRedeploys(t *testing.T) {
	h := newHarness(t, models.Sepolia)
	ctx := context.Background()

	_, err := h.deploySystem().Run(ctx, usecase.DeploySystemParams{Reset: true})
	require.NoError(t, err)
	first, _ := h.store.ledger(models.Sepolia).Get("Distribution")

	_, err = h.deploySystem().Run(ctx, usecase.DeploySystemParams{Reset: true})
	require.NoError(t, err)
	second, _ := h.store.ledger(models.Sepolia).Get("Distribution")

	assert.NotEqual(t, first.Address, second.Address)
	assert.Equal(t, first.ClassHash, second.ClassHash)

	declares := 0
	for _, op := range h.chain.Ops() {
		if op.Kind == simulated.OpDeclare {
			declares++
		}
	}
	assert.Equal(t, 4, declares, "classes are declared once per chain")
}

func TestDeploySystemMissingArtifact(t *testing.T) {
	h := newHarness(t, models.Sepolia)
	delete(h.resolver.artifacts, "Marketplace")

	_, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)

	var stepErr *domain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "Marketplace", stepErr.Contract)
	assert.Equal(t, domain.StepResolve, stepErr.Step)

	assert.Empty(t, h.chain.Ops())
	assert.Equal(t, 0, h.store.exports)
}

func TestDeploySystemDeployFailureExportsPartialLedger(t *testing.T) {
	h := newHarness(t, models.Sepolia)
	h.chain.FailOn(func(op simulated.Op) error {
		if op.Kind == simulated.OpDeploy && op.Contract == "Marketplace" {
			return errors.New("out of gas")
		}
		return nil
	})

	result, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeployFailed)

	var stepErr *domain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "Marketplace", stepErr.Contract)
	assert.Equal(t, domain.StepDeploy, stepErr.Step)

	require.NotNil(t, result)
	assert.Nil(t, result.Wiring)
	assert.Equal(t, models.StateFailed, result.States["Marketplace"])
	assert.Equal(t, models.StateDeployed, result.States["MockUSDC"])
	ledger := h.store.ledger(models.Sepolia)
	require.NotNil(t, ledger)
	assert.Equal(t, []string{"CofiCollection", "Distribution", "MockUSDC"}, ledger.Names())
	assert.Nil(t, ledger.Wiring())
	assert.Contains(t, h.sink.stages(), usecase.StageFailed)
}

func TestDeploySystemWiringRevert(t *testing.T) {
	h := newHarness(t, models.Sepolia)
	h.chain.FailOn(func(op simulated.Op) error {
		if op.Kind == simulated.OpInvoke {
			return errors.New("Caller is missing role")
		}
		return nil
	})

	_, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransactionRejected)
	assert.ErrorContains(t, err, "Caller is missing role")

	var stepErr *domain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, domain.StepWiring, stepErr.Step)

	ledger := h.store.ledger(models.Sepolia)
	require.NotNil(t, ledger)
	assert.Equal(t, 4, ledger.Len())
	assert.Nil(t, ledger.Wiring())
}

func TestDeploySystemCancellationBetweenSteps(t *testing.T) {
	h := newHarness(t, models.Sepolia)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sink.on = func(e usecase.ProgressEvent) {
		if e.Stage == usecase.StageDeployed && e.Contract == "Distribution" {
			cancel()
		}
	}

	_, err := h.deploySystem().Run(ctx, usecase.DeploySystemParams{Reset: true})
	assert.ErrorIs(t, err, context.Canceled)

	ledger := h.store.ledger(models.Sepolia)
	require.NotNil(t, ledger)
	assert.Equal(t, []string{"CofiCollection", "Distribution"}, ledger.Names())
}

func TestDeploySystemBuildsUnlessSkipped(t *testing.T) {
	h := newHarness(t, models.Devnet)
	h.cfg.SkipBuild = false
	h.builder.On("Build", mock.Anything, usecase.BuildOptions{Profile: "dev", Feature: "faucet"}).Return(nil)

	_, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true, Feature: "faucet"})
	require.NoError(t, err)
	h.builder.AssertExpectations(t)
	assert.Contains(t, h.sink.stages(), usecase.StageBuilt)
}

func TestDeploySystemBuildFailure(t *testing.T) {
	h := newHarness(t, models.Devnet)
	h.cfg.SkipBuild = false
	h.builder.On("Build", mock.Anything, mock.Anything).Return(errors.New("scarb: error[E0005]"))

	_, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true})
	assert.ErrorContains(t, err, "build failed")
	assert.Empty(t, h.chain.Ops())
}

func TestDeploySystemUnresolvedReference(t *testing.T) {
	h := newHarness(t, models.Sepolia)
	h.topology.Contracts[2].Networks = []models.Network{models.Devnet}

	_, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnresolvedReference)

	var stepErr *domain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "Marketplace", stepErr.Contract)
	assert.Equal(t, domain.StepResolve, stepErr.Step)

	assert.Empty(t, h.chain.Ops(), "nothing is deployed before references are checked")
	assert.Equal(t, 0, h.store.exports)
}

func TestDeploySystemWiringReferenceOutsideNetwork(t *testing.T) {
	h := newHarness(t, models.Sepolia)
	// Swap only exists on mainnet
	h.topology.Wiring = append(h.topology.Wiring, models.WiringCall{
		Target:     models.Ref("Marketplace"),
		Entrypoint: "upgrade",
		Args:       models.NamedArgs(models.Arg("new_class_hash", models.Ref("Swap"))),
	})

	_, err := h.deploySystem().Run(context.Background(), usecase.DeploySystemParams{Reset: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnresolvedReference)
	assert.ErrorContains(t, err, "@Swap")

	var stepErr *domain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, domain.StepWiring, stepErr.Step)

	assert.Empty(t, h.chain.Ops())
	assert.Equal(t, 0, h.store.exports)
}

func TestDeploySystemResumeResolvesLedgerReferences(t *testing.T) {
	h := newHarness(t, models.Sepolia)
	ctx := context.Background()

	_, err := h.deploySystem().Run(ctx, usecase.DeploySystemParams{Reset: true})
	require.NoError(t, err)
	opsBefore := len(h.chain.Ops())

	// a contract dropped from the topology stays reachable through its ledger record
	h.topology.Wiring = append(h.topology.Wiring, models.WiringCall{
		Target:     models.Ref("Distribution"),
		Entrypoint: "set_marketplace",
		Args:       models.NamedArgs(models.Arg("marketplace", models.Ref("MockUSDC"))),
	})
	h.topology.Contracts[2].Networks = []models.Network{models.Devnet}
	h.topology.Contracts[3].Args = models.NamedArgs(
		models.Arg("cofi_collection_address", models.Ref("CofiCollection")),
		models.Arg("distribution_address", models.Ref("Distribution")),
		models.Arg("usdc_address", models.Ref("MockUSDC")),
		models.Arg("admin", models.Ref(models.DeployerRef)),
		models.Arg("market_fee", models.Number(5000)),
	)

	result, err := h.deploySystem().Run(ctx, usecase.DeploySystemParams{Reset: false})
	require.NoError(t, err)
	assert.Empty(t, result.Deployed)
	require.NotNil(t, result.Wiring)
	assert.True(t, result.Wiring.Applied)
	assert.Len(t, h.chain.Ops(), opsBefore+1)
}
