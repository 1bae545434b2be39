package usecase

import (
	"context"

	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// ArtifactResolver locates compiled contract classes
type ArtifactResolver interface {
	Resolve(ctx context.Context, contract models.ContractSpec) (*models.Artifact, error)
	ClassHashOf(artifact *models.Artifact) (models.Felt, error)
}

// BuildOptions selects what the compiler builds
type BuildOptions struct {
	Profile string
	Feature string
}

// ArtifactBuilder compiles the Cairo project
type ArtifactBuilder interface {
	Build(ctx context.Context, opts BuildOptions) error
}

// ChainGateway submits transactions and waits for them.
// Every method blocks until the chain answers; callers decide cancellation.
type ChainGateway interface {
	Declare(ctx context.Context, artifact *models.Artifact) (*models.DeclaredClass, error)
	Deploy(ctx context.Context, class *models.DeclaredClass, args models.Args) (*models.DeployResult, error)
	InvokeBatch(ctx context.Context, calls []models.Call) (models.Felt, error)
	WaitForConfirmation(ctx context.Context, txHash models.Felt) (*models.Receipt, error)
}

// ChainInspector reads chain state without submitting transactions
type ChainInspector interface {
	ChainID(ctx context.Context) (string, error)
	ClassHashAt(ctx context.Context, address models.Felt) (models.Felt, error)
}

// LedgerStore persists per-network ledgers
type LedgerStore interface {
	Load(ctx context.Context, network models.Network, reset bool) (*models.Ledger, error)
	Export(ctx context.Context, ledger *models.Ledger) (*models.ExportResult, error)
}

// TopologySource provides the contract system description
type TopologySource interface {
	Load(ctx context.Context) (*models.Topology, error)
}

// Confirmer asks the operator before irreversible actions
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Contract string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// Progress stages emitted by the orchestrator
const (
	StagePlanCreated     = "plan_created"
	StageBuilding        = "building"
	StageBuilt           = "built"
	StageContractSkipped = "contract_skipped"
	StageDeclaring       = "declaring"
	StageDeclared        = "declared"
	StageDeploying       = "deploying"
	StageDeployed        = "deployed"
	StageUpgrading       = "upgrading"
	StageUpgraded        = "upgraded"
	StageUpgradeSkipped  = "upgrade_skipped"
	StageWaiting         = "waiting"
	StageWiring          = "wiring"
	StageWiringApplied   = "wiring_applied"
	StageWiringSkipped   = "wiring_skipped"
	StageExported        = "exported"
	StageFailed          = "failed"

	StageLoading  = "loading"
	StageChecking = "checking"
	StageComplete = "complete"
)

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
