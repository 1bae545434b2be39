package usecase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/cofi-market/cofi-deploy/internal/adapters/simulated"
	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/cairo"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/stretchr/testify/mock"
)

const (
	addressType   = "core::starknet::contract_address::ContractAddress"
	classHashType = "core::starknet::class_hash::ClassHash"
)

var (
	testDeployer = models.MustParseFelt("0x64b48806902a367c8598f4f95c305e8c1a1acba5f082d294a43793113115691")
	mainnetUSDC  = "0x033068f6539f8e6e6b131e6b2b814e6c34a5224bc66947c47dab9dfee93b35fb"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// abiJSON builds a minimal Sierra ABI: a constructor over addresses plus functions
func abiJSON(ctorInputs []string, functions map[string][2]string) []byte {
	items := ""
	inputs := ""
	for i, name := range ctorInputs {
		if i > 0 {
			inputs += ","
		}
		typ := addressType
		if name == "market_fee" {
			typ = "core::integer::u256"
		}
		inputs += fmt.Sprintf(`{"name":%q,"type":%q}`, name, typ)
	}
	items += fmt.Sprintf(`{"type":"constructor","name":"constructor","inputs":[%s]}`, inputs)
	for fn, param := range functions {
		items += fmt.Sprintf(`,{"type":"function","name":%q,"inputs":[{"name":%q,"type":%q}],"outputs":[],"state_mutability":"external"}`,
			fn, param[0], param[1])
	}
	return []byte("[" + items + "]")
}

var upgradeFn = [2]string{"new_class_hash", classHashType}

func testArtifacts() map[string]*models.Artifact {
	return map[string]*models.Artifact{
		"CofiCollection": {
			Name: "CofiCollection",
			ABI: abiJSON([]string{"default_admin", "pauser", "minter", "uri_setter", "upgrader"}, map[string][2]string{
				"set_minter":   {"minter", addressType},
				"set_base_uri": {"base_uri", "core::byte_array::ByteArray"},
			}),
			SierraProgram: []byte(`["0xc0", "0x1"]`),
		},
		"Distribution": {
			Name: "Distribution",
			ABI: abiJSON([]string{"admin"}, map[string][2]string{
				"set_marketplace": {"marketplace", addressType},
				"upgrade":         upgradeFn,
			}),
			SierraProgram: []byte(`["0xd1", "0x1"]`),
		},
		"MockUSDC": {
			Name:          "MockUSDC",
			ABI:           abiJSON([]string{"default_admin", "minter", "upgrader"}, nil),
			SierraProgram: []byte(`["0x05dc", "0x1"]`),
		},
		"Marketplace": {
			Name: "Marketplace",
			ABI: abiJSON([]string{"cofi_collection_address", "distribution_address", "usdc_address", "admin", "market_fee"},
				map[string][2]string{"upgrade": upgradeFn}),
			SierraProgram: []byte(`["0x3a", "0x1"]`),
		},
		"Swap": {
			Name:          "Swap",
			ABI:           abiJSON([]string{"admin"}, map[string][2]string{"upgrade": upgradeFn}),
			SierraProgram: []byte(`["0x5a", "0x1"]`),
		},
	}
}

func testTopology() *models.Topology {
	deployer := models.Ref(models.DeployerRef)
	return &models.Topology{
		Name: "cofi",
		Contracts: []models.ContractSpec{
			{
				Name: "CofiCollection",
				Args: models.NamedArgs(
					models.Arg("default_admin", deployer),
					models.Arg("pauser", deployer),
					models.Arg("minter", deployer),
					models.Arg("uri_setter", deployer),
					models.Arg("upgrader", deployer),
				),
			},
			{
				Name:        "Distribution",
				Upgradeable: true,
				Args:        models.NamedArgs(models.Arg("admin", deployer)),
			},
			{
				Name:     "MockUSDC",
				Alias:    "USDC",
				Networks: []models.Network{models.Devnet, models.Sepolia},
				Args: models.NamedArgs(
					models.Arg("default_admin", deployer),
					models.Arg("minter", deployer),
					models.Arg("upgrader", deployer),
				),
			},
			{
				Name:        "Marketplace",
				Upgradeable: true,
				Args: models.NamedArgs(
					models.Arg("cofi_collection_address", models.Ref("CofiCollection")),
					models.Arg("distribution_address", models.Ref("Distribution")),
					models.Arg("usdc_address", models.Ref("USDC")),
					models.Arg("admin", deployer),
					models.Arg("market_fee", models.Number(5000)),
				),
			},
			{
				Name:        "Swap",
				Upgradeable: true,
				Networks:    []models.Network{models.Mainnet},
				Args:        models.NamedArgs(models.Arg("admin", deployer)),
			},
		},
		Externals: map[string]map[models.Network]string{
			"USDC": {models.Mainnet: mainnetUSDC},
		},
		Wiring: []models.WiringCall{
			{Target: models.Ref("CofiCollection"), Entrypoint: "set_minter",
				Args: models.NamedArgs(models.Arg("minter", models.Ref("Marketplace")))},
			{Target: models.Ref("CofiCollection"), Entrypoint: "set_base_uri",
				Args: models.NamedArgs(models.Arg("base_uri", models.Literal("https://cofi.example/meta/")))},
			{Target: models.Ref("Distribution"), Entrypoint: "set_marketplace",
				Args: models.NamedArgs(models.Arg("marketplace", models.Ref("Marketplace")))},
		},
	}
}

type staticTopology struct {
	topo *models.Topology
}

func (s staticTopology) Load(ctx context.Context) (*models.Topology, error) {
	return s.topo, nil
}

// fakeResolver serves in-memory artifacts; ClassHashOf is the real fingerprint
type fakeResolver struct {
	artifacts map[string]*models.Artifact
}

func (f *fakeResolver) Resolve(ctx context.Context, spec models.ContractSpec) (*models.Artifact, error) {
	a, ok := f.artifacts[spec.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, spec.Name)
	}
	return a, nil
}

func (f *fakeResolver) ClassHashOf(artifact *models.Artifact) (models.Felt, error) {
	return cairo.Fingerprint(artifact)
}

// memLedgerStore keeps exported ledgers in memory
type memLedgerStore struct {
	mu      sync.Mutex
	saved   map[models.Network]*models.Ledger
	exports int
}

func newMemLedgerStore() *memLedgerStore {
	return &memLedgerStore{saved: make(map[models.Network]*models.Ledger)}
}

func (m *memLedgerStore) Load(ctx context.Context, network models.Network, reset bool) (*models.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.saved[network]
	if reset || !ok {
		return models.NewLedger(network), nil
	}
	return l.Clone(), nil
}

func (m *memLedgerStore) Export(ctx context.Context, ledger *models.Ledger) (*models.ExportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ledger.MarkClean()
	m.saved[ledger.Network] = ledger.Clone()
	m.exports++
	return &models.ExportResult{LatestPath: fmt.Sprintf("mem://%s_latest.json", ledger.Network)}, nil
}

func (m *memLedgerStore) ledger(network models.Network) *models.Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[network]
}

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) Build(ctx context.Context, opts usecase.BuildOptions) error {
	return m.Called(ctx, opts).Error(0)
}

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

// recordingSink keeps every progress event and can react to them
type recordingSink struct {
	events []usecase.ProgressEvent
	on     func(usecase.ProgressEvent)
}

func (r *recordingSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.events = append(r.events, event)
	if r.on != nil {
		r.on(event)
	}
}

func (r *recordingSink) Info(message string)  {}
func (r *recordingSink) Error(message string) {}

func (r *recordingSink) stages() []string {
	var out []string
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}

// harness wires both orchestrator use cases to one simulated chain and store
type harness struct {
	cfg       *config.RuntimeConfig
	chain     *simulated.Gateway
	store     *memLedgerStore
	resolver  *fakeResolver
	builder   *mockBuilder
	confirmer *mockConfirmer
	sink      *recordingSink
	topology  *models.Topology
}

func newHarness(t *testing.T, network models.Network) *harness {
	t.Helper()
	return &harness{
		cfg: &config.RuntimeConfig{
			ProjectRoot: t.TempDir(),
			Network: &config.Network{
				Name:            network,
				DeployerAddress: testDeployer,
			},
			Project:   config.ProjectConfig{Profile: "dev"},
			SkipBuild: true,
		},
		chain:     simulated.New(testDeployer, "", discardLogger()),
		store:     newMemLedgerStore(),
		resolver:  &fakeResolver{artifacts: testArtifacts()},
		builder:   new(mockBuilder),
		confirmer: new(mockConfirmer),
		sink:      &recordingSink{},
		topology:  testTopology(),
	}
}

func (h *harness) deploySystem() *usecase.DeploySystem {
	return usecase.NewDeploySystem(h.cfg, staticTopology{h.topology}, h.builder, h.resolver,
		h.chain, h.store, h.confirmer, h.sink, discardLogger())
}

func (h *harness) upgradeSystem() *usecase.UpgradeSystem {
	return usecase.NewUpgradeSystem(h.cfg, staticTopology{h.topology}, h.builder, h.resolver,
		h.chain, h.store, h.confirmer, h.sink, discardLogger())
}

func (h *harness) opKinds() []simulated.OpKind {
	var out []simulated.OpKind
	for _, op := range h.chain.Ops() {
		out = append(out, op.Kind)
	}
	return out
}
