package usecase

import (
	"fmt"
	"sort"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// DeployPlan is the dependency-ordered list of contracts for one run
type DeployPlan struct {
	Network  models.Network
	Feature  string
	Topology *models.Topology
	Steps    []*PlanStep
}

// PlanStep is a single contract of the plan
type PlanStep struct {
	Contract     models.ContractSpec
	Dependencies []string // contract names, for display
}

// Names returns the contract names in execution order
func (p *DeployPlan) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Contract.Name
	}
	return names
}

// NewDeployPlan orders the contracts of an already network-filtered topology
func NewDeployPlan(network models.Network, feature string, topo *models.Topology) (*DeployPlan, error) {
	steps, err := NewDependencyGraph(topo.Contracts).TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTopology, err)
	}
	return &DeployPlan{
		Network:  network,
		Feature:  feature,
		Topology: topo,
		Steps:    steps,
	}, nil
}

// CheckReferences verifies that every reference in constructor arguments and
// wiring calls names a contract of the plan or already resolves through book.
// It runs before any chain call so a misconfigured topology deploys nothing.
func (p *DeployPlan) CheckReferences(book *AddressBook) error {
	for _, step := range p.Steps {
		for _, ref := range step.Contract.Args.Refs() {
			if err := p.checkRef(book, ref); err != nil {
				return &domain.StepError{Contract: step.Contract.Name, Step: domain.StepResolve, Err: err}
			}
		}
	}
	for _, w := range p.Topology.Wiring {
		refs := w.Args.Refs()
		if w.Target.IsRef() {
			refs = append([]string{w.Target.Ref}, refs...)
		}
		for _, ref := range refs {
			if err := p.checkRef(book, ref); err != nil {
				return &domain.StepError{Step: domain.StepWiring, Err: fmt.Errorf("%s: %w", w.Entrypoint, err)}
			}
		}
	}
	return nil
}

func (p *DeployPlan) checkRef(book *AddressBook, ref string) error {
	if _, ok := p.Topology.Lookup(ref); ok {
		return nil
	}
	_, err := book.Address(ref)
	return err
}

// DependencyGraph represents the constructor-argument references between contracts
type DependencyGraph struct {
	contracts []models.ContractSpec
	deps      [][]int // index -> indexes it depends on
	edges     [][]int // index -> indexes depending on it
}

// NewDependencyGraph builds the graph. References to names outside contracts
// (externals, the deployer, earlier deployments) are not edges.
func NewDependencyGraph(contracts []models.ContractSpec) *DependencyGraph {
	g := &DependencyGraph{
		contracts: contracts,
		deps:      make([][]int, len(contracts)),
		edges:     make([][]int, len(contracts)),
	}

	index := make(map[string]int)
	for i, c := range contracts {
		for _, n := range c.Names() {
			index[n] = i
		}
	}

	for i, c := range contracts {
		seen := map[int]bool{}
		for _, ref := range c.Args.Refs() {
			dep, ok := index[ref]
			if !ok || seen[dep] {
				continue
			}
			seen[dep] = true
			g.deps[i] = append(g.deps[i], dep)
			g.edges[dep] = append(g.edges[dep], i)
		}
	}
	return g
}

// TopologicalSort returns the contracts in execution order. Among contracts
// that are ready at the same time, declaration order wins.
func (g *DependencyGraph) TopologicalSort() ([]*PlanStep, error) {
	inDegree := make([]int, len(g.contracts))
	for i := range g.contracts {
		inDegree[i] = len(g.deps[i])
	}

	var queue []int
	for i, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, i)
		}
	}

	var result []*PlanStep
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		step := &PlanStep{Contract: g.contracts[current]}
		for _, d := range g.deps[current] {
			step.Dependencies = append(step.Dependencies, g.contracts[d].Name)
		}
		result = append(result, step)

		for _, dependent := range g.edges[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Ints(queue)
			}
		}
	}

	if len(result) != len(g.contracts) {
		var cycle []string
		for i, degree := range inDegree {
			if degree > 0 {
				cycle = append(cycle, g.contracts[i].Name)
			}
		}
		return nil, fmt.Errorf("circular dependency detected involving contracts: %v", cycle)
	}
	return result, nil
}
