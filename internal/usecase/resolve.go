package usecase

import (
	"fmt"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// AddressBook binds reference names to addresses for one network.
// Lookup order: the deployer, contracts of the active topology (by name or
// alias) registered in the ledger, ledger records by name, then externals.
type AddressBook struct {
	network  models.Network
	deployer models.Felt
	topology *models.Topology
	ledger   *models.Ledger
}

// NewAddressBook creates an address book over the active topology and the ledger.
// Registrations made on the ledger during the run are visible immediately.
func NewAddressBook(network models.Network, deployer models.Felt, topo *models.Topology, ledger *models.Ledger) *AddressBook {
	return &AddressBook{
		network:  network,
		deployer: deployer,
		topology: topo,
		ledger:   ledger,
	}
}

// Address resolves a reference name
func (b *AddressBook) Address(name string) (models.Felt, error) {
	if name == models.DeployerRef {
		if b.deployer.IsZero() {
			return models.Felt{}, fmt.Errorf("%w: @%s has no configured address", domain.ErrUnresolvedReference, name)
		}
		return b.deployer, nil
	}

	if spec, ok := b.topology.Lookup(name); ok {
		if rec, ok := b.ledger.Get(spec.Name); ok {
			return rec.Address, nil
		}
	}
	if rec, ok := b.ledger.Get(name); ok {
		return rec.Address, nil
	}

	addr, ok, err := b.topology.External(name, b.network)
	if err != nil {
		return models.Felt{}, err
	}
	if ok {
		return addr, nil
	}
	return models.Felt{}, fmt.Errorf("%w: @%s has no address on %s", domain.ErrUnresolvedReference, name, b.network)
}

// Contract returns the contract name a reference points to, if it is a contract of the topology
func (b *AddressBook) Contract(name string) (string, bool) {
	if spec, ok := b.topology.Lookup(name); ok {
		return spec.Name, true
	}
	if b.ledger.Has(name) {
		return name, true
	}
	return "", false
}

// ResolveValue replaces a reference with the hex address it names
func (b *AddressBook) ResolveValue(v models.Value) (models.Value, error) {
	if !v.IsRef() {
		return v, nil
	}
	addr, err := b.Address(v.Ref)
	if err != nil {
		return models.Value{}, err
	}
	return models.FeltValue(addr), nil
}

// ResolveArgs binds every reference in args
func (b *AddressBook) ResolveArgs(args models.Args) (models.Args, error) {
	return args.Map(b.ResolveValue)
}
