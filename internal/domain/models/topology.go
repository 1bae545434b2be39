package models

import (
	"fmt"
	"slices"
)

// ContractSpec describes one contract of the system
type ContractSpec struct {
	Name        string    `yaml:"name"`
	Package     string    `yaml:"package,omitempty"`
	Alias       string    `yaml:"alias,omitempty"`
	Args        Args      `yaml:"args,omitempty"`
	Networks    []Network `yaml:"networks,omitempty"`
	Features    []string  `yaml:"features,omitempty"`
	Upgradeable bool      `yaml:"upgradeable,omitempty"`
}

// ActiveOn reports whether the contract belongs to the topology for network and feature.
// Empty network or feature lists mean "all".
func (c ContractSpec) ActiveOn(network Network, feature string) bool {
	if len(c.Networks) > 0 && !slices.Contains(c.Networks, network) {
		return false
	}
	if len(c.Features) > 0 && !slices.Contains(c.Features, feature) {
		return false
	}
	return true
}

// Names returns the contract name and its alias, if any
func (c ContractSpec) Names() []string {
	if c.Alias == "" || c.Alias == c.Name {
		return []string{c.Name}
	}
	return []string{c.Name, c.Alias}
}

// WiringCall is a post-deployment call batched into the wiring multicall
type WiringCall struct {
	Target     Value  `yaml:"target"`
	Entrypoint string `yaml:"entrypoint"`
	Args       Args   `yaml:"args,omitempty"`
}

// Topology is the full contract system across networks
type Topology struct {
	Name      string                        `yaml:"name"`
	Contracts []ContractSpec                `yaml:"contracts"`
	Externals map[string]map[Network]string `yaml:"externals,omitempty"`
	Wiring    []WiringCall                  `yaml:"wiring,omitempty"`
}

// Lookup finds a contract by name or alias
func (t *Topology) Lookup(name string) (ContractSpec, bool) {
	for _, c := range t.Contracts {
		if c.Name == name || (c.Alias != "" && c.Alias == name) {
			return c, true
		}
	}
	return ContractSpec{}, false
}

// External returns the fixed address of an external contract on network
func (t *Topology) External(name string, network Network) (Felt, bool, error) {
	perNet, ok := t.Externals[name]
	if !ok {
		return Felt{}, false, nil
	}
	raw, ok := perNet[network]
	if !ok {
		return Felt{}, false, nil
	}
	f, err := ParseFelt(raw)
	if err != nil {
		return Felt{}, false, fmt.Errorf("external %s on %s: %w", name, network, err)
	}
	return f, true, nil
}

// ForNetwork returns the ordered subset of contracts active on network for feature,
// and the wiring calls whose target is in that subset.
func (t *Topology) ForNetwork(network Network, feature string) *Topology {
	out := &Topology{Name: t.Name, Externals: t.Externals}
	active := map[string]bool{}
	for _, c := range t.Contracts {
		if c.ActiveOn(network, feature) {
			out.Contracts = append(out.Contracts, c)
			for _, n := range c.Names() {
				active[n] = true
			}
		}
	}
	for _, w := range t.Wiring {
		if w.Target.IsRef() && !active[w.Target.Ref] {
			continue
		}
		out.Wiring = append(out.Wiring, w)
	}
	return out
}

// Upgradeable returns the upgradeable contracts in declaration order
func (t *Topology) Upgradeable() []ContractSpec {
	var out []ContractSpec
	for _, c := range t.Contracts {
		if c.Upgradeable {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks names are unique and every reference names a contract,
// an external or the deployer. An external may share a name with a contract
// that is only active on other networks. Cycles are detected when ordering.
func (t *Topology) Validate() error {
	if len(t.Contracts) == 0 {
		return fmt.Errorf("topology %q has no contracts", t.Name)
	}
	known := map[string]string{DeployerRef: "deployer"}
	for _, c := range t.Contracts {
		if c.Name == "" {
			return fmt.Errorf("contract without a name")
		}
		for _, n := range c.Names() {
			if prev, dup := known[n]; dup {
				return fmt.Errorf("name %q of contract %s already used by %s", n, c.Name, prev)
			}
			known[n] = c.Name
		}
		for _, net := range c.Networks {
			if !slices.Contains(Networks(), net) {
				return fmt.Errorf("contract %s: unknown network %q", c.Name, net)
			}
		}
	}
	for name, perNet := range t.Externals {
		for net, addr := range perNet {
			if _, err := ParseFelt(addr); err != nil {
				return fmt.Errorf("external %s on %s: %w", name, net, err)
			}
		}
		if _, ok := known[name]; !ok {
			known[name] = "external"
		}
	}
	for _, c := range t.Contracts {
		for _, ref := range c.Args.Refs() {
			if _, ok := known[ref]; !ok {
				return fmt.Errorf("contract %s references unknown name %q", c.Name, ref)
			}
			if ref == c.Name || ref == c.Alias {
				return fmt.Errorf("contract %s references itself", c.Name)
			}
		}
	}
	for i, w := range t.Wiring {
		if w.Entrypoint == "" {
			return fmt.Errorf("wiring call %d has no entrypoint", i)
		}
		refs := w.Args.Refs()
		if w.Target.IsRef() {
			refs = append(refs, w.Target.Ref)
		}
		for _, ref := range refs {
			if _, ok := known[ref]; !ok {
				return fmt.Errorf("wiring call %s references unknown name %q", w.Entrypoint, ref)
			}
		}
	}
	return nil
}
