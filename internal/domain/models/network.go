package models

// Network is one of the supported deployment targets
type Network string

const (
	Devnet  Network = "devnet"
	Sepolia Network = "sepolia"
	Mainnet Network = "mainnet"
)

// Networks returns all supported networks in display order
func Networks() []Network {
	return []Network{Devnet, Sepolia, Mainnet}
}

func (n Network) String() string {
	return string(n)
}

// IsProduction reports whether deploys on this network need an operator confirmation
func (n Network) IsProduction() bool {
	return n == Mainnet
}
