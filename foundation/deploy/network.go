package deploy

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DevelopmentChains are the networks that get price feed mocks deployed.
var DevelopmentChains = []string{"hardhat", "localhost"}

// IsDevelopment reports whether the named network is a development chain.
func IsDevelopment(name string) bool {
	return slices.Contains(DevelopmentChains, name)
}

// =============================================================================

// Network is the configuration of a single network.
type Network struct {
	Name               string `yaml:"-"`
	ChainID            uint16 `yaml:"chainId"`
	BlockConfirmations uint64 `yaml:"blockConfirmations"`
	EthUsdPriceFeed    string `yaml:"ethUsdPriceFeed"`
	URL                string `yaml:"url"`
}

// Confirmations returns the number of blocks to wait for after a deployment.
func (n Network) Confirmations() uint64 {
	if n.BlockConfirmations == 0 {
		return 1
	}
	return n.BlockConfirmations
}

// Networks is the content of the networks file.
type Networks struct {
	DefaultNetwork string             `yaml:"defaultNetwork"`
	Networks       map[string]Network `yaml:"networks"`
}

// LoadNetworks reads the networks file. Environment variables referenced in
// the file are expanded before it's parsed.
func LoadNetworks(path string) (Networks, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Networks{}, fmt.Errorf("reading networks: %w", err)
	}

	var nets Networks
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &nets); err != nil {
		return Networks{}, fmt.Errorf("decoding networks: %w", err)
	}

	if nets.DefaultNetwork == "" {
		nets.DefaultNetwork = "hardhat"
	}

	return nets, nil
}

// Network returns the named network. An empty name returns the default.
func (n Networks) Network(name string) (Network, error) {
	if name == "" {
		name = n.DefaultNetwork
	}

	net, exists := n.Networks[name]
	if !exists {
		return Network{}, fmt.Errorf("network %q is not configured", name)
	}
	net.Name = name

	if !IsDevelopment(name) && net.EthUsdPriceFeed == "" {
		return Network{}, fmt.Errorf("network %q has no ethUsdPriceFeed", name)
	}

	return net, nil
}
