package eth

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/params"

	"github.com/ceramicnetwork/go-mint/models"
)

var chains = map[string]models.Chain{
	"mainnet":   {Name: "mainnet", ChainId: 1},
	"sepolia":   {Name: "sepolia", ChainId: 11155111, Testnet: true},
	"polygon":   {Name: "polygon", ChainId: 137},
	"optimism":  {Name: "optimism", ChainId: 10},
	"arbitrum":  {Name: "arbitrum", ChainId: 42161},
	"base":      {Name: "base", ChainId: 8453},
	"zora":      {Name: "zora", ChainId: 7777777},
	"localhost": {Name: "localhost", ChainId: 31337, Testnet: true},
}

// LookupChain resolves a chain by name. The local development chain is only available when testnets are enabled.
func LookupChain(name string, enableTestnets bool) (models.Chain, error) {
	chain, found := chains[strings.ToLower(name)]
	if !found {
		return models.Chain{}, fmt.Errorf("unknown chain %q, expected one of %s", name, strings.Join(ChainNames(), ", "))
	}
	if chain.Name == "localhost" && !enableTestnets {
		return models.Chain{}, fmt.Errorf("chain %q requires testnets to be enabled", name)
	}
	return chain, nil
}

func ChainNames() []string {
	names := make([]string, 0, len(chains))
	for name := range chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseEther converts a decimal ether amount (e.g. "0.1") into wei. Amounts that don't resolve to a whole number of wei
// are rejected rather than rounded.
func ParseEther(amount string) (*big.Int, error) {
	value, ok := new(big.Rat).SetString(strings.TrimSpace(amount))
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", amount)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative ether amount %q", amount)
	}
	value.Mul(value, new(big.Rat).SetInt(big.NewInt(params.Ether)))
	if !value.IsInt() {
		return nil, fmt.Errorf("ether amount %q has more than 18 decimals", amount)
	}
	return new(big.Int).Set(value.Num()), nil
}
