package eth

import (
	"testing"
)

func TestLookupChain(t *testing.T) {
	tests := map[string]struct {
		name           string
		enableTestnets bool
		chainId        int64
		expectErr      bool
	}{
		"sepolia":                {name: "sepolia", chainId: 11155111},
		"case insensitive":       {name: "Mainnet", chainId: 1},
		"zora":                   {name: "zora", chainId: 7777777},
		"localhost with testnet": {name: "localhost", enableTestnets: true, chainId: 31337},
		"localhost disabled":     {name: "localhost", expectErr: true},
		"unknown":                {name: "goerli", expectErr: true},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			chain, err := LookupChain(test.name, test.enableTestnets)
			if test.expectErr {
				if err == nil {
					t.Errorf("expected an error, got %+v", chain)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if chain.ChainId != test.chainId {
				t.Errorf("expected chain id %d, got %d", test.chainId, chain.ChainId)
			}
		})
	}
}

func TestParseEther(t *testing.T) {
	tests := map[string]struct {
		amount    string
		wei       string
		expectErr bool
	}{
		"fraction":         {amount: "0.1", wei: "100000000000000000"},
		"whole":            {amount: "2", wei: "2000000000000000000"},
		"zero":             {amount: "0", wei: "0"},
		"smallest unit":    {amount: "0.000000000000000001", wei: "1"},
		"padded":           {amount: " 0.5 ", wei: "500000000000000000"},
		"too many decimal": {amount: "0.0000000000000000001", expectErr: true},
		"negative":         {amount: "-1", expectErr: true},
		"garbage":          {amount: "ten", expectErr: true},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			wei, err := ParseEther(test.amount)
			if test.expectErr {
				if err == nil {
					t.Errorf("expected an error, got %s", wei)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wei.String() != test.wei {
				t.Errorf("expected %s wei, got %s", test.wei, wei)
			}
		})
	}
}

func TestChainNames(t *testing.T) {
	names := ChainNames()
	if len(names) != 8 || names[0] != "arbitrum" || names[len(names)-1] != "zora" {
		t.Errorf("unexpected chain names: %v", names)
	}
}
