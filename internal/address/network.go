// Package address converts between output scripts and address strings.
package address

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// Params returns the chain parameters of a network. Command line aliases
// such as "bitcoin" or "testnet3" are accepted.
func Params(network model.Network) (*chaincfg.Params, error) {
	n, ok := model.ParseNetwork(string(network))
	if !ok {
		return nil, fmt.Errorf("unsupported network %q", network)
	}
	switch n {
	case model.Mainnet:
		return &chaincfg.MainNetParams, nil
	case model.Testnet:
		return &chaincfg.TestNet3Params, nil
	case model.Regtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return &chaincfg.SigNetParams, nil
	}
}

// networkOf maps chain parameters back to the network name.
func networkOf(params *chaincfg.Params) model.Network {
	switch params.Net {
	case chaincfg.MainNetParams.Net:
		return model.Mainnet
	case chaincfg.TestNet3Params.Net:
		return model.Testnet
	case chaincfg.RegressionNetParams.Net:
		return model.Regtest
	default:
		return model.Signet
	}
}
