// Package model defines the domain types shared by the toolkit packages.
package model

import "strings"

// Network identifies the Bitcoin network an address or key is bound to.
type Network string

var (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
	Signet  Network = "signet"
)

// ParseNetwork normalizes the aliases accepted on the command line.
func ParseNetwork(s string) (Network, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "main", "mainnet", "bitcoin":
		return Mainnet, true
	case "test", "testnet", "testnet3":
		return Testnet, true
	case "regtest":
		return Regtest, true
	case "signet":
		return Signet, true
	default:
		return "", false
	}
}
