/*
This file contains the decimals of commonly pooled tokens, keyed by symbol.

Deployment files may omit a token's decimals. The loader then looks the symbol up here.
If a token doesnt have an entry here its decimals must be set in the deployment file.

*/

package config

import "strings"

var (
	KnownTokenDecimals = map[string]int{
		"WETH":   18,
		"DAI":    18,
		"USDC":   6,
		"USDT":   6,
		"WBTC":   8,
		"BAL":    18,
		"LINK":   18,
		"AAVE":   18,
		"UNI":    18,
		"MKR":    18,
		"WSTETH": 18,
		"RETH":   18,
		"GNO":    18,
		"PAXG":   18,
		"GUSD":   2,

		"WRAPPED BITCOIN":  8,  // Testnet display names
		"WRAPPED ETHEREUM": 18, // Testnet display names
	}
)

// LookupTokenDecimals returns the decimals registered for a symbol (case insensitive).
func LookupTokenDecimals(symbol string) (int, bool) {
	decimals, ok := KnownTokenDecimals[strings.ToUpper(strings.TrimSpace(symbol))]
	return decimals, ok
}
