// Package common provides shared utilities across the application.
package common

import (
	"sort"
	"strings"
)

// AssetSymbols maps canonical asset identifiers to EODHD API symbols
// (CODE.EXCHANGE format). Assets without a mapping can be detected but not
// verified against market data; they fall through to the unanalyzed bucket.
var AssetSymbols = map[string]string{
	// Indices
	"KOSPI":  "KS11.INDX",
	"NASDAQ": "IXIC.INDX",
	"SP500":  "GSPC.INDX",

	// US equities
	"Tesla":     "TSLA.US",
	"Nvidia":    "NVDA.US",
	"Apple":     "AAPL.US",
	"Google":    "GOOGL.US",
	"Microsoft": "MSFT.US",
	"Amazon":    "AMZN.US",
	"Meta":      "META.US",

	// Korean equities
	"Samsung": "005930.KO",
	"SKHynix": "000660.KO",
	"Hyundai": "005380.KO",

	// Crypto
	"Bitcoin":  "BTC-USD.CC",
	"Ethereum": "ETH-USD.CC",

	// Commodities / FX
	"Gold":   "XAUUSD.FOREX",
	"Dollar": "USDKRW.FOREX",
}

// SymbolFor resolves the market-data symbol for a canonical asset.
func SymbolFor(asset string) (string, bool) {
	symbol, ok := AssetSymbols[asset]
	return symbol, ok
}

// KnownAssets returns the canonical asset identifiers in stable order.
func KnownAssets() []string {
	assets := make([]string, 0, len(AssetSymbols))
	for asset := range AssetSymbols {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// NormalizeAsset canonicalizes user-supplied asset names (override files,
// legacy imports) to the identifier casing used everywhere else.
func NormalizeAsset(asset string) string {
	asset = strings.TrimSpace(asset)
	for known := range AssetSymbols {
		if strings.EqualFold(known, asset) {
			return known
		}
	}
	return asset
}
