// Package assets holds the registry of known assets and their chain
// bindings. The registry is constructed explicitly and injected wherever
// asset metadata is needed.
package assets

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind distinguishes native coins from contract tokens.
type Kind string

const (
	Native Kind = "native"
	ERC20  Kind = "erc20"
)

// Asset describes one tradable asset.
type Asset struct {
	Code     string
	Name     string
	Chain    string
	Kind     Kind
	Decimals int32
	// ContractAddress is set for contract tokens only.
	ContractAddress string
	// MatchingAsset names the same canonical asset on other chains, used by
	// cross-chain routes (e.g. USDC on ethereum vs polygon).
	MatchingAsset string
}

// IsERC20 reports whether the asset is a contract token.
func (a Asset) IsERC20() bool { return a.Kind == ERC20 }

// Registry maps asset codes to their metadata.
type Registry struct {
	assets map[string]Asset
}

// NewRegistry builds a registry from the given assets. Duplicate codes and
// missing fields fail construction.
func NewRegistry(list []Asset) (*Registry, error) {
	assets := make(map[string]Asset, len(list))
	for _, a := range list {
		if a.Code == "" || a.Chain == "" {
			return nil, fmt.Errorf("asset %q: missing code or chain", a.Code)
		}
		if a.Decimals <= 0 {
			return nil, fmt.Errorf("asset %s: missing decimals", a.Code)
		}
		if a.Kind == ERC20 && a.ContractAddress == "" {
			return nil, fmt.Errorf("asset %s: erc20 without contract address", a.Code)
		}
		if _, dup := assets[a.Code]; dup {
			return nil, fmt.Errorf("asset %s: duplicate code", a.Code)
		}
		assets[a.Code] = a
	}
	return &Registry{assets: assets}, nil
}

// All returns every registered asset in unspecified order.
func (r *Registry) All() []Asset {
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a)
	}
	return out
}

// Get resolves an asset by code.
func (r *Registry) Get(code string) (Asset, error) {
	a, ok := r.assets[code]
	if !ok {
		return Asset{}, fmt.Errorf("unknown asset %q", code)
	}
	return a, nil
}

// Has reports whether the code is registered.
func (r *Registry) Has(code string) bool {
	_, ok := r.assets[code]
	return ok
}

// Chain returns the chain an asset lives on.
func (r *Registry) Chain(code string) (string, error) {
	a, err := r.Get(code)
	if err != nil {
		return "", err
	}
	return a.Chain, nil
}

// NativeAsset returns the native asset of a chain.
func (r *Registry) NativeAsset(chain string) (Asset, error) {
	for _, a := range r.assets {
		if a.Chain == chain && a.Kind == Native {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("no native asset for chain %q", chain)
}

// MatchingOnChain finds the asset matching the given one on another chain,
// via the MatchingAsset link in either direction.
func (r *Registry) MatchingOnChain(code, chain string) (Asset, error) {
	src, err := r.Get(code)
	if err != nil {
		return Asset{}, err
	}
	for _, a := range r.assets {
		if a.Chain != chain {
			continue
		}
		if a.MatchingAsset == src.Code || (src.MatchingAsset != "" && src.MatchingAsset == a.Code) ||
			(src.MatchingAsset != "" && src.MatchingAsset == a.MatchingAsset) {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("no asset matching %s on chain %q", code, chain)
}

// CurrencyToUnit converts a currency-unit amount to smallest units,
// truncating sub-unit dust.
func (r *Registry) CurrencyToUnit(code string, amount decimal.Decimal) (decimal.Decimal, error) {
	a, err := r.Get(code)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Shift(a.Decimals).Truncate(0), nil
}

// UnitToCurrency converts a smallest-unit amount to currency units.
func (r *Registry) UnitToCurrency(code string, amount decimal.Decimal) (decimal.Decimal, error) {
	a, err := r.Get(code)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Shift(-a.Decimals), nil
}
