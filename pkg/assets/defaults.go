package assets

// DefaultAssets is the built-in mainnet asset set. Deployments can extend or
// replace it through configuration.
func DefaultAssets() []Asset {
	return []Asset{
		{Code: "ETH", Name: "Ether", Chain: "ethereum", Kind: Native, Decimals: 18, MatchingAsset: "AETH"},
		{Code: "DAI", Name: "Dai", Chain: "ethereum", Kind: ERC20, Decimals: 18,
			ContractAddress: "0x6B175474E89094C44Da98b954EedeAC495271d0F"},
		{Code: "USDC", Name: "USD Coin", Chain: "ethereum", Kind: ERC20, Decimals: 6,
			ContractAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", MatchingAsset: "USDC.e"},
		{Code: "MATIC", Name: "Polygon", Chain: "polygon", Kind: Native, Decimals: 18},
		{Code: "USDC.e", Name: "Bridged USD Coin", Chain: "polygon", Kind: ERC20, Decimals: 6,
			ContractAddress: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", MatchingAsset: "USDC"},
		{Code: "AETH", Name: "Arbitrum Ether", Chain: "arbitrum", Kind: Native, Decimals: 18, MatchingAsset: "ETH"},
		{Code: "ARBDAI", Name: "Arbitrum Dai", Chain: "arbitrum", Kind: ERC20, Decimals: 18,
			ContractAddress: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", MatchingAsset: "DAI"},
		{Code: "SOL", Name: "Solana", Chain: "solana", Kind: Native, Decimals: 9},
	}
}
