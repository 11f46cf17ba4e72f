package model

// TokenMeta captures the ERC20 fields needed to normalise exposure.
type TokenMeta struct {
	Address  Address `json:"address"`
	Decimals uint8   `json:"decimals"`
	Symbol   string  `json:"symbol,omitempty"`
}

// PoolTokens is the token pair of the incentivised pool.
type PoolTokens struct {
	Pool   Address   `json:"pool"`
	Token0 TokenMeta `json:"token0"`
	Token1 TokenMeta `json:"token1"`
}
