package features

import "github.com/etherlens/etherlens/internal/chain"

// knownProtocols maps well-known mainnet router and protocol addresses to
// display names. Transfers touching these addresses count as DEX activity.
var knownProtocols = map[chain.Address]string{
	chain.MustParseAddress("0x7a250d5630b4cf539739df2c5dacb4c659f2488d"): "Uniswap V2: Router",
	chain.MustParseAddress("0x68b3465833fb72a70ecdf485e0e4c7bd8665fc45"): "Uniswap V3: Router",
	chain.MustParseAddress("0x811beed0119b4afce20d2583eb608c6f7af1954f"): "Uniswap V2: SHIB-WETH",
	chain.MustParseAddress("0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f"): "SushiSwap: Router",
	chain.MustParseAddress("0x24d3dd4a62e29770cf98810b09f89d3a90279e7a"): "SushiSwap: SHIB-WETH",
	chain.MustParseAddress("0x03f7724180aa6b939894b5ca4314783b0b36b329"): "ShibaSwap: Router",
	chain.MustParseAddress("0x1111111254fb6c44bac0bed2854e76f90643097d"): "1inch Router",
	chain.MustParseAddress("0x7d2768de32b0b80b7a3454c06bdac94a69ddc7a9"): "Aave: Lending Pool",
	chain.MustParseAddress("0x3d9819210a31b4961b30ef54be2aed79b9c9cd3b"): "Compound Comptroller",
	chain.MustParseAddress("0x7b39917f9562c8bc83c7a6c2950ff571375d505d"): "Bone: ShibaSwap Token",
	chain.MustParseAddress("0x8faf958e36c6970497386118030e6297fff8d275"): "Leash: ShibaSwap Token",
}

// lpLockers are liquidity-locker contracts. A transaction into one of these
// is treated as evidence that LP tokens were locked.
var lpLockers = map[chain.Address]string{
	chain.MustParseAddress("0x663a5c229c09b049e36dcc11a9b0d4a8eb9db214"): "Unicrypt",
	chain.MustParseAddress("0x7ee058420e5937496f5a2096f04caa7721cf70cc"): "Team Finance",
	chain.MustParseAddress("0x70c1d0a424ee6d05c1c87ad1b36b1b0946d64e05"): "PinkLock",
}

// mintSelectors are 4-byte function selectors whose presence in deployed
// bytecode indicates retained mint privileges: mint(address,uint256),
// mint(uint256), mint().
var mintSelectors = [][]byte{
	{0x40, 0xc1, 0x0f, 0x19},
	{0xa0, 0x71, 0x2d, 0x68},
	{0x6a, 0x62, 0x78, 0x42},
}

// honeypotSelectors are bytecode patterns associated with transfer-blocking
// scams: multiSend-style delegated selfdestruct and getBalance gating. Any
// match flags the contract; the signal is weighted, not fatal. balanceOf
// (0x70a08231) is deliberately excluded, every token carries it.
var honeypotSelectors = [][]byte{
	{0x8d, 0x80, 0xff, 0x0a},
	{0xf8, 0xb2, 0xcb, 0x4f},
}

func protocolName(addr chain.Address) (string, bool) {
	name, ok := knownProtocols[addr]
	return name, ok
}
