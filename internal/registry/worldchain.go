package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"tradeEngine/internal/model"
)

// WorldChainID is the chain id of World Chain mainnet.
const WorldChainID uint64 = 480

// WorldChainContracts are the Uniswap v4 deployments on World Chain.
var WorldChainContracts = Contracts{
	PoolManager:     common.HexToAddress("0xb1860d529182ac3bc1f51fa2abd56662b7d13f33"),
	PositionManager: common.HexToAddress("0xc585e0f504613b5fbf874f21af14c65260fb41fa"),
	Quoter:          common.HexToAddress("0x55d235b3ff2daf7c3ede0defc9521f1d6fe6c5c0"),
	StateView:       common.HexToAddress("0x51d394718bc09297262e368c1a481217fdeb71eb"),
	UniversalRouter: common.HexToAddress("0x8ac7bee993bb44dab564ea4bc9ea67bf9eb5e743"),
	Permit2:         common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3"),
}

func worldChainTokens() []model.Token {
	return []model.Token{
		{Address: "0x2cFc85d8E48F8EAB294be644d9E25C3030863003", Decimals: 18, Symbol: "WLD", Name: "Worldcoin"},
		{Address: "0x4200000000000000000000000000000000000006", Decimals: 18, Symbol: "ETH", Name: "World Chain ETH"},
		{Address: "0x79A02482A880bCE3F13e09Da970dC34db4CD24d1", Decimals: 6, Symbol: "USDC", Name: "USDC"},
		{Address: "0x03C7054BCB39f7b2e5B2c7AcB37583e32D70Cfa3", Decimals: 8, Symbol: "WBTC", Name: "Wrapped BTC"},
		{Address: "0x2615a94df961278DcbC41Fb0a54fEc5f10a693aE", Decimals: 6, Symbol: "uXRP", Name: "XRP (Universal)"},
		{Address: "0x12E96C2BFEA6E835CF8Dd38a5834fa61Cf723736", Decimals: 8, Symbol: "uDOGE", Name: "Dogecoin (Universal)"},
		{Address: "0x9B8Df6E244526ab5F6e6400d331DB28C8fdDdb55", Decimals: 9, Symbol: "uSOL", Name: "Solana (Universal)"},
		{Address: "0xb0505e5a99abd03d94a1169e638B78EDfEd26ea4", Decimals: 9, Symbol: "uSUI", Name: "Sui (Universal)"},
		{Address: "0x102d758f688a4C1C5a80b116bD945d4455460282", Decimals: 6, Symbol: "USD₮0", Name: "Stargate USD₮0"},
	}
}

func worldChainPools() []PoolSpec {
	return []PoolSpec{
		{Symbol0: "ETH", Symbol1: "USDC", Fee: 500, TickSpacing: 10},
		{Symbol0: "ETH", Symbol1: "WLD", Fee: 3000, TickSpacing: 60},
		{Symbol0: "ETH", Symbol1: "WBTC", Fee: 3000, TickSpacing: 60},
		{Symbol0: "WLD", Symbol1: "USDC", Fee: 1400, TickSpacing: 20},
		{Symbol0: "USDC", Symbol1: "uXRP", Fee: 500, TickSpacing: 10},
		{Symbol0: "USDC", Symbol1: "uDOGE", Fee: 500, TickSpacing: 10},
		{Symbol0: "USDC", Symbol1: "USD₮0", Fee: 100, TickSpacing: 1},
		{Symbol0: "ETH", Symbol1: "USD₮0", Fee: 500, TickSpacing: 10},
	}
}

// WorldChain returns the built-in World Chain catalog. A non-zero stateView
// or router overrides the default deployment.
func WorldChain(stateView, router common.Address) *Registry {
	contracts := WorldChainContracts
	if stateView != (common.Address{}) {
		contracts.StateView = stateView
	}
	if router != (common.Address{}) {
		contracts.UniversalRouter = router
	}
	r, err := New(WorldChainID, contracts, worldChainTokens(), worldChainPools())
	if err != nil {
		panic(err)
	}
	return r
}
