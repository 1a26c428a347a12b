// Package chain resolves the EVM networks the aggregator serves and
// normalises token addresses on them.
package chain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
)

// NativeAddress is the placeholder the aggregator uses for a chain's gas token.
const NativeAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

var eip155ChainPattern = regexp.MustCompile(`^eip155:[0-9]+$`)

type Chain struct {
	Name string
	Slug string
	ID   int64
}

func (c Chain) CAIP2() string {
	return fmt.Sprintf("eip155:%d", c.ID)
}

// Token is a bootstrap registry entry.
type Token struct {
	Symbol   string
	Name     string
	Address  string
	Decimals int
	Native   bool
}

var chainBySlug = map[string]Chain{
	"ethereum":  {Name: "Ethereum", Slug: "ethereum", ID: 1},
	"mainnet":   {Name: "Ethereum", Slug: "ethereum", ID: 1},
	"optimism":  {Name: "Optimism", Slug: "optimism", ID: 10},
	"bsc":       {Name: "BSC", Slug: "bsc", ID: 56},
	"gnosis":    {Name: "Gnosis", Slug: "gnosis", ID: 100},
	"polygon":   {Name: "Polygon", Slug: "polygon", ID: 137},
	"zksync":    {Name: "zkSync Era", Slug: "zksync", ID: 324},
	"base":      {Name: "Base", Slug: "base", ID: 8453},
	"arbitrum":  {Name: "Arbitrum", Slug: "arbitrum", ID: 42161},
	"avalanche": {Name: "Avalanche", Slug: "avalanche", ID: 43114},
	"linea":     {Name: "Linea", Slug: "linea", ID: 59144},
}

var chainByID = func() map[int64]Chain {
	out := make(map[int64]Chain, len(chainBySlug))
	for _, c := range chainBySlug {
		out[c.ID] = c
	}
	return out
}()

// Small bootstrap registry so intents can be created before a token-list sync.
var bootstrapTokens = map[int64][]Token{
	1: {
		{Symbol: "ETH", Name: "Ether", Address: NativeAddress, Decimals: 18, Native: true},
		{Symbol: "USDC", Name: "USD Coin", Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Decimals: 6},
		{Symbol: "USDT", Name: "Tether USD", Address: "0xdac17f958d2ee523a2206206994597c13d831ec7", Decimals: 6},
		{Symbol: "DAI", Name: "Dai Stablecoin", Address: "0x6b175474e89094c44da98b954eedeac495271d0f", Decimals: 18},
		{Symbol: "WETH", Name: "Wrapped Ether", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
	},
	8453: {
		{Symbol: "ETH", Name: "Ether", Address: NativeAddress, Decimals: 18, Native: true},
		{Symbol: "USDC", Name: "USD Coin", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
		{Symbol: "WETH", Name: "Wrapped Ether", Address: "0x4200000000000000000000000000000000000006", Decimals: 18},
	},
	42161: {
		{Symbol: "ETH", Name: "Ether", Address: NativeAddress, Decimals: 18, Native: true},
		{Symbol: "USDC", Name: "USD Coin", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
		{Symbol: "WETH", Name: "Wrapped Ether", Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Decimals: 18},
	},
}

// Parse accepts a slug, a bare numeric id or a CAIP-2 eip155 reference.
func Parse(input string) (Chain, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Chain{}, apperr.New(apperr.CodeValidation, "chain is required")
	}
	norm := strings.ToLower(raw)

	if c, ok := chainBySlug[norm]; ok {
		return c, nil
	}
	if eip155ChainPattern.MatchString(norm) {
		norm = strings.TrimPrefix(norm, "eip155:")
	}
	id, err := strconv.ParseInt(norm, 10, 64)
	if err != nil || id <= 0 {
		return Chain{}, apperr.New(apperr.CodeValidation, fmt.Sprintf("unsupported chain input: %s", input))
	}
	return FromID(id), nil
}

// FromID returns the known chain for id, or a generic EVM chain.
func FromID(id int64) Chain {
	if c, ok := chainByID[id]; ok {
		return c
	}
	return Chain{Name: fmt.Sprintf("EVM-%d", id), Slug: fmt.Sprintf("evm-%d", id), ID: id}
}

// NormalizeAddress validates a 20-byte hex address and returns its lower-case form.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", apperr.New(apperr.CodeValidation, fmt.Sprintf("invalid token address: %q", address))
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// IsNative reports whether address is the aggregator's native-asset placeholder.
func IsNative(address string) bool {
	return strings.EqualFold(strings.TrimSpace(address), NativeAddress)
}

// BootstrapTokens returns the built-in tokens for a chain with normalised addresses.
func BootstrapTokens(id int64) []Token {
	src := bootstrapTokens[id]
	out := make([]Token, 0, len(src))
	for _, t := range src {
		t.Address = strings.ToLower(t.Address)
		out = append(out, t)
	}
	return out
}
