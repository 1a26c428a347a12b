package registry

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/oneinch"
	"github.com/ggonzalez94/swapsage/internal/store"
)

const usdcChecksum = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"

type fakeSource struct {
	key    bool
	tokens map[string]oneinch.TokenMetadata
	err    error
	calls  int
}

func (f *fakeSource) FetchTokenList(ctx context.Context, chainID int64) (map[string]oneinch.TokenMetadata, error) {
	f.calls++
	return f.tokens, f.err
}

func (f *fakeSource) HasKey() bool { return f.key }

func newTestRegistry(t *testing.T, src TokenSource) (*Service, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "swapsage.db"), filepath.Join(dir, "swapsage.lock"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s, src), s
}

func TestUpsertNormalisesAddress(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	ctx := context.Background()

	tok, err := r.Upsert(ctx, store.Token{ChainID: 1, Address: usdcChecksum, Symbol: " USDC ", Decimals: 6})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if tok.Address != "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" || tok.Symbol != "USDC" {
		t.Fatalf("unexpected token: %+v", tok)
	}

	got, err := r.Lookup(ctx, 1, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.ID != tok.ID {
		t.Fatalf("expected checksum and lower-case spellings to share a row")
	}
}

func TestUpsertValidation(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	ctx := context.Background()
	cases := []store.Token{
		{ChainID: 1, Address: "0x1234", Decimals: 6},
		{ChainID: 0, Address: usdcChecksum, Decimals: 6},
		{ChainID: 1, Address: usdcChecksum, Decimals: 78},
		{ChainID: 1, Address: usdcChecksum, Decimals: -1},
	}
	for _, tc := range cases {
		if _, err := r.Upsert(ctx, tc); !apperr.Is(err, apperr.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", tc, err)
		}
	}
}

func TestLookupMissing(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	_, err := r.Lookup(context.Background(), 1, usdcChecksum)
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRestrictedByIntent(t *testing.T) {
	r, s := newTestRegistry(t, nil)
	ctx := context.Background()
	if _, err := r.Seed(ctx, 1); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	weth, err := r.Lookup(ctx, 1, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	if err != nil {
		t.Fatalf("Lookup WETH failed: %v", err)
	}
	usdc, err := r.Lookup(ctx, 1, usdcChecksum)
	if err != nil {
		t.Fatalf("Lookup USDC failed: %v", err)
	}
	if _, err := s.InsertIntent(ctx, store.SwapIntent{
		ID: "i1", WalletAddress: "w", ChainID: 1, SrcTokenID: weth.ID, DstTokenID: usdc.ID,
		Amount: "1", AmountWei: "1000000000000000000", SlippageBps: 50, Status: "DRAFT",
	}); err != nil {
		t.Fatalf("InsertIntent failed: %v", err)
	}

	err = r.Delete(ctx, 1, weth.Address)
	if !apperr.Is(err, apperr.CodeConflict) || !errors.Is(err, store.ErrReferenced) {
		t.Fatalf("expected conflict deleting referenced token, got %v", err)
	}
	if _, err := s.InsertQuote(ctx, store.QuoteEntry{CacheKey: "k", ChainID: 1, SrcTokenID: usdc.ID, DstTokenID: usdc.ID, AmountWei: "1", RawResponse: json.RawMessage(`{}`)}, false); err != nil {
		t.Fatalf("InsertQuote failed: %v", err)
	}
	if err := s.DeleteIntent(ctx, "i1"); err != nil {
		t.Fatalf("DeleteIntent failed: %v", err)
	}
	if err := r.Delete(ctx, 1, usdc.Address); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.GetQuote(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected quote cascade on token delete, got %v", err)
	}
}

func TestHydrateSkipsInvalidEntries(t *testing.T) {
	src := &fakeSource{key: true, tokens: map[string]oneinch.TokenMetadata{
		"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee": {Address: "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE", Symbol: "ETH", Decimals: 18},
		"not-an-address": {Symbol: "BAD", Decimals: 18},
	}}
	r, _ := newTestRegistry(t, src)
	n, err := r.Hydrate(context.Background(), 8453)
	if err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected two hydrated tokens, got %d", n)
	}
	eth, err := r.Lookup(context.Background(), 8453, "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !eth.IsNative {
		t.Fatal("expected native placeholder to be flagged native")
	}
}

func TestListOrHydrate(t *testing.T) {
	src := &fakeSource{key: true, tokens: map[string]oneinch.TokenMetadata{
		"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913": {Symbol: "USDC", Decimals: 6},
	}}
	r, _ := newTestRegistry(t, src)
	ctx := context.Background()

	tokens, err := r.ListOrHydrate(ctx, 8453, 0)
	if err != nil {
		t.Fatalf("ListOrHydrate failed: %v", err)
	}
	if len(tokens) != 1 || src.calls != 1 {
		t.Fatalf("expected hydration on empty registry, got %d tokens after %d calls", len(tokens), src.calls)
	}
	if _, err := r.ListOrHydrate(ctx, 8453, 0); err != nil {
		t.Fatalf("ListOrHydrate failed: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected no second hydration, got %d calls", src.calls)
	}
}

func TestListOrHydrateDegrades(t *testing.T) {
	failing := &fakeSource{key: true, err: apperr.New(apperr.CodeExternalAPI, "boom")}
	r, _ := newTestRegistry(t, failing)
	tokens, err := r.ListOrHydrate(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("expected degraded listing, got %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("expected empty token set, got %d", len(tokens))
	}

	keyless := &fakeSource{}
	r, _ = newTestRegistry(t, keyless)
	if _, err := r.ListOrHydrate(context.Background(), 1, 0); err != nil {
		t.Fatalf("ListOrHydrate failed: %v", err)
	}
	if keyless.calls != 0 {
		t.Fatal("expected no hydration without an API key")
	}
}
