// Package registry keeps chain-scoped token metadata.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ggonzalez94/swapsage/internal/amount"
	"github.com/ggonzalez94/swapsage/internal/chain"
	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/oneinch"
	"github.com/ggonzalez94/swapsage/internal/store"
)

// DefaultDecimals applies when neither the caller nor the token list knows better.
const DefaultDecimals = 18

// TokenSource is the upstream token list.
type TokenSource interface {
	FetchTokenList(ctx context.Context, chainID int64) (map[string]oneinch.TokenMetadata, error)
	HasKey() bool
}

type Service struct {
	store    *store.Store
	upstream TokenSource
}

func New(s *store.Store, upstream TokenSource) *Service {
	return &Service{store: s, upstream: upstream}
}

// Upsert creates or updates the token identified by (ChainID, Address).
func (r *Service) Upsert(ctx context.Context, tok store.Token) (store.Token, error) {
	normalized, err := normalize(tok)
	if err != nil {
		return store.Token{}, err
	}
	saved, err := r.store.UpsertToken(ctx, normalized)
	if err != nil {
		return store.Token{}, store.AppError(err, "upsert token")
	}
	return saved, nil
}

// Ensure stores tok only if the registry has no row for it yet.
func (r *Service) Ensure(ctx context.Context, tok store.Token) (store.Token, error) {
	normalized, err := normalize(tok)
	if err != nil {
		return store.Token{}, err
	}
	saved, err := r.store.EnsureToken(ctx, normalized)
	if err != nil {
		return store.Token{}, store.AppError(err, "ensure token")
	}
	return saved, nil
}

func (r *Service) Lookup(ctx context.Context, chainID int64, address string) (store.Token, error) {
	addr, err := chain.NormalizeAddress(address)
	if err != nil {
		return store.Token{}, err
	}
	tok, err := r.store.GetToken(ctx, chainID, addr)
	if err != nil {
		return store.Token{}, store.AppError(err, fmt.Sprintf("token %s not registered on chain %d", addr, chainID))
	}
	return tok, nil
}

func (r *Service) List(ctx context.Context, chainID int64, limit int) ([]store.Token, error) {
	tokens, err := r.store.ListTokens(ctx, chainID, limit)
	if err != nil {
		return nil, store.AppError(err, "list tokens")
	}
	return tokens, nil
}

// Delete removes a token. Tokens referenced by a swap intent cannot be removed.
func (r *Service) Delete(ctx context.Context, chainID int64, address string) error {
	addr, err := chain.NormalizeAddress(address)
	if err != nil {
		return err
	}
	if err := r.store.DeleteToken(ctx, chainID, addr); err != nil {
		return store.AppError(err, fmt.Sprintf("delete token %s on chain %d", addr, chainID))
	}
	return nil
}

// Hydrate pulls the upstream token list for chainID and upserts every entry.
// Entries with unusable addresses or decimals are skipped.
func (r *Service) Hydrate(ctx context.Context, chainID int64) (int, error) {
	if r.upstream == nil {
		return 0, apperr.New(apperr.CodeInternal, "no token source configured")
	}
	list, err := r.upstream.FetchTokenList(ctx, chainID)
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(list))
	for k := range list {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	count := 0
	for _, key := range keys {
		meta := list[key]
		address := meta.Address
		if address == "" {
			address = key
		}
		_, err := r.Upsert(ctx, store.Token{
			ChainID:  chainID,
			Address:  address,
			Symbol:   meta.Symbol,
			Name:     meta.Name,
			Decimals: meta.Decimals,
			LogoURI:  meta.LogoURI,
			IsNative: hasTag(meta.Tags, "native"),
		})
		if err != nil {
			if apperr.Is(err, apperr.CodeValidation) {
				zap.L().Warn("skipping token from upstream list",
					zap.Int64("chain_id", chainID), zap.String("address", address), zap.Error(err))
				continue
			}
			return count, err
		}
		count++
	}
	zap.L().Info("hydrated token registry", zap.Int64("chain_id", chainID), zap.Int("tokens", count))
	return count, nil
}

// Seed registers the built-in tokens for chainID.
func (r *Service) Seed(ctx context.Context, chainID int64) (int, error) {
	count := 0
	for _, t := range chain.BootstrapTokens(chainID) {
		if _, err := r.Upsert(ctx, store.Token{
			ChainID:  chainID,
			Address:  t.Address,
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: t.Decimals,
			IsNative: t.Native,
		}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ListOrHydrate lists the chain's tokens, first hydrating an empty registry
// when an upstream key is configured. Hydration failure yields what is stored.
func (r *Service) ListOrHydrate(ctx context.Context, chainID int64, limit int) ([]store.Token, error) {
	n, err := r.store.CountTokens(ctx, chainID)
	if err != nil {
		return nil, store.AppError(err, "count tokens")
	}
	if n == 0 && r.upstream != nil && r.upstream.HasKey() {
		if _, err := r.Hydrate(ctx, chainID); err != nil {
			zap.L().Warn("token list hydration failed", zap.Int64("chain_id", chainID), zap.Error(err))
		}
	}
	return r.List(ctx, chainID, limit)
}

func normalize(tok store.Token) (store.Token, error) {
	if tok.ChainID <= 0 {
		return store.Token{}, apperr.New(apperr.CodeValidation, "chain id must be positive")
	}
	addr, err := chain.NormalizeAddress(tok.Address)
	if err != nil {
		return store.Token{}, err
	}
	if tok.Decimals < 0 || tok.Decimals > amount.MaxDecimals {
		return store.Token{}, apperr.New(apperr.CodeValidation, fmt.Sprintf("decimals must be between 0 and %d", amount.MaxDecimals))
	}
	tok.Address = addr
	tok.Symbol = strings.TrimSpace(tok.Symbol)
	tok.Name = strings.TrimSpace(tok.Name)
	tok.LogoURI = strings.TrimSpace(tok.LogoURI)
	if chain.IsNative(addr) {
		tok.IsNative = true
	}
	return tok, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
