package quote

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/ggonzalez94/swapsage/internal/amount"
	"github.com/ggonzalez94/swapsage/internal/chain"
	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/metrics"
	"github.com/ggonzalez94/swapsage/internal/oneinch"
	"github.com/ggonzalez94/swapsage/internal/registry"
	"github.com/ggonzalez94/swapsage/internal/risk"
	"github.com/ggonzalez94/swapsage/internal/store"
)

// Quoter is the upstream quote source.
type Quoter interface {
	FetchQuote(ctx context.Context, chainID int64, src, dst, amountWei string) (oneinch.QuoteResponse, error)
}

type Request struct {
	ChainID  int64
	Src      string
	Dst      string
	Amount   string
	Decimals *int
}

type Result struct {
	Data      json.RawMessage `json:"data"`
	Risk      risk.Assessment `json:"risk"`
	Cache     Status          `json:"cache"`
	CacheKey  string          `json:"cache_key"`
	AmountWei string          `json:"amount_wei"`
	DstAmount string          `json:"dst_amount,omitempty"`
	Route     string          `json:"route_summary"`
	Gas       string          `json:"gas,omitempty"`
}

type Service struct {
	cache    *Cache
	upstream Quoter
	registry *registry.Service
}

func NewService(cache *Cache, upstream Quoter, reg *registry.Service) *Service {
	return &Service{cache: cache, upstream: upstream, registry: reg}
}

// Quote converts the human amount, serves the quote through the cache and
// attaches a risk assessment derived from the price impact.
func (s *Service) Quote(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Src) == "" || strings.TrimSpace(req.Dst) == "" || strings.TrimSpace(req.Amount) == "" {
		return Result{}, apperr.New(apperr.CodeValidation, "Missing src/dst/amount")
	}
	if req.ChainID <= 0 {
		return Result{}, apperr.New(apperr.CodeValidation, "chain id must be positive")
	}
	decimals := registry.DefaultDecimals
	if req.Decimals != nil {
		decimals = *req.Decimals
	}
	src, err := chain.NormalizeAddress(req.Src)
	if err != nil {
		return Result{}, err
	}
	dst, err := chain.NormalizeAddress(req.Dst)
	if err != nil {
		return Result{}, err
	}
	amountWei, _, err := amount.HumanToBaseUnits(req.Amount, decimals)
	if err != nil {
		return Result{}, err
	}
	if amountWei == "0" {
		return Result{}, apperr.New(apperr.CodeValidation, "amount must be greater than zero")
	}

	key := ComputeCacheKey(req.ChainID, src, dst, amountWei)
	entry, status, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (store.QuoteEntry, error) {
		return s.fetch(ctx, req.ChainID, src, dst, amountWei, decimals)
	})
	if err != nil {
		zap.L().Warn("quote failed",
			zap.String("cache_key", key),
			zap.String("error_type", apperr.TypeName(err)),
			zap.Error(err))
		return Result{}, err
	}

	assessment := risk.Assessment{PriceImpactBps: entry.PriceImpactBps, Slippage: risk.Classify(entry.PriceImpactBps)}
	metrics.RiskLabels.WithLabelValues(string(assessment.Slippage)).Inc()
	zap.L().Debug("quote served",
		zap.String("cache_key", key),
		zap.String("cache", string(status)),
		zap.String("slippage", string(assessment.Slippage)))

	return Result{
		Data:      entry.RawResponse,
		Risk:      assessment,
		Cache:     status,
		CacheKey:  key,
		AmountWei: entry.AmountWei,
		DstAmount: humanDstAmount(entry),
		Route:     entry.RouteSummary,
		Gas:       entry.GasEstimate,
	}, nil
}

func (s *Service) fetch(ctx context.Context, chainID int64, src, dst, amountWei string, srcDecimals int) (store.QuoteEntry, error) {
	resp, err := s.upstream.FetchQuote(ctx, chainID, src, dst, amountWei)
	if err != nil {
		return store.QuoteEntry{}, err
	}

	// Cached rows reference registry tokens; register unknown ones from the
	// quote's token info, without overwriting curated rows.
	srcTok, err := s.registry.Ensure(ctx, tokenFrom(chainID, src, srcDecimals, resp.SrcToken))
	if err != nil {
		return store.QuoteEntry{}, err
	}
	dstTok, err := s.registry.Ensure(ctx, tokenFrom(chainID, dst, registry.DefaultDecimals, resp.DstToken))
	if err != nil {
		return store.QuoteEntry{}, err
	}

	return store.QuoteEntry{
		ChainID:        chainID,
		SrcTokenID:     srcTok.ID,
		DstTokenID:     dstTok.ID,
		AmountWei:      amountWei,
		PriceImpactBps: risk.Assess(resp.PriceImpact).PriceImpactBps.Round(4),
		GasEstimate:    resp.Gas,
		RouteSummary:   resp.RouteSummary(),
		RawResponse:    resp.Raw,
	}, nil
}

func tokenFrom(chainID int64, address string, decimals int, meta *oneinch.TokenMetadata) store.Token {
	tok := store.Token{ChainID: chainID, Address: address, Decimals: decimals}
	if meta != nil {
		tok.Symbol = meta.Symbol
		tok.Name = meta.Name
		tok.LogoURI = meta.LogoURI
		// Out-of-range upstream precision is ignored rather than failing the quote.
		if meta.Decimals > 0 && meta.Decimals <= amount.MaxDecimals {
			tok.Decimals = meta.Decimals
		}
	}
	return tok
}

// humanDstAmount renders the quote's destination amount in the destination
// token's units, or "" when the payload carries none.
func humanDstAmount(entry store.QuoteEntry) string {
	parsed, err := oneinch.ParseQuote(entry.RawResponse)
	if err != nil || parsed.DstAmount == "" {
		return ""
	}
	human, err := amount.FormatBaseUnits(parsed.DstAmount, entry.DstDecimals)
	if err != nil {
		return ""
	}
	return human
}
