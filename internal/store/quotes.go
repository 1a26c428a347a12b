package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteEntry is one cached aggregator response.
type QuoteEntry struct {
	CacheKey       string
	ChainID        int64
	SrcTokenID     int64
	DstTokenID     int64
	SrcAddress     string
	DstAddress     string
	DstDecimals    int
	AmountWei      string
	PriceImpactBps decimal.Decimal
	GasEstimate    string
	RouteSummary   string
	RawResponse    json.RawMessage
	CreatedAt      time.Time
}

func (s *Store) GetQuote(ctx context.Context, key string) (QuoteEntry, error) {
	var (
		entry   QuoteEntry
		bps     string
		raw     []byte
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT q.cache_key, q.chain_id, q.src_token_id, q.dst_token_id, s.address, d.address, d.decimals,
			q.amount_wei, q.price_impact_bps, q.gas_estimate, q.route_summary, q.raw_response, q.created_at
		FROM quote_cache q
		JOIN tokens s ON s.id = q.src_token_id
		JOIN tokens d ON d.id = q.dst_token_id
		WHERE q.cache_key = ?
	`, key).Scan(&entry.CacheKey, &entry.ChainID, &entry.SrcTokenID, &entry.DstTokenID, &entry.SrcAddress, &entry.DstAddress, &entry.DstDecimals,
		&entry.AmountWei, &bps, &entry.GasEstimate, &entry.RouteSummary, &raw, &created)
	if err != nil {
		return QuoteEntry{}, fmt.Errorf("read quote %s: %w", key, classify(err))
	}
	parsed, err := decimal.NewFromString(bps)
	if err != nil {
		return QuoteEntry{}, fmt.Errorf("decode quote %s price impact: %w", key, err)
	}
	entry.PriceImpactBps = parsed
	entry.RawResponse = raw
	entry.CreatedAt = fromUnix(created)
	return entry, nil
}

// InsertQuote stores entry unless a row with the same key already exists,
// in which case the existing row wins. With replace set the existing row is
// overwritten instead. It reports whether this call wrote the row.
func (s *Store) InsertQuote(ctx context.Context, entry QuoteEntry, replace bool) (bool, error) {
	conflict := "DO NOTHING"
	if replace {
		conflict = `DO UPDATE SET
			chain_id=excluded.chain_id,
			src_token_id=excluded.src_token_id,
			dst_token_id=excluded.dst_token_id,
			amount_wei=excluded.amount_wei,
			price_impact_bps=excluded.price_impact_bps,
			gas_estimate=excluded.gas_estimate,
			route_summary=excluded.route_summary,
			raw_response=excluded.raw_response,
			created_at=excluded.created_at`
	}
	var written int64
	err := s.withWriteLock(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO quote_cache (cache_key, chain_id, src_token_id, dst_token_id, amount_wei,
				price_impact_bps, gas_estimate, route_summary, raw_response, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(cache_key) `+conflict,
			entry.CacheKey, entry.ChainID, entry.SrcTokenID, entry.DstTokenID, entry.AmountWei,
			entry.PriceImpactBps.StringFixed(4), entry.GasEstimate, entry.RouteSummary, []byte(entry.RawResponse), s.nowUnix())
		if err != nil {
			return err
		}
		written, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("write quote %s: %w", entry.CacheKey, classify(err))
	}
	return written > 0, nil
}

func (s *Store) CountQuotes(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM quote_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("count quotes: %w", err)
	}
	return n, nil
}
