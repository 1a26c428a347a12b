package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type TokenRef struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type SwapIntent struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	ChainID       int64     `json:"chain_id"`
	SrcTokenID    int64     `json:"-"`
	DstTokenID    int64     `json:"-"`
	SrcToken      TokenRef  `json:"src_token"`
	DstToken      TokenRef  `json:"dst_token"`
	Amount        string    `json:"amount"`
	AmountWei     string    `json:"amount_wei"`
	SlippageBps   int       `json:"slippage_bps"`
	Status        string    `json:"status"`
	TxHash        string    `json:"tx_hash,omitempty"`
	RouteSummary  string    `json:"route_summary,omitempty"`
	RiskLevel     string    `json:"risk_level,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IntentUpdate lists the fields a status change may also set. Nil pointers
// leave the stored value unchanged.
type IntentUpdate struct {
	Status       string
	TxHash       *string
	RouteSummary *string
	RiskLevel    *string
}

type IntentFilter struct {
	WalletAddress string
	ChainID       int64
	Status        string
	Limit         int
}

const intentSelect = `
	SELECT i.id, i.wallet_address, i.chain_id, i.src_token_id, i.dst_token_id,
		s.address, s.symbol, s.decimals, d.address, d.symbol, d.decimals,
		i.amount, i.amount_wei, i.slippage_bps, i.status, i.tx_hash, i.route_summary, i.risk_level,
		i.created_at, i.updated_at
	FROM swap_intents i
	JOIN tokens s ON s.id = i.src_token_id
	JOIN tokens d ON d.id = i.dst_token_id`

func scanIntent(row rowScanner) (SwapIntent, error) {
	var (
		it               SwapIntent
		created, updated int64
	)
	if err := row.Scan(&it.ID, &it.WalletAddress, &it.ChainID, &it.SrcTokenID, &it.DstTokenID,
		&it.SrcToken.Address, &it.SrcToken.Symbol, &it.SrcToken.Decimals,
		&it.DstToken.Address, &it.DstToken.Symbol, &it.DstToken.Decimals,
		&it.Amount, &it.AmountWei, &it.SlippageBps, &it.Status, &it.TxHash, &it.RouteSummary, &it.RiskLevel,
		&created, &updated); err != nil {
		return SwapIntent{}, err
	}
	it.CreatedAt = fromUnix(created)
	it.UpdatedAt = fromUnix(updated)
	return it, nil
}

func (s *Store) InsertIntent(ctx context.Context, it SwapIntent) (SwapIntent, error) {
	if strings.TrimSpace(it.ID) == "" {
		return SwapIntent{}, fmt.Errorf("insert intent: missing intent id")
	}
	err := s.withWriteLock(ctx, func() error {
		now := s.nowUnix()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO swap_intents (id, wallet_address, chain_id, src_token_id, dst_token_id, amount, amount_wei,
				slippage_bps, status, tx_hash, route_summary, risk_level, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, it.ID, it.WalletAddress, it.ChainID, it.SrcTokenID, it.DstTokenID, it.Amount, it.AmountWei,
			it.SlippageBps, it.Status, it.TxHash, it.RouteSummary, it.RiskLevel, now, now)
		return err
	})
	if err != nil {
		return SwapIntent{}, fmt.Errorf("insert intent: %w", classify(err))
	}
	return s.GetIntent(ctx, it.ID)
}

func (s *Store) GetIntent(ctx context.Context, id string) (SwapIntent, error) {
	it, err := scanIntent(s.db.QueryRowContext(ctx, intentSelect+" WHERE i.id = ?", id))
	if err != nil {
		return SwapIntent{}, fmt.Errorf("read intent %s: %w", id, classify(err))
	}
	return it, nil
}

// UpdateIntent applies upd only while the intent is still in expectedStatus.
func (s *Store) UpdateIntent(ctx context.Context, id, expectedStatus string, upd IntentUpdate) (SwapIntent, error) {
	var affected int64
	err := s.withWriteLock(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE swap_intents SET
				status = ?,
				tx_hash = COALESCE(?, tx_hash),
				route_summary = COALESCE(?, route_summary),
				risk_level = COALESCE(?, risk_level),
				updated_at = ?
			WHERE id = ? AND status = ?
		`, upd.Status, nullable(upd.TxHash), nullable(upd.RouteSummary), nullable(upd.RiskLevel), s.nowUnix(), id, expectedStatus)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return SwapIntent{}, fmt.Errorf("update intent %s: %w", id, classify(err))
	}
	if affected == 0 {
		current, err := s.GetIntent(ctx, id)
		if err != nil {
			return SwapIntent{}, err
		}
		return SwapIntent{}, fmt.Errorf("update intent %s: %w (now %s)", id, ErrStatusChanged, current.Status)
	}
	return s.GetIntent(ctx, id)
}

func (s *Store) ListIntents(ctx context.Context, filter IntentFilter) ([]SwapIntent, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	var (
		where []string
		args  []any
	)
	if filter.WalletAddress != "" {
		where = append(where, "i.wallet_address = ?")
		args = append(args, filter.WalletAddress)
	}
	if filter.ChainID > 0 {
		where = append(where, "i.chain_id = ?")
		args = append(args, filter.ChainID)
	}
	if filter.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, filter.Status)
	}
	query := intentSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.created_at DESC, i.rowid DESC LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list intents: %w", err)
	}
	defer rows.Close()

	intents := make([]SwapIntent, 0)
	for rows.Next() {
		it, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intent row: %w", err)
		}
		intents = append(intents, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intent rows: %w", err)
	}
	return intents, nil
}

// DeleteIntent removes an intent together with its explanations.
func (s *Store) DeleteIntent(ctx context.Context, id string) error {
	var res sql.Result
	err := s.withWriteLock(ctx, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, "DELETE FROM swap_intents WHERE id = ?", id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete intent %s: %w", id, classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete intent %s: %w", id, ErrNotFound)
	}
	return nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
