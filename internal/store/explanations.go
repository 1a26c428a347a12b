package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Explanation struct {
	ID        string          `json:"id"`
	IntentID  string          `json:"intent_id"`
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt"`
	Text      string          `json:"text"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SwapRequest is one row of the explain history log.
type SwapRequest struct {
	ID          string    `json:"id"`
	SrcSymbol   string    `json:"src_symbol"`
	DstSymbol   string    `json:"dst_symbol"`
	Amount      string    `json:"amount"`
	RiskLevel   string    `json:"risk_level"`
	Explanation string    `json:"explanation"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Store) InsertExplanation(ctx context.Context, ex Explanation) (Explanation, error) {
	var meta []byte
	if len(ex.Meta) > 0 {
		meta = ex.Meta
	}
	created := s.nowUnix()
	err := s.withWriteLock(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO explanations (id, intent_id, model, prompt, text, meta, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, ex.ID, ex.IntentID, ex.Model, ex.Prompt, ex.Text, meta, created)
		return err
	})
	if err != nil {
		return Explanation{}, fmt.Errorf("insert explanation: %w", classify(err))
	}
	ex.CreatedAt = fromUnix(created)
	return ex, nil
}

func (s *Store) ListExplanations(ctx context.Context, intentID string) ([]Explanation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent_id, model, prompt, text, meta, created_at
		FROM explanations WHERE intent_id = ? ORDER BY created_at, rowid
	`, intentID)
	if err != nil {
		return nil, fmt.Errorf("list explanations: %w", err)
	}
	defer rows.Close()

	out := make([]Explanation, 0)
	for rows.Next() {
		var (
			ex      Explanation
			meta    []byte
			created int64
		)
		if err := rows.Scan(&ex.ID, &ex.IntentID, &ex.Model, &ex.Prompt, &ex.Text, &meta, &created); err != nil {
			return nil, fmt.Errorf("scan explanation row: %w", err)
		}
		if len(meta) > 0 {
			ex.Meta = meta
		}
		ex.CreatedAt = fromUnix(created)
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate explanation rows: %w", err)
	}
	return out, nil
}

func (s *Store) InsertSwapRequest(ctx context.Context, req SwapRequest) error {
	err := s.withWriteLock(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO swap_requests (id, src_symbol, dst_symbol, amount, risk_level, explanation, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, req.ID, req.SrcSymbol, req.DstSymbol, req.Amount, req.RiskLevel, req.Explanation, s.nowUnix())
		return err
	})
	if err != nil {
		return fmt.Errorf("insert swap request: %w", classify(err))
	}
	return nil
}

func (s *Store) ListSwapRequests(ctx context.Context, limit int) ([]SwapRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, src_symbol, dst_symbol, amount, risk_level, explanation, created_at
		FROM swap_requests ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	defer rows.Close()

	out := make([]SwapRequest, 0)
	for rows.Next() {
		var (
			req     SwapRequest
			created int64
		)
		if err := rows.Scan(&req.ID, &req.SrcSymbol, &req.DstSymbol, &req.Amount, &req.RiskLevel, &req.Explanation, &created); err != nil {
			return nil, fmt.Errorf("scan swap request row: %w", err)
		}
		req.CreatedAt = fromUnix(created)
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap request rows: %w", err)
	}
	return out, nil
}
