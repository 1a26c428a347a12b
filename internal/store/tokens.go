package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Token struct {
	ID        int64     `json:"-"`
	ChainID   int64     `json:"chain_id"`
	Address   string    `json:"address"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Decimals  int       `json:"decimals"`
	LogoURI   string    `json:"logo_uri,omitempty"`
	IsNative  bool      `json:"is_native"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const tokenColumns = "id, chain_id, address, symbol, name, decimals, logo_uri, is_native, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (Token, error) {
	var (
		tok              Token
		native           int
		created, updated int64
	)
	if err := row.Scan(&tok.ID, &tok.ChainID, &tok.Address, &tok.Symbol, &tok.Name, &tok.Decimals,
		&tok.LogoURI, &native, &created, &updated); err != nil {
		return Token{}, err
	}
	tok.IsNative = native != 0
	tok.CreatedAt = fromUnix(created)
	tok.UpdatedAt = fromUnix(updated)
	return tok, nil
}

// UpsertToken inserts the token or overwrites the mutable fields of the row
// with the same (chain_id, address). The row id and created_at are preserved.
func (s *Store) UpsertToken(ctx context.Context, tok Token) (Token, error) {
	err := s.withWriteLock(ctx, func() error {
		now := s.nowUnix()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tokens (chain_id, address, symbol, name, decimals, logo_uri, is_native, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chain_id, address) DO UPDATE SET
				symbol=excluded.symbol,
				name=excluded.name,
				decimals=excluded.decimals,
				logo_uri=excluded.logo_uri,
				is_native=excluded.is_native,
				updated_at=excluded.updated_at
		`, tok.ChainID, tok.Address, tok.Symbol, tok.Name, tok.Decimals, tok.LogoURI, boolInt(tok.IsNative), now, now)
		return err
	})
	if err != nil {
		return Token{}, fmt.Errorf("upsert token: %w", classify(err))
	}
	return s.GetToken(ctx, tok.ChainID, tok.Address)
}

// EnsureToken inserts the token only when no row exists for its
// (chain_id, address) and returns whichever row is stored.
func (s *Store) EnsureToken(ctx context.Context, tok Token) (Token, error) {
	err := s.withWriteLock(ctx, func() error {
		now := s.nowUnix()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tokens (chain_id, address, symbol, name, decimals, logo_uri, is_native, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chain_id, address) DO NOTHING
		`, tok.ChainID, tok.Address, tok.Symbol, tok.Name, tok.Decimals, tok.LogoURI, boolInt(tok.IsNative), now, now)
		return err
	})
	if err != nil {
		return Token{}, fmt.Errorf("ensure token: %w", classify(err))
	}
	return s.GetToken(ctx, tok.ChainID, tok.Address)
}

func (s *Store) GetToken(ctx context.Context, chainID int64, address string) (Token, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tokenColumns+" FROM tokens WHERE chain_id = ? AND address = ?", chainID, address)
	tok, err := scanToken(row)
	if err != nil {
		return Token{}, fmt.Errorf("read token %d/%s: %w", chainID, address, classify(err))
	}
	return tok, nil
}

func (s *Store) ListTokens(ctx context.Context, chainID int64, limit int) ([]Token, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tokenColumns+" FROM tokens WHERE chain_id = ? ORDER BY symbol COLLATE NOCASE, address LIMIT ?",
		chainID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]Token, 0)
	for rows.Next() {
		tok, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}

func (s *Store) CountTokens(ctx context.Context, chainID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tokens WHERE chain_id = ?", chainID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return n, nil
}

// DeleteToken removes a token. Cached quotes that reference it go with it;
// a token still referenced by a swap intent is refused with ErrReferenced.
func (s *Store) DeleteToken(ctx context.Context, chainID int64, address string) error {
	var res sql.Result
	err := s.withWriteLock(ctx, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, "DELETE FROM tokens WHERE chain_id = ? AND address = ?", chainID, address)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete token %d/%s: %w", chainID, address, classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete token %d/%s: %w", chainID, address, ErrNotFound)
	}
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
