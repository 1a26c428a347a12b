// Package intent records requested swaps and drives their status lifecycle.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ggonzalez94/swapsage/internal/amount"
	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/explain"
	"github.com/ggonzalez94/swapsage/internal/metrics"
	"github.com/ggonzalez94/swapsage/internal/registry"
	"github.com/ggonzalez94/swapsage/internal/store"
)

const (
	DefaultSlippageBps = 50
	MaxSlippageBps     = 10_000
)

type CreateRequest struct {
	WalletAddress string `json:"wallet_address"`
	ChainID       int64  `json:"chain_id"`
	SrcToken      string `json:"src_token"`
	DstToken      string `json:"dst_token"`
	Amount        string `json:"amount"`
	SlippageBps   *int   `json:"slippage_bps,omitempty"`
}

type Filter struct {
	WalletAddress string
	ChainID       int64
	Status        string
	Limit         int
}

type Service struct {
	store        *store.Store
	registry     *registry.Service
	defaultModel string
}

func New(s *store.Store, reg *registry.Service, defaultModel string) *Service {
	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = explain.DefaultModel
	}
	return &Service{store: s, registry: reg, defaultModel: defaultModel}
}

// Create records a DRAFT intent. The smallest-unit amount is the human
// amount scaled by the source token's decimals, truncated.
func (s *Service) Create(ctx context.Context, req CreateRequest) (store.SwapIntent, error) {
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" {
		return store.SwapIntent{}, apperr.New(apperr.CodeValidation, "wallet_address is required")
	}
	if req.ChainID <= 0 {
		return store.SwapIntent{}, apperr.New(apperr.CodeValidation, "chain_id must be positive")
	}
	slippage := DefaultSlippageBps
	if req.SlippageBps != nil {
		slippage = *req.SlippageBps
	}
	if slippage < 0 || slippage > MaxSlippageBps {
		return store.SwapIntent{}, apperr.New(apperr.CodeValidation, fmt.Sprintf("slippage_bps must be between 0 and %d", MaxSlippageBps))
	}

	human, err := amount.ParseHuman(req.Amount)
	if err != nil {
		return store.SwapIntent{}, err
	}
	if !human.IsPositive() {
		return store.SwapIntent{}, apperr.New(apperr.CodeValidation, "amount must be greater than zero")
	}
	if err := amount.CheckHumanPrecision(human); err != nil {
		return store.SwapIntent{}, err
	}

	src, err := s.resolveToken(ctx, req.ChainID, req.SrcToken, "src_token")
	if err != nil {
		return store.SwapIntent{}, err
	}
	dst, err := s.resolveToken(ctx, req.ChainID, req.DstToken, "dst_token")
	if err != nil {
		return store.SwapIntent{}, err
	}
	amountWei, err := amount.ToBaseUnits(human, src.Decimals)
	if err != nil {
		return store.SwapIntent{}, err
	}

	created, err := s.store.InsertIntent(ctx, store.SwapIntent{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		ChainID:       req.ChainID,
		SrcTokenID:    src.ID,
		DstTokenID:    dst.ID,
		Amount:        human.String(),
		AmountWei:     amountWei,
		SlippageBps:   slippage,
		Status:        string(StatusDraft),
	})
	if err != nil {
		return store.SwapIntent{}, store.AppError(err, "create intent")
	}
	zap.L().Info("intent created",
		zap.String("intent_id", created.ID),
		zap.Int64("chain_id", created.ChainID),
		zap.String("amount_wei", created.AmountWei))
	return created, nil
}

func (s *Service) resolveToken(ctx context.Context, chainID int64, address, field string) (store.Token, error) {
	if strings.TrimSpace(address) == "" {
		return store.Token{}, apperr.New(apperr.CodeValidation, field+" is required")
	}
	tok, err := s.registry.Lookup(ctx, chainID, address)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return store.Token{}, apperr.Wrap(apperr.CodeValidation, fmt.Sprintf("%s %s is not registered on chain %d", field, address, chainID), err)
		}
		return store.Token{}, err
	}
	return tok, nil
}

func (s *Service) Get(ctx context.Context, id string) (store.SwapIntent, error) {
	it, err := s.store.GetIntent(ctx, id)
	if err != nil {
		return store.SwapIntent{}, store.AppError(err, fmt.Sprintf("intent %s", id))
	}
	return it, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]store.SwapIntent, error) {
	status := ""
	if strings.TrimSpace(f.Status) != "" {
		parsed, err := ParseStatus(f.Status)
		if err != nil {
			return nil, err
		}
		status = string(parsed)
	}
	list, err := s.store.ListIntents(ctx, store.IntentFilter{
		WalletAddress: strings.TrimSpace(f.WalletAddress),
		ChainID:       f.ChainID,
		Status:        status,
		Limit:         f.Limit,
	})
	if err != nil {
		return nil, store.AppError(err, "list intents")
	}
	return list, nil
}

// SetStatus moves an intent to next if the transition table allows it.
func (s *Service) SetStatus(ctx context.Context, id string, next Status) (store.SwapIntent, error) {
	return s.transition(ctx, id, next, store.IntentUpdate{})
}

// RecordQuote stores the quoted route and risk and moves the intent to QUOTED.
func (s *Service) RecordQuote(ctx context.Context, id, routeSummary, riskLevel string) (store.SwapIntent, error) {
	return s.transition(ctx, id, StatusQuoted, store.IntentUpdate{RouteSummary: &routeSummary, RiskLevel: &riskLevel})
}

// RecordExecution stores the transaction hash and moves the intent to EXECUTED.
func (s *Service) RecordExecution(ctx context.Context, id, txHash string) (store.SwapIntent, error) {
	raw, err := hexutil.Decode(strings.TrimSpace(txHash))
	if err != nil || len(raw) != 32 {
		return store.SwapIntent{}, apperr.New(apperr.CodeValidation, fmt.Sprintf("tx hash must be 32 bytes of 0x-prefixed hex, got %q", txHash))
	}
	normalized := hexutil.Encode(raw)
	return s.transition(ctx, id, StatusExecuted, store.IntentUpdate{TxHash: &normalized})
}

// StatusChange is a requested status move with its optional payload.
type StatusChange struct {
	Status       string `json:"status"`
	TxHash       string `json:"tx_hash"`
	RouteSummary string `json:"route_summary"`
	RiskLevel    string `json:"risk_level"`
}

// Advance applies a StatusChange, recording the quote or execution payload
// when one accompanies the matching status.
func (s *Service) Advance(ctx context.Context, id string, change StatusChange) (store.SwapIntent, error) {
	next, err := ParseStatus(change.Status)
	if err != nil {
		return store.SwapIntent{}, err
	}
	switch {
	case next == StatusQuoted && (strings.TrimSpace(change.RouteSummary) != "" || strings.TrimSpace(change.RiskLevel) != ""):
		return s.RecordQuote(ctx, id, change.RouteSummary, change.RiskLevel)
	case next == StatusExecuted && strings.TrimSpace(change.TxHash) != "":
		return s.RecordExecution(ctx, id, change.TxHash)
	default:
		return s.SetStatus(ctx, id, next)
	}
}

func (s *Service) transition(ctx context.Context, id string, next Status, upd store.IntentUpdate) (store.SwapIntent, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return store.SwapIntent{}, err
	}
	if err := checkTransition(Status(current.Status), next); err != nil {
		metrics.IntentTransitions.WithLabelValues(string(next), "rejected").Inc()
		return store.SwapIntent{}, err
	}
	upd.Status = string(next)
	updated, err := s.store.UpdateIntent(ctx, id, current.Status, upd)
	if err != nil {
		metrics.IntentTransitions.WithLabelValues(string(next), "conflict").Inc()
		if errors.Is(err, store.ErrStatusChanged) {
			return store.SwapIntent{}, apperr.Wrap(apperr.CodeIllegalTransition,
				fmt.Sprintf("intent %s changed status before %s could be applied", id, next), err)
		}
		return store.SwapIntent{}, store.AppError(err, "update intent status")
	}
	metrics.IntentTransitions.WithLabelValues(string(next), "applied").Inc()
	zap.L().Info("intent status changed",
		zap.String("intent_id", id),
		zap.String("from", current.Status),
		zap.String("to", string(next)))
	return updated, nil
}

// Delete removes an intent and its explanations.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteIntent(ctx, id); err != nil {
		return store.AppError(err, fmt.Sprintf("delete intent %s", id))
	}
	return nil
}

type ExplanationInput struct {
	Model  string          `json:"model"`
	Prompt string          `json:"prompt"`
	Text   string          `json:"text"`
	Meta   json.RawMessage `json:"meta,omitempty"`
}

// AttachExplanation appends an explanation to the intent. Without text, the
// standard template is rendered from the intent's route and risk.
func (s *Service) AttachExplanation(ctx context.Context, id string, in ExplanationInput) (store.Explanation, error) {
	it, err := s.Get(ctx, id)
	if err != nil {
		return store.Explanation{}, err
	}
	if len(in.Meta) > 0 && !json.Valid(in.Meta) {
		return store.Explanation{}, apperr.New(apperr.CodeValidation, "meta must be valid JSON")
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = s.defaultModel
	}
	text := in.Text
	if strings.TrimSpace(text) == "" {
		text = explain.Explain(explain.Request{RouteSummary: it.RouteSummary, Risk: it.RiskLevel})
	}
	ex, err := s.store.InsertExplanation(ctx, store.Explanation{
		ID:       uuid.NewString(),
		IntentID: it.ID,
		Model:    model,
		Prompt:   in.Prompt,
		Text:     text,
		Meta:     in.Meta,
	})
	if err != nil {
		return store.Explanation{}, store.AppError(err, "attach explanation")
	}
	return ex, nil
}

func (s *Service) Explanations(ctx context.Context, id string) ([]store.Explanation, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	list, err := s.store.ListExplanations(ctx, id)
	if err != nil {
		return nil, store.AppError(err, "list explanations")
	}
	return list, nil
}
