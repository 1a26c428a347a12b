// Package explain renders the canned route explanation and keeps a
// best-effort history of explain requests.
package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ggonzalez94/swapsage/internal/amount"
	"github.com/ggonzalez94/swapsage/internal/metrics"
	"github.com/ggonzalez94/swapsage/internal/store"
)

const (
	DefaultModel     = "template-v1"
	DefaultRoute     = "best route"
	DefaultRisk      = "unknown"
	DefaultSrcSymbol = "SRC"
	DefaultDstSymbol = "DST"

	maxRiskLength   = 16
	maxAmountLength = 96
	recordTimeout = 2 * time.Second
)

// Generate renders the explanation template. It never calls out.
func Generate(routeSummary, riskLabel string) string {
	return fmt.Sprintf("SwapSage recommends this route because it balances liquidity depth and gas cost. Risk level: %s. Route summary: %s.",
		riskLabel, routeSummary)
}

// Request carries the optional explain inputs; empty fields take defaults.
type Request struct {
	RouteSummary string
	Risk         string
	SrcSymbol    string
	DstSymbol    string
	Amount       string
}

func (r Request) WithDefaults() Request {
	r.RouteSummary = orDefault(r.RouteSummary, DefaultRoute)
	r.Risk = orDefault(r.Risk, DefaultRisk)
	r.SrcSymbol = orDefault(r.SrcSymbol, DefaultSrcSymbol)
	r.DstSymbol = orDefault(r.DstSymbol, DefaultDstSymbol)
	r.Amount = orDefault(r.Amount, "0")
	return r
}

// Explain applies defaults and renders the template.
func Explain(r Request) string {
	r = r.WithDefaults()
	return Generate(r.RouteSummary, r.Risk)
}

// HistoryWriter persists explain history rows.
type HistoryWriter interface {
	InsertSwapRequest(ctx context.Context, req store.SwapRequest) error
}

type Recorder struct {
	writer HistoryWriter
}

func NewRecorder(w HistoryWriter) *Recorder {
	return &Recorder{writer: w}
}

// Record writes one history row. Failures are logged and counted, never
// returned, and the write is not cut short by the caller's cancellation.
func (r *Recorder) Record(ctx context.Context, req Request, text string) {
	if r == nil || r.writer == nil {
		return
	}
	req = req.WithDefaults()
	amt := historyAmount(req.Amount)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			metrics.ExplanationLogFailures.Inc()
			zap.L().Error("explain history write panicked", zap.Any("panic", p))
		}
	}()
	if err := r.writer.InsertSwapRequest(writeCtx, store.SwapRequest{
		ID:          uuid.NewString(),
		SrcSymbol:   req.SrcSymbol,
		DstSymbol:   req.DstSymbol,
		Amount:      amt.String(),
		RiskLevel:   truncateRunes(req.Risk, maxRiskLength),
		Explanation: text,
	}); err != nil {
		metrics.ExplanationLogFailures.Inc()
		zap.L().Warn("dropping explain history row", zap.Error(err))
	}
}

// historyAmount accepts plain decimals only; anything else, including
// exponent forms and oversized inputs, is logged as 0.
func historyAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxAmountLength {
		return decimal.Zero
	}
	d, err := amount.ParseHuman(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
