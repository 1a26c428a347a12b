package app

import (
	"github.com/spf13/cobra"

	"github.com/ggonzalez94/swapsage/internal/explain"
	"github.com/ggonzalez94/swapsage/internal/model"
	"github.com/ggonzalez94/swapsage/internal/quote"
)

func (s *runtimeState) newQuoteCommand() *cobra.Command {
	var chainArg, src, dst, amount string
	var decimals int
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch a cached swap quote with its risk label",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := s.resolveChain(chainArg)
			if err != nil {
				return err
			}
			req := quote.Request{ChainID: chainID, Src: src, Dst: dst, Amount: amount}
			if cmd.Flags().Changed("decimals") {
				req.Decimals = &decimals
			}
			res, err := s.services.quotes.Quote(cmd.Context(), req)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, map[string]any{
				"data":          res.Data,
				"risk":          res.Risk,
				"amount_wei":    res.AmountWei,
				"dst_amount":    res.DstAmount,
				"route_summary": res.Route,
				"gas":           res.Gas,
				"cache_key":     res.CacheKey,
			}, model.EnvelopeMeta{ChainID: chainID, Cache: string(res.Cache)})
		},
	}
	cmd.Flags().StringVar(&chainArg, "chain", "", "Chain id/name/CAIP-2")
	cmd.Flags().StringVar(&src, "src", "", "Source token address")
	cmd.Flags().StringVar(&dst, "dst", "", "Destination token address")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in human units")
	cmd.Flags().IntVar(&decimals, "decimals", 18, "Source token decimals")
	return cmd
}

func (s *runtimeState) newExplainCommand() *cobra.Command {
	var req explain.Request
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Render a route explanation and record it in the history",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := explain.Explain(req)
			s.services.recorder.Record(cmd.Context(), req, text)
			return s.emitSuccess(cmd, map[string]any{"explanation": text}, model.EnvelopeMeta{})
		},
	}
	cmd.Flags().StringVar(&req.RouteSummary, "route-summary", "", "Route summary (default \"best route\")")
	cmd.Flags().StringVar(&req.Risk, "risk", "", "Risk label (default \"unknown\")")
	cmd.Flags().StringVar(&req.SrcSymbol, "src-symbol", "", "Source token symbol")
	cmd.Flags().StringVar(&req.DstSymbol, "dst-symbol", "", "Destination token symbol")
	cmd.Flags().StringVar(&req.Amount, "amount", "", "Amount in human units")
	return cmd
}
