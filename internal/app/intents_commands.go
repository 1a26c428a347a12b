package app

import (
	"encoding/json"

	"github.com/spf13/cobra"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/intent"
	"github.com/ggonzalez94/swapsage/internal/model"
)

func (s *runtimeState) newIntentsCommand() *cobra.Command {
	root := &cobra.Command{Use: "intents", Short: "Swap intent ledger commands"}

	var create intent.CreateRequest
	var createChain string
	var slippage int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new swap intent in DRAFT",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := s.resolveChain(createChain)
			if err != nil {
				return err
			}
			create.ChainID = chainID
			if cmd.Flags().Changed("slippage-bps") {
				create.SlippageBps = &slippage
			}
			it, err := s.services.intents.Create(cmd.Context(), create)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, it, model.EnvelopeMeta{ChainID: chainID})
		},
	}
	createCmd.Flags().StringVar(&createChain, "chain", "", "Chain id/name/CAIP-2")
	createCmd.Flags().StringVar(&create.WalletAddress, "wallet", "", "Wallet address")
	createCmd.Flags().StringVar(&create.SrcToken, "src", "", "Source token address")
	createCmd.Flags().StringVar(&create.DstToken, "dst", "", "Destination token address")
	createCmd.Flags().StringVar(&create.Amount, "amount", "", "Amount in human units")
	createCmd.Flags().IntVar(&slippage, "slippage-bps", intent.DefaultSlippageBps, "Slippage tolerance in basis points")
	_ = createCmd.MarkFlagRequired("wallet")
	root.AddCommand(createCmd)

	var change intent.StatusChange
	statusCmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Move an intent to a new status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := s.services.intents.Advance(cmd.Context(), args[0], change)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, it, model.EnvelopeMeta{ChainID: it.ChainID})
		},
	}
	statusCmd.Flags().StringVar(&change.Status, "status", "", "Target status: QUOTED, EXECUTED or FAILED")
	statusCmd.Flags().StringVar(&change.TxHash, "tx-hash", "", "Transaction hash (with EXECUTED)")
	statusCmd.Flags().StringVar(&change.RouteSummary, "route-summary", "", "Quoted route (with QUOTED)")
	statusCmd.Flags().StringVar(&change.RiskLevel, "risk-level", "", "Quoted risk level (with QUOTED)")
	_ = statusCmd.MarkFlagRequired("status")
	root.AddCommand(statusCmd)

	var filter intent.Filter
	var listChain string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List intents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listChain != "" {
				chainID, err := s.resolveChain(listChain)
				if err != nil {
					return err
				}
				filter.ChainID = chainID
			}
			list, err := s.services.intents.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, list, model.EnvelopeMeta{ChainID: filter.ChainID})
		},
	}
	listCmd.Flags().StringVar(&listChain, "chain", "", "Only intents on this chain")
	listCmd.Flags().StringVar(&filter.WalletAddress, "wallet", "", "Only intents for this wallet")
	listCmd.Flags().StringVar(&filter.Status, "status", "", "Only intents in this status")
	listCmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum intents to return (default 50)")
	root.AddCommand(listCmd)

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := s.services.intents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, it, model.EnvelopeMeta{ChainID: it.ChainID})
		},
	}
	root.AddCommand(getCmd)

	var input intent.ExplanationInput
	var meta string
	explainCmd := &cobra.Command{
		Use:   "explain <id>",
		Short: "Attach an explanation to an intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if meta != "" {
				if !json.Valid([]byte(meta)) {
					return apperr.New(apperr.CodeValidation, "--meta must be valid JSON")
				}
				input.Meta = json.RawMessage(meta)
			}
			ex, err := s.services.intents.AttachExplanation(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, ex, model.EnvelopeMeta{})
		},
	}
	explainCmd.Flags().StringVar(&input.Model, "model", "", "Model label (default from config)")
	explainCmd.Flags().StringVar(&input.Prompt, "prompt", "", "Prompt text")
	explainCmd.Flags().StringVar(&input.Text, "text", "", "Explanation text (default: rendered template)")
	explainCmd.Flags().StringVar(&meta, "meta", "", "Metadata JSON object")
	root.AddCommand(explainCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an intent and its explanations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.services.intents.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return s.emitSuccess(cmd, map[string]any{"id": args[0], "deleted": true}, model.EnvelopeMeta{})
		},
	}
	root.AddCommand(deleteCmd)

	return root
}
