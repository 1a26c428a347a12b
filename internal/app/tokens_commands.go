package app

import (
	"github.com/spf13/cobra"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/model"
	"github.com/ggonzalez94/swapsage/internal/registry"
	"github.com/ggonzalez94/swapsage/internal/store"
)

func (s *runtimeState) newTokensCommand() *cobra.Command {
	root := &cobra.Command{Use: "tokens", Short: "Token registry commands"}

	var syncChain string
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the aggregator token list into the registry (API key required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := s.resolveChain(syncChain)
			if err != nil {
				return err
			}
			if !s.services.upstream.HasKey() {
				return apperr.New(apperr.CodeAuth, "token sync requires SWAPSAGE_1INCH_API_KEY")
			}
			n, err := s.services.registry.Hydrate(cmd.Context(), chainID)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, map[string]any{"chain_id": chainID, "synced": n}, model.EnvelopeMeta{ChainID: chainID})
		},
	}
	syncCmd.Flags().StringVar(&syncChain, "chain", "", "Chain id/name/CAIP-2")
	root.AddCommand(syncCmd)

	var seedChain string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Register the built-in tokens for a chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := s.resolveChain(seedChain)
			if err != nil {
				return err
			}
			n, err := s.services.registry.Seed(cmd.Context(), chainID)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, map[string]any{"chain_id": chainID, "seeded": n}, model.EnvelopeMeta{ChainID: chainID})
		},
	}
	seedCmd.Flags().StringVar(&seedChain, "chain", "", "Chain id/name/CAIP-2")
	root.AddCommand(seedCmd)

	var listChain string
	var listLimit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := s.resolveChain(listChain)
			if err != nil {
				return err
			}
			tokens, err := s.services.registry.List(cmd.Context(), chainID, listLimit)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, tokens, model.EnvelopeMeta{ChainID: chainID})
		},
	}
	listCmd.Flags().StringVar(&listChain, "chain", "", "Chain id/name/CAIP-2")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum tokens to return (default 1000)")
	root.AddCommand(listCmd)

	var getChain, getAddress string
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show one token",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := s.resolveChain(getChain)
			if err != nil {
				return err
			}
			tok, err := s.services.registry.Lookup(cmd.Context(), chainID, getAddress)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, tok, model.EnvelopeMeta{ChainID: chainID})
		},
	}
	getCmd.Flags().StringVar(&getChain, "chain", "", "Chain id/name/CAIP-2")
	getCmd.Flags().StringVar(&getAddress, "address", "", "Token contract address")
	_ = getCmd.MarkFlagRequired("address")
	root.AddCommand(getCmd)

	var put store.Token
	var putChain string
	putCmd := &cobra.Command{
		Use:   "put",
		Short: "Create or update a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := s.resolveChain(putChain)
			if err != nil {
				return err
			}
			put.ChainID = chainID
			tok, err := s.services.registry.Upsert(cmd.Context(), put)
			if err != nil {
				return err
			}
			return s.emitSuccess(cmd, tok, model.EnvelopeMeta{ChainID: chainID})
		},
	}
	putCmd.Flags().StringVar(&putChain, "chain", "", "Chain id/name/CAIP-2")
	putCmd.Flags().StringVar(&put.Address, "address", "", "Token contract address")
	putCmd.Flags().StringVar(&put.Symbol, "symbol", "", "Token symbol")
	putCmd.Flags().StringVar(&put.Name, "name", "", "Token name")
	putCmd.Flags().IntVar(&put.Decimals, "decimals", registry.DefaultDecimals, "Token decimals")
	putCmd.Flags().StringVar(&put.LogoURI, "logo-uri", "", "Token logo URI")
	putCmd.Flags().BoolVar(&put.IsNative, "native", false, "Mark as the chain's native asset")
	_ = putCmd.MarkFlagRequired("address")
	root.AddCommand(putCmd)

	var delChain, delAddress string
	delCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a token not referenced by any intent",
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := s.resolveChain(delChain)
			if err != nil {
				return err
			}
			if err := s.services.registry.Delete(cmd.Context(), chainID, delAddress); err != nil {
				return err
			}
			return s.emitSuccess(cmd, map[string]any{"chain_id": chainID, "address": delAddress, "deleted": true}, model.EnvelopeMeta{ChainID: chainID})
		},
	}
	delCmd.Flags().StringVar(&delChain, "chain", "", "Chain id/name/CAIP-2")
	delCmd.Flags().StringVar(&delAddress, "address", "", "Token contract address")
	_ = delCmd.MarkFlagRequired("address")
	root.AddCommand(delCmd)

	return root
}
