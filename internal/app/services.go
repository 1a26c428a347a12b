package app

import (
	"strings"

	"github.com/ggonzalez94/swapsage/internal/chain"
	"github.com/ggonzalez94/swapsage/internal/config"
	"github.com/ggonzalez94/swapsage/internal/explain"
	"github.com/ggonzalez94/swapsage/internal/httpx"
	"github.com/ggonzalez94/swapsage/internal/intent"
	"github.com/ggonzalez94/swapsage/internal/oneinch"
	"github.com/ggonzalez94/swapsage/internal/quote"
	"github.com/ggonzalez94/swapsage/internal/registry"
	"github.com/ggonzalez94/swapsage/internal/store"
)

// services is the component graph shared by the HTTP server and the CLI.
type services struct {
	upstream *oneinch.Client
	registry *registry.Service
	quotes   *quote.Service
	intents  *intent.Service
	recorder *explain.Recorder
}

func newServices(settings config.Settings, st *store.Store) *services {
	httpClient := httpx.New(settings.Timeout, settings.Retries)
	upstream := oneinch.New(httpClient, settings.OneInchBaseURL, settings.OneInchAPIKey)
	reg := registry.New(st, upstream)
	return &services{
		upstream: upstream,
		registry: reg,
		quotes:   quote.NewService(quote.NewCache(st, settings.QuoteTTL), upstream, reg),
		intents:  intent.New(st, reg, settings.ExplanationModel),
		recorder: explain.NewRecorder(st),
	}
}

// resolveChain parses a --chain flag value, falling back to the configured default.
func (s *runtimeState) resolveChain(input string) (int64, error) {
	if strings.TrimSpace(input) == "" {
		return s.settings.ChainID, nil
	}
	c, err := chain.Parse(input)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}
