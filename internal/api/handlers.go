package api

import (
	"net/http"

	"github.com/ggonzalez94/swapsage/internal/explain"
	"github.com/ggonzalez94/swapsage/internal/intent"
	"github.com/ggonzalez94/swapsage/internal/quote"
	"github.com/ggonzalez94/swapsage/internal/registry"
	"github.com/ggonzalez94/swapsage/internal/store"
)

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	decimals, err := intParam(q.Get("decimals"), "decimals")
	if err != nil {
		writeError(w, r, err)
		return
	}
	chainID, err := s.chainParam(q.Get("chain_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Quotes.Quote(r.Context(), quote.Request{
		ChainID:  chainID,
		Src:      q.Get("src"),
		Dst:      q.Get("dst"),
		Amount:   q.Get("amount"),
		Decimals: decimals,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{
		"data":          res.Data,
		"risk":          res.Risk,
		"cache":         res.Cache,
		"amount_wei":    res.AmountWei,
		"dst_amount":    res.DstAmount,
		"route_summary": res.Route,
	})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := explain.Request{
		RouteSummary: q.Get("route_summary"),
		Risk:         q.Get("risk"),
		SrcSymbol:    q.Get("src_symbol"),
		DstSymbol:    q.Get("dst_symbol"),
		Amount:       q.Get("amount"),
	}
	text := explain.Explain(req)
	writeOK(w, http.StatusOK, envelope{"explanation": text})
	s.deps.Recorder.Record(r.Context(), req, text)
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	chainID, err := s.chainParam(r.URL.Query().Get("chain_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}
	tokens, err := s.deps.Registry.ListOrHydrate(r.Context(), chainID, n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"chain_id": chainID, "tokens": tokens})
}

type tokenBody struct {
	ChainID  int64  `json:"chain_id"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals *int   `json:"decimals"`
	LogoURI  string `json:"logo_uri"`
	IsNative bool   `json:"is_native"`
}

func (s *Server) handlePutToken(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.ChainID == 0 {
		body.ChainID = s.deps.DefaultChainID
	}
	decimals := registry.DefaultDecimals
	if body.Decimals != nil {
		decimals = *body.Decimals
	}
	tok, err := s.deps.Registry.Upsert(r.Context(), store.Token{
		ChainID:  body.ChainID,
		Address:  body.Address,
		Symbol:   body.Symbol,
		Name:     body.Name,
		Decimals: decimals,
		LogoURI:  body.LogoURI,
		IsNative: body.IsNative,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"token": tok})
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	chainID, err := s.chainParam(r.PathValue("chain"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := s.deps.Registry.Lookup(r.Context(), chainID, r.PathValue("address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"token": tok})
}

func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	chainID, err := s.chainParam(r.PathValue("chain"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Registry.Delete(r.Context(), chainID, r.PathValue("address")); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req intent.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ChainID == 0 {
		req.ChainID = s.deps.DefaultChainID
	}
	it, err := s.deps.Intents.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"intent": it})
}

func (s *Server) handleListIntents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := intent.Filter{WalletAddress: q.Get("wallet"), Status: q.Get("status")}
	if limit != nil {
		filter.Limit = *limit
	}
	if raw := q.Get("chain_id"); raw != "" {
		if filter.ChainID, err = s.chainParam(raw); err != nil {
			writeError(w, r, err)
			return
		}
	}
	list, err := s.deps.Intents.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"intents": list})
}

func (s *Server) handleGetIntent(w http.ResponseWriter, r *http.Request) {
	it, err := s.deps.Intents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"intent": it})
}

func (s *Server) handleDeleteIntent(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Intents.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleIntentStatus(w http.ResponseWriter, r *http.Request) {
	var change intent.StatusChange
	if err := decodeBody(r, &change); err != nil {
		writeError(w, r, err)
		return
	}
	it, err := s.deps.Intents.Advance(r.Context(), r.PathValue("id"), change)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"intent": it})
}

func (s *Server) handleListExplanations(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Intents.Explanations(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"explanations": list})
}

func (s *Server) handleAttachExplanation(w http.ResponseWriter, r *http.Request) {
	var in intent.ExplanationInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ex, err := s.deps.Intents.AttachExplanation(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"explanation": ex})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeOK(w, http.StatusOK, nil)
		return
	}
	if err := s.deps.Health.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, envelope{"ok": false, "error": "store unavailable"})
		return
	}
	n, err := s.deps.Health.CountQuotes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, envelope{"ok": false, "error": "store unavailable"})
		return
	}
	writeOK(w, http.StatusOK, envelope{"cached_quotes": n})
}
