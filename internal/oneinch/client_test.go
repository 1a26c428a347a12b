package oneinch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/httpx"
)

const quoteBody = `{
  "dstAmount": "2500000000",
  "priceImpact": 0.42,
  "gas": 182000,
  "srcToken": {"address": "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", "symbol": "ETH", "name": "Ether", "decimals": 18},
  "dstToken": {"address": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "symbol": "USDC", "name": "USD Coin", "decimals": 6},
  "protocols": [[[{"name": "UNISWAP_V3", "part": 100}], [{"name": "CURVE", "part": 100}, {"name": "UNISWAP_V3", "part": 0}]]]
}`

func TestQuoteRequiresAPIKey(t *testing.T) {
	c := New(httpx.New(time.Second, 0), "", "")
	_, err := c.FetchQuote(context.Background(), 1, "0xa", "0xb", "1")
	if !apperr.Is(err, apperr.CodeAuth) {
		t.Fatalf("expected missing API key error, got %v", err)
	}
}

func TestFetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap/v6.0/1/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		q := r.URL.Query()
		if q.Get("amount") != "1000000000000000000" || q.Get("includeGas") != "true" || q.Get("includeProtocols") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	c := New(httpx.New(time.Second, 0), srv.URL, "test-key")
	quote, err := c.FetchQuote(context.Background(), 1,
		"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "1000000000000000000")
	if err != nil {
		t.Fatalf("FetchQuote failed: %v", err)
	}
	if quote.DstAmount != "2500000000" || quote.Gas != "182000" {
		t.Fatalf("unexpected quote fields: %+v", quote)
	}
	if quote.PriceImpact == nil || *quote.PriceImpact != 0.42 {
		t.Fatalf("unexpected price impact %v", quote.PriceImpact)
	}
	if quote.DstToken == nil || quote.DstToken.Decimals != 6 {
		t.Fatalf("expected dst token info, got %+v", quote.DstToken)
	}
	if got := quote.RouteSummary(); got != "UNISWAP_V3 > CURVE" {
		t.Fatalf("unexpected route summary %q", got)
	}
	buf, err := json.Marshal(quote)
	if err != nil {
		t.Fatalf("marshal quote: %v", err)
	}
	if !strings.Contains(string(buf), `"dstAmount":"2500000000"`) {
		t.Fatalf("expected raw payload passthrough, got %s", buf)
	}
}

func TestFetchTokenList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap/v6.0/8453/tokens" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"tokens":{"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913":{"address":"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913","symbol":"USDC","name":"USD Coin","decimals":6,"logoURI":"https://x/usdc.png"}}}`))
	}))
	defer srv.Close()

	c := New(httpx.New(time.Second, 0), srv.URL+"/", "k")
	tokens, err := c.FetchTokenList(context.Background(), 8453)
	if err != nil {
		t.Fatalf("FetchTokenList failed: %v", err)
	}
	tok, ok := tokens["0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"]
	if !ok || tok.Symbol != "USDC" || tok.Decimals != 6 || tok.LogoURI == "" {
		t.Fatalf("unexpected token list: %+v", tokens)
	}
}

func TestFetchQuoteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"description":"insufficient liquidity"}`))
	}))
	defer srv.Close()

	c := New(httpx.New(time.Second, 0), srv.URL, "k")
	_, err := c.FetchQuote(context.Background(), 1, "0xa", "0xb", "1")
	if !apperr.Is(err, apperr.CodeExternalAPI) {
		t.Fatalf("expected external api error, got %v", err)
	}
	if !strings.Contains(err.Error(), "insufficient liquidity") {
		t.Fatalf("expected upstream message in error, got %v", err)
	}
}

func TestParseQuoteStringImpactAndMissingProtocols(t *testing.T) {
	quote, err := ParseQuote([]byte(`{"dstAmount":"5","priceImpact":"1.5"}`))
	if err != nil {
		t.Fatalf("ParseQuote failed: %v", err)
	}
	if quote.PriceImpact == nil || *quote.PriceImpact != 1.5 {
		t.Fatalf("expected string impact to parse, got %v", quote.PriceImpact)
	}
	if quote.RouteSummary() != "1inch" {
		t.Fatalf("expected fallback route summary, got %q", quote.RouteSummary())
	}

	quote, err = ParseQuote([]byte(`{"dstAmount":"5"}`))
	if err != nil {
		t.Fatalf("ParseQuote failed: %v", err)
	}
	if quote.PriceImpact != nil {
		t.Fatalf("expected missing impact, got %v", *quote.PriceImpact)
	}
}

func TestParseQuoteRejectsNonFiniteImpact(t *testing.T) {
	for _, body := range []string{
		`{"dstAmount":"1","priceImpact":"NaN"}`,
		`{"dstAmount":"1","priceImpact":"Inf"}`,
		`{"dstAmount":"1","priceImpact":"-Infinity"}`,
	} {
		if _, err := ParseQuote([]byte(body)); !apperr.Is(err, apperr.CodeExternalAPI) {
			t.Fatalf("expected upstream decode error for %s, got %v", body, err)
		}
	}
}

func TestFetchQuoteAcceptsImpactOnlyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"priceImpact": 1.5}`))
	}))
	defer srv.Close()

	c := New(httpx.New(time.Second, 0), srv.URL, "test-key")
	quote, err := c.FetchQuote(context.Background(), 1,
		"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "1")
	if err != nil {
		t.Fatalf("FetchQuote failed: %v", err)
	}
	if quote.DstAmount != "" || quote.PriceImpact == nil || *quote.PriceImpact != 1.5 {
		t.Fatalf("unexpected quote: %+v", quote)
	}
}
