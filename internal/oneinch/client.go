// Package oneinch talks to the 1inch swap API (v6.0) for token lists and quotes.
package oneinch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/httpx"
	"github.com/ggonzalez94/swapsage/internal/metrics"
)

const DefaultBaseURL = "https://api.1inch.dev"

type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
}

// New returns a client bound to one API key. The key is fixed for the
// client's lifetime; a new key means a new client.
func New(httpClient *httpx.Client, baseURL, apiKey string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (c *Client) HasKey() bool { return c.apiKey != "" }

type TokenMetadata struct {
	Address  string   `json:"address"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Decimals int      `json:"decimals"`
	LogoURI  string   `json:"logoURI,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type tokenListResponse struct {
	Tokens map[string]TokenMetadata `json:"tokens"`
}

// FetchTokenList returns the aggregator's token list keyed by address.
func (c *Client) FetchTokenList(ctx context.Context, chainID int64) (map[string]TokenMetadata, error) {
	var resp tokenListResponse
	if err := c.get(ctx, "tokens", chainID, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Tokens == nil {
		return map[string]TokenMetadata{}, nil
	}
	return resp.Tokens, nil
}

// FetchQuote asks for a quote selling amountWei of src for dst.
func (c *Client) FetchQuote(ctx context.Context, chainID int64, src, dst, amountWei string) (QuoteResponse, error) {
	vals := url.Values{}
	vals.Set("src", src)
	vals.Set("dst", dst)
	vals.Set("amount", amountWei)
	vals.Set("includeTokensInfo", "true")
	vals.Set("includeProtocols", "true")
	vals.Set("includeGas", "true")

	var raw json.RawMessage
	if err := c.get(ctx, "quote", chainID, vals, &raw); err != nil {
		return QuoteResponse{}, err
	}
	quote, err := ParseQuote(raw)
	if err != nil {
		return QuoteResponse{}, err
	}
	if quote.DstAmount == "" {
		zap.L().Debug("1inch quote without dstAmount", zap.Int64("chain_id", chainID))
	}
	return quote, nil
}

func (c *Client) get(ctx context.Context, endpoint string, chainID int64, vals url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = apperr.TypeName(err)
		}
		metrics.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
		metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	if c.apiKey == "" {
		return apperr.New(apperr.CodeAuth, "missing 1inch API key (SWAPSAGE_1INCH_API_KEY)")
	}
	target := fmt.Sprintf("%s/swap/v6.0/%s/%s", c.baseURL, strconv.FormatInt(chainID, 10), endpoint)
	if len(vals) > 0 {
		target += "?" + vals.Encode()
	}
	_, err = httpx.DoBodyJSON(ctx, c.http, http.MethodGet, target, nil,
		map[string]string{"Authorization": "Bearer " + c.apiKey}, out)
	return err
}

// QuoteResponse keeps the upstream payload verbatim next to the fields the
// service reads from it.
type QuoteResponse struct {
	Raw         json.RawMessage
	DstAmount   string
	PriceImpact *float64
	Gas         string
	SrcToken    *TokenMetadata
	DstToken    *TokenMetadata
	Protocols   json.RawMessage
}

type quoteWire struct {
	DstAmount   string          `json:"dstAmount"`
	PriceImpact json.RawMessage `json:"priceImpact"`
	Gas         json.Number     `json:"gas"`
	SrcToken    *TokenMetadata  `json:"srcToken"`
	DstToken    *TokenMetadata  `json:"dstToken"`
	Protocols   json.RawMessage `json:"protocols"`
}

func ParseQuote(raw []byte) (QuoteResponse, error) {
	var wire quoteWire
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return QuoteResponse{}, apperr.Wrap(apperr.CodeExternalAPI, "decode 1inch quote", err)
	}
	impact, err := parseFlexibleFloat(wire.PriceImpact)
	if err != nil {
		return QuoteResponse{}, apperr.Wrap(apperr.CodeExternalAPI, "decode 1inch priceImpact", err)
	}
	return QuoteResponse{
		Raw:         append(json.RawMessage(nil), raw...),
		DstAmount:   wire.DstAmount,
		PriceImpact: impact,
		Gas:         wire.Gas.String(),
		SrcToken:    wire.SrcToken,
		DstToken:    wire.DstToken,
		Protocols:   wire.Protocols,
	}, nil
}

// MarshalJSON returns the upstream payload unchanged.
func (q QuoteResponse) MarshalJSON() ([]byte, error) {
	if len(q.Raw) == 0 {
		return []byte("null"), nil
	}
	return q.Raw, nil
}

type protocolHop struct {
	Name string `json:"name"`
}

// RouteSummary names the liquidity sources used by the quote in the order
// they first appear, e.g. "UNISWAP_V3 > CURVE". Falls back to "1inch".
func (q QuoteResponse) RouteSummary() string {
	var routes [][][]protocolHop
	if len(q.Protocols) == 0 || json.Unmarshal(q.Protocols, &routes) != nil {
		return "1inch"
	}
	seen := map[string]bool{}
	var names []string
	for _, route := range routes {
		for _, step := range route {
			for _, hop := range step {
				if hop.Name == "" || seen[hop.Name] {
					continue
				}
				seen[hop.Name] = true
				names = append(names, hop.Name)
			}
		}
	}
	if len(names) == 0 {
		return "1inch"
	}
	return strings.Join(names, " > ")
}

// priceImpact has been sent both as a number and as a numeric string.
func parseFlexibleFloat(raw json.RawMessage) (*float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("non-finite value %q", text)
	}
	return &v, nil
}
