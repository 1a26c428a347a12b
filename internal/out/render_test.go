package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ggonzalez94/swapsage/internal/model"
)

type tokenRow struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

func TestRenderJSONSelectResultsOnly(t *testing.T) {
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: true,
		Data:    []tokenRow{{Symbol: "USDC", Address: "0xa0b8", Decimals: 6}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, Options{Mode: ModeJSON, SelectFields: []string{"symbol"}, ResultsOnly: true}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["symbol"] != "USDC" {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if _, ok := rows[0]["decimals"]; ok {
		t.Fatalf("field projection failed: %s", buf.String())
	}
}

func TestRenderFullEnvelope(t *testing.T) {
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: true,
		Data:    map[string]any{"explanation": "ok"},
		Meta:    model.EnvelopeMeta{RequestID: "r1", Command: "explain", Timestamp: time.Now()},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, Options{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if decoded["success"] != true || decoded["version"] != "v1" {
		t.Fatalf("unexpected envelope: %s", buf.String())
	}
}

func TestRenderPlain(t *testing.T) {
	env := model.Envelope{
		Success: true,
		Data:    []tokenRow{{Symbol: "DAI", Decimals: 18}},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, Options{Mode: ModePlain, ResultsOnly: true}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "symbol=DAI") || !strings.Contains(buf.String(), "decimals=18") {
		t.Fatalf("unexpected plain output: %s", buf.String())
	}

	buf.Reset()
	if err := Render(&buf, model.Envelope{Success: true, Data: []tokenRow{}}, Options{Mode: ModePlain, ResultsOnly: true}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty list marker, got %q", buf.String())
	}
}
