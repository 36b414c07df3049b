package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"monthlynet/internal/core"
	"monthlynet/internal/log"

	goption "google.golang.org/api/option"
)

type fakeGemini struct {
	srv      *httptest.Server
	calls    atomic.Int32
	lastPath atomic.Value
	lastBody atomic.Value
}

// newFakeGemini serves generateContent with reply as the candidate text.
// Any status other than 200 makes the server fail with that code.
func newFakeGemini(t *testing.T, status int, reply string) *fakeGemini {
	t.Helper()
	f := &fakeGemini{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.lastPath.Store(r.URL.Path)
		f.lastBody.Store(string(body))
		if status != http.StatusOK {
			http.Error(w, `{"error":{"code":500,"message":"boom"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": reply}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGemini) body() string {
	v, _ := f.lastBody.Load().(string)
	return v
}

func newTestGemini(t *testing.T, f *fakeGemini) *Gemini {
	t.Helper()
	g, err := New(context.Background(), Options{
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
		Logger:  log.New(log.Config{Output: io.Discard, Component: log.ComponentAI}),
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(f.srv.URL + "/"),
			goption.WithHTTPClient(f.srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func history(n int) []core.HistoryEntry {
	var out []core.HistoryEntry
	base := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	// Inserted newest first to exercise sorting.
	for i := n - 1; i >= 0; i-- {
		s := core.BalanceSnapshot{Cash: float64(1000 * (i + 1))}
		out = append(out, core.NewHistoryEntry(fmt.Sprintf("e%d", i), s, base.AddDate(0, i, 0)))
	}
	return out
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatalf("expected error without API key")
	}
}

func TestParseBalances(t *testing.T) {
	f := newFakeGemini(t, http.StatusOK, `{"cash": 2500, "creditCards": 300}`)
	g := newTestGemini(t, f)

	got := g.ParseBalances(context.Background(), "I have 2500 in cash and owe 300 on my card")
	if got.Cash == nil || *got.Cash != 2500 {
		t.Fatalf("cash = %v, want 2500", got.Cash)
	}
	if got.CreditCards == nil || *got.CreditCards != 300 {
		t.Fatalf("creditCards = %v, want 300", got.CreditCards)
	}
	if got.Savings != nil || got.Mortgage != nil {
		t.Fatalf("unmentioned fields should stay nil: %+v", got)
	}

	if p, _ := f.lastPath.Load().(string); p != "/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("unexpected request path %q", p)
	}
	body := f.body()
	for _, want := range []string{`"responseMimeType":"application/json"`, `"realEstate"`, `owe 300 on my card`} {
		if !strings.Contains(body, want) {
			t.Fatalf("request body missing %s: %s", want, body)
		}
	}
}

func TestParseBalancesFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
		input  string
		calls  int32
	}{
		{"blank input skips call", http.StatusOK, `{"cash":1}`, "   ", 0},
		{"server error", http.StatusInternalServerError, "", "cash 10", 1},
		{"malformed reply", http.StatusOK, "not json", "cash 10", 1},
		{"empty reply", http.StatusOK, "", "cash 10", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeGemini(t, tt.status, tt.reply)
			g := newTestGemini(t, f)
			got := g.ParseBalances(context.Background(), tt.input)
			if !got.Empty() {
				t.Fatalf("expected empty result, got %+v", got)
			}
			if c := f.calls.Load(); c != tt.calls {
				t.Fatalf("calls = %d, want %d", c, tt.calls)
			}
		})
	}
}

func TestGenerateInsights(t *testing.T) {
	reply := `{"summary":"Growing steadily.","projection":"Expect about $9k next month.","actionableTip":"Keep saving."}`
	f := newFakeGemini(t, http.StatusOK, reply)
	g := newTestGemini(t, f)

	got := g.GenerateInsights(context.Background(), history(8))
	want := core.InsightResponse{
		Summary:       "Growing steadily.",
		Projection:    "Expect about $9k next month.",
		ActionableTip: "Keep saving.",
	}
	if got != want {
		t.Fatalf("GenerateInsights() = %+v, want %+v", got, want)
	}

	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			ResponseSchema struct {
				Required []string `json:"required"`
			} `json:"responseSchema"`
		} `json:"generationConfig"`
	}
	if err := json.Unmarshal([]byte(f.body()), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if len(req.GenerationConfig.ResponseSchema.Required) != 3 {
		t.Fatalf("expected three required fields, got %v", req.GenerationConfig.ResponseSchema.Required)
	}
	prompt := req.Contents[0].Parts[0].Text
	if n := strings.Count(prompt, `"netWorth"`); n != InsightWindow {
		t.Fatalf("prompt carries %d entries, want %d", n, InsightWindow)
	}
	// Oldest two of eight are dropped, the rest appear in ascending order.
	if strings.Contains(prompt, `"netWorth": 1000,`) || strings.Contains(prompt, `"netWorth": 2000,`) {
		t.Fatalf("prompt should only carry the newest entries:\n%s", prompt)
	}
	if strings.Index(prompt, `"netWorth": 3000`) > strings.Index(prompt, `"netWorth": 8000`) {
		t.Fatalf("entries not in ascending order:\n%s", prompt)
	}
}

func TestGenerateInsightsFallbacks(t *testing.T) {
	t.Run("not enough history", func(t *testing.T) {
		f := newFakeGemini(t, http.StatusOK, `{}`)
		g := newTestGemini(t, f)
		if got := g.GenerateInsights(context.Background(), history(1)); got != NotEnoughDataInsight {
			t.Fatalf("got %+v", got)
		}
		if f.calls.Load() != 0 {
			t.Fatalf("model should not be called")
		}
	})
	t.Run("server error", func(t *testing.T) {
		f := newFakeGemini(t, http.StatusInternalServerError, "")
		g := newTestGemini(t, f)
		if got := g.GenerateInsights(context.Background(), history(3)); got != UnavailableInsight {
			t.Fatalf("got %+v", got)
		}
	})
	t.Run("malformed reply", func(t *testing.T) {
		f := newFakeGemini(t, http.StatusOK, "{oops")
		g := newTestGemini(t, f)
		if got := g.GenerateInsights(context.Background(), history(3)); got != UnavailableInsight {
			t.Fatalf("got %+v", got)
		}
	})
}

func TestDisabled(t *testing.T) {
	var c Collaborator = Disabled{}
	if c.Enabled() {
		t.Fatalf("Disabled should not be enabled")
	}
	if got := c.ParseBalances(context.Background(), "cash 100"); !got.Empty() {
		t.Fatalf("expected empty parse, got %+v", got)
	}
	if got := c.GenerateInsights(context.Background(), history(5)); got != NotEnoughDataInsight {
		t.Fatalf("expected not-enough-data insight, got %+v", got)
	}
}

func TestBuildInsightPromptKeepsFields(t *testing.T) {
	prompt, err := buildInsightPrompt(history(2))
	if err != nil {
		t.Fatalf("buildInsightPrompt() error = %v", err)
	}
	for _, key := range []string{`"date"`, `"netWorth"`, `"assets"`, `"liabilities"`} {
		if !bytes.Contains([]byte(prompt), []byte(key)) {
			t.Fatalf("prompt missing %s", key)
		}
	}
}
