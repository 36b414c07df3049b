package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"monthlynet/internal/core"
	"monthlynet/internal/log"

	gl "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

const parsePrompt = `Extract financial balance updates from this text. Map them to the following categories: cash, savings, investments, realEstate, creditCards, loans, mortgage. Return ONLY a JSON object.

Text: %q`

const insightPrompt = `Analyze this net worth history and provide a brief financial health check.

Data (Chronological):
%s

Provide a JSON response with 3 fields:
1. summary: A 1-sentence summary of the trend.
2. projection: A 1-sentence projection for next month based on the trend.
3. actionableTip: A short, friendly tip based on the data.
`

// Options configures a Gemini collaborator.
type Options struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *log.Logger
	// ClientOptions are appended after the API key, e.g. to point at a test server.
	ClientOptions []goption.ClientOption
}

// Gemini calls the Generative Language API.
type Gemini struct {
	svc     *gl.Service
	model   string
	timeout time.Duration
	logger  *log.Logger
}

var _ Collaborator = (*Gemini)(nil)

// New builds a Gemini collaborator. It fails only when the client cannot be
// constructed; callers without a key should use Disabled.
func New(ctx context.Context, opts Options) (*Gemini, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentAI})
	}

	clientOpts := append([]goption.ClientOption{
		goption.WithAPIKey(opts.APIKey),
	}, opts.ClientOptions...)

	svc, err := gl.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("generative language service: %w", err)
	}

	logger.Info("Gemini collaborator ready", log.FieldModel, model, "timeout", timeout)
	return &Gemini{svc: svc, model: model, timeout: timeout, logger: logger}, nil
}

func (g *Gemini) Enabled() bool { return true }

// ParseBalances implements Collaborator.
func (g *Gemini) ParseBalances(ctx context.Context, text string) core.ParsedBalances {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.ParsedBalances{}
	}

	number := gl.Schema{Type: "NUMBER"}
	props := make(map[string]gl.Schema, len(core.BalanceFields))
	for _, f := range core.BalanceFields {
		props[f.Key] = number
	}
	schema := &gl.Schema{Type: "OBJECT", Properties: props}

	raw, err := g.generate(ctx, fmt.Sprintf(parsePrompt, text), schema)
	if err != nil {
		g.logger.WarnContext(ctx, "Balance parsing failed",
			log.FieldOperation, log.OpParse, log.FieldError, err.Error())
		return core.ParsedBalances{}
	}

	var parsed core.ParsedBalances
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		g.logger.WarnContext(ctx, "Balance parsing returned invalid JSON",
			log.FieldOperation, log.OpParse, log.FieldError, err.Error())
		return core.ParsedBalances{}
	}
	return parsed
}

type insightPoint struct {
	Date        string  `json:"date"`
	NetWorth    float64 `json:"netWorth"`
	Assets      float64 `json:"assets"`
	Liabilities float64 `json:"liabilities"`
}

// GenerateInsights implements Collaborator.
func (g *Gemini) GenerateInsights(ctx context.Context, history []core.HistoryEntry) core.InsightResponse {
	if len(history) < MinInsightEntries {
		return NotEnoughDataInsight
	}

	prompt, err := buildInsightPrompt(history)
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to encode history for insights", log.FieldError, err.Error())
		return UnavailableInsight
	}

	str := gl.Schema{Type: "STRING"}
	schema := &gl.Schema{
		Type: "OBJECT",
		Properties: map[string]gl.Schema{
			"summary":       str,
			"projection":    str,
			"actionableTip": str,
		},
		Required: []string{"summary", "projection", "actionableTip"},
	}

	raw, err := g.generate(ctx, prompt, schema)
	if err != nil {
		g.logger.WarnContext(ctx, "Insight generation failed",
			log.FieldOperation, log.OpInsights, log.FieldError, err.Error())
		return UnavailableInsight
	}

	var out core.InsightResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		g.logger.WarnContext(ctx, "Insight response was not valid JSON",
			log.FieldOperation, log.OpInsights, log.FieldError, err.Error())
		return UnavailableInsight
	}
	return out
}

func buildInsightPrompt(history []core.HistoryEntry) (string, error) {
	recent := core.Recent(history, InsightWindow)
	points := make([]insightPoint, 0, len(recent))
	for _, e := range recent {
		points = append(points, insightPoint{
			Date:        e.Date,
			NetWorth:    e.NetWorth,
			Assets:      e.TotalAssets,
			Liabilities: e.TotalLiabilities,
		})
	}
	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(insightPrompt, data), nil
}

// generate sends a single-turn prompt constrained to JSON output and returns
// the text of the first candidate.
func (g *Gemini) generate(ctx context.Context, prompt string, schema *gl.Schema) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := &gl.GenerateContentRequest{
		Contents: []*gl.Content{{
			Role:  "user",
			Parts: []*gl.Part{{Text: prompt}},
		}},
		GenerationConfig: &gl.GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}

	start := time.Now()
	resp, err := g.svc.Models.GenerateContent("models/"+g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	g.logger.DebugContext(ctx, "Gemini call finished",
		log.FieldModel, g.model, log.FieldDuration, time.Since(start).Milliseconds())

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in response")
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("empty response text")
	}
	return text, nil
}
