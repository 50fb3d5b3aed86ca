// Package gemini implements analysis.Provider on top of Google's Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/xraph/auditledger/analysis"
	"github.com/xraph/auditledger/service"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// compile-time interface check
var _ analysis.Provider = (*Provider)(nil)

// Provider calls GenerateContent with a JSON response schema.
type Provider struct {
	client      *genai.Client
	catalog     *service.Catalog
	model       string
	temperature float32
	logger      *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithTemperature sets the sampling temperature (default: 0.2).
func WithTemperature(t float32) Option {
	return func(p *Provider) { p.temperature = t }
}

// WithCatalog sets the catalog the prompt briefs are read from.
func WithCatalog(c *service.Catalog) Option {
	return func(p *Provider) { p.catalog = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates a provider. baseURL is optional and only used to point the
// client at a different endpoint.
func New(ctx context.Context, apiKey, baseURL string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	p := &Provider{
		client:      client,
		catalog:     service.Default(),
		model:       DefaultModel,
		temperature: 0.2,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Analyze implements analysis.Provider.
func (p *Provider) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	def, err := p.catalog.Lookup(req.ServiceType)
	if err != nil {
		return nil, err
	}

	prompt, err := analysis.BuildPrompt(def, req.Details)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(p.temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: empty model response", analysis.ErrInvalidResult)
	}

	var out analysis.Result
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrInvalidResult, err)
	}

	p.logger.Debug("analysis generated",
		"service_type", req.ServiceType,
		"model", p.model,
		"findings", len(out.Findings),
	)
	return &out, nil
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"grade": {
			Type:        genai.TypeString,
			Description: "For audits, an overall grade from A (best) to D (worst). For KYC, a status of Verified, Needs Review, or Rejected.",
			Enum:        []string{"A", "B", "C", "D", "Verified", "Needs Review", "Rejected"},
		},
		"summary": {
			Type:        genai.TypeString,
			Description: "A concise, one or two-sentence summary of the overall security posture and justification for the grade/status.",
		},
		"findings": {
			Type:        genai.TypeArray,
			Description: "A list of specific vulnerabilities or issues found.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"severity":       {Type: genai.TypeString, Description: "The severity of the finding.", Enum: []string{"Low", "Medium", "High", "Critical"}},
					"title":          {Type: genai.TypeString, Description: "A short, descriptive title for the finding."},
					"description":    {Type: genai.TypeString, Description: "A detailed explanation of the vulnerability or issue."},
					"recommendation": {Type: genai.TypeString, Description: "Actionable steps to fix the issue."},
				},
				Required: []string{"severity", "title", "description", "recommendation"},
			},
		},
	},
	Required: []string{"grade", "summary", "findings"},
}
