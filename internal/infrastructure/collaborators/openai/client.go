// Package openai implements outbound.SummarizerClient against an
// OpenAI-compatible chat completions endpoint, falling back to a local
// Ollama-compatible endpoint when no API key is configured.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/infrastructure/config"
	"github.com/aetim/core/internal/ports/outbound"
)

// Client implements outbound.SummarizerClient.
type Client struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
	logger    *zap.Logger
}

// NewClient creates a chat-completion client from cfg. When cfg.APIKey is
// empty it talks to cfg.LocalURL (a local Ollama-compatible server)
// instead of refusing to start.
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	apiKey := cfg.APIKey
	baseURL := cfg.BaseURL
	model := cfg.Model

	if apiKey == "" {
		logger.Info("AI API key not configured, using local completion endpoint",
			zap.String("url", cfg.LocalURL))
		baseURL = cfg.LocalURL
		model = cfg.LocalModel
		apiKey = "local"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Wire protocol shared by OpenAI and Ollama's OpenAI-compatible endpoint.
type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
}

type choice struct {
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// extractionResponse is the JSON schema the model is instructed to emit
// for Extract, mirroring outbound.ExtractionResult's field shape.
type extractionResponse struct {
	CVEs     []string            `json:"cves"`
	Products []extractionProduct `json:"products"`
	TTPs     []string            `json:"ttps"`
	IOCs     extractionIOCs      `json:"iocs"`
}

type extractionProduct struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	ProductType  string `json:"product_type"`
	OriginalText string `json:"original_text"`
}

type extractionIOCs struct {
	IPs     []string `json:"ips"`
	Domains []string `json:"domains"`
	Hashes  []string `json:"hashes"`
}

const extractionSystemPrompt = `You are a threat intelligence analyst. Extract structured indicators from the advisory text the user gives you.

CRITICAL: respond with ONLY a valid JSON object in the exact format below. No explanatory text, no markdown formatting, nothing outside the JSON.

Required JSON format:
{
  "cves": ["CVE-2024-12345"],
  "products": [{"name": "product name", "version": "1.2.3", "product_type": "Application", "original_text": "as it appeared in the source"}],
  "ttps": ["T1190"],
  "iocs": {"ips": ["1.2.3.4"], "domains": ["evil.example"], "hashes": ["d41d8cd98f00b204e9800998ecf8427e"]}
}

"product_type" is optional; when known it must be one of "Application", "OS", or "Hardware".

Omit a field's array entries rather than inventing indicators that are not actually present in the text.`

// Extract asks the model to pull CVEs, affected products, TTPs, and IOCs
// out of text, returning an ML-origin ExtractionResult. A low,
// deliberately conservative confidence reflects that this is enrichment
// on top of (not a replacement for) the deterministic rule engine.
func (c *Client) Extract(ctx context.Context, text string) (outbound.ExtractionResult, error) {
	content, err := c.complete(ctx, extractionSystemPrompt, text)
	if err != nil {
		c.logger.Warn("AI extraction call failed", zap.Error(err))
		return outbound.ExtractionResult{}, fmt.Errorf("ai extraction: %w", err)
	}

	var parsed extractionResponse
	if err := unmarshalJSONObject(content, &parsed); err != nil {
		c.logger.Warn("AI extraction response was not valid JSON", zap.Error(err), zap.String("response", content))
		return outbound.ExtractionResult{}, fmt.Errorf("ai extraction: %w", err)
	}

	products := make([]outbound.ExtractedProduct, len(parsed.Products))
	for i, p := range parsed.Products {
		products[i] = outbound.ExtractedProduct{
			Name:         p.Name,
			Version:      p.Version,
			Type:         parseProductType(p.ProductType),
			OriginalText: p.OriginalText,
		}
	}

	return outbound.ExtractionResult{
		CVEs:     parsed.CVEs,
		Products: products,
		TTPs:     parsed.TTPs,
		IOCs: outbound.ExtractedIOCs{
			IPs:     parsed.IOCs.IPs,
			Domains: parsed.IOCs.Domains,
			Hashes:  parsed.IOCs.Hashes,
		},
		Confidence: 0.55,
		Origin:     outbound.OriginML,
	}, nil
}

// parseProductType maps the model's free-text product_type guess onto the
// domain enum, defaulting to Application when the model named a product
// without committing to a type and to Unknown when the field was omitted.
func parseProductType(raw string) threat.ProductType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return threat.ProductTypeUnknown
	case "os", "o", "operating system":
		return threat.ProductTypeOS
	case "hardware", "h":
		return threat.ProductTypeHardware
	default:
		return threat.ProductTypeApplication
	}
}

const summarizeSystemPrompt = `You are a security analyst writing for a CISO audience. Paraphrase the technical advisory text you are given into two or three plain-language sentences a non-technical executive can act on. Do not invent facts that are not in the source text. Respond with the paraphrase only, no preamble.`

// Summarize produces a business-language paraphrase of technicalText for
// the weekly CISO report.
func (c *Client) Summarize(ctx context.Context, technicalText string) (string, error) {
	content, err := c.complete(ctx, summarizeSystemPrompt, technicalText)
	if err != nil {
		c.logger.Warn("AI summarize call failed", zap.Error(err))
		return "", fmt.Errorf("ai summarize: %w", err)
	}
	return strings.TrimSpace(content), nil
}

// Health probes the collaborator's availability with a cheap GET against
// /health, independent of a full completion call, so a cooled-down endpoint
// can be recognised without spending an extraction timeout to find out.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: 0.2,
		MaxTokens:   c.maxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API error %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	c.logger.Debug("completion call succeeded",
		zap.Int("prompt_tokens", chatResp.Usage.PromptTokens),
		zap.Int("completion_tokens", chatResp.Usage.CompletionTokens),
	)

	return chatResp.Choices[0].Message.Content, nil
}

// unmarshalJSONObject extracts the outermost {...} span from response and
// unmarshals it into v, tolerating models that wrap JSON in prose or
// markdown code fences despite being asked not to.
func unmarshalJSONObject(response string, v interface{}) error {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in response")
	}

	return json.Unmarshal([]byte(response[start:end+1]), v)
}
