package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"concorda/agreement"
	"concorda/tip"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// maxSuggestions caps rules and penalties returned to callers.
const maxSuggestions = 3

// ErrMissingKey is returned by DailyTip when no API key is configured.
var ErrMissingKey = errors.New("suggest: api key missing")

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the Gemini client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini implements Suggester with Google Gemini.
type Gemini struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// NewGemini builds the client. A blank API key is not an error: every call
// then degrades to the missing-key placeholders.
func NewGemini(ctx context.Context, cfg Config, log zerolog.Logger) (*Gemini, error) {
	g := &Gemini{model: cfg.Model, timeout: cfg.Timeout, log: log}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.timeout <= 0 {
		g.timeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn().Msg("GEMINI_API_KEY not set; suggestions will return placeholders")
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: create genai client: %w", err)
	}
	g.models = client.Models
	return g, nil
}

var stringList = &genai.Schema{
	Type:  genai.TypeArray,
	Items: &genai.Schema{Type: genai.TypeString},
}

// Rules suggests operational rules for the agreement.
func (g *Gemini) Rules(ctx context.Context, description string, tone agreement.Tone, category agreement.Category) Suggestions {
	return g.list(ctx, "rules", rulesInstruction(tone, category), rulesPrompt(description, category))
}

// Penalties suggests symbolic penalties for breaking the agreement.
func (g *Gemini) Penalties(ctx context.Context, description string, tone agreement.Tone, category agreement.Category) Suggestions {
	return g.list(ctx, "penalties", penaltiesInstruction(), penaltiesPrompt(description, tone, category))
}

func (g *Gemini) list(ctx context.Context, kind, instruction, prompt string) Suggestions {
	if g.models == nil {
		return degraded(placeholderMissingKey)
	}

	text, err := g.generate(ctx, instruction, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   stringList,
		MaxOutputTokens:  400,
	})
	if err != nil {
		g.log.Warn().Err(err).Str("kind", kind).Msg("suggestion request failed")
		return degraded(placeholderFor(err))
	}

	items, err := parseList(text)
	if err != nil {
		g.log.Warn().Err(err).Str("kind", kind).Msg("suggestion response malformed")
		return degraded(placeholderMalformed)
	}
	return Suggestions{Items: items}
}

// Title drafts a title, falling back to "Acordo de <category>".
func (g *Gemini) Title(ctx context.Context, description string, tone agreement.Tone, category agreement.Category) string {
	fallback := agreement.FallbackTitle(category)
	if g.models == nil {
		return fallback
	}
	text, err := g.generate(ctx, "Você é um criador de nomes criativos para contratos.", titlePrompt(description, tone, category), &genai.GenerateContentConfig{
		MaxOutputTokens: 60,
	})
	if err != nil {
		g.log.Warn().Err(err).Msg("title request failed")
		return fallback
	}
	if title := cleanTitle(text); title != "" {
		return title
	}
	return fallback
}

var tipSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category": {Type: genai.TypeString},
		"title":    {Type: genai.TypeString},
		"intro":    {Type: genai.TypeString},
		"steps": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id":   {Type: genai.TypeString},
					"bold": {Type: genai.TypeString},
					"text": {Type: genai.TypeString},
				},
				Required: []string{"id", "bold", "text"},
			},
		},
		"conclusion": {Type: genai.TypeString},
	},
	Required: []string{"category", "title", "intro", "steps", "conclusion"},
}

type tipPayload struct {
	Category   string     `json:"category"`
	Title      string     `json:"title"`
	Intro      string     `json:"intro"`
	Steps      []tip.Step `json:"steps"`
	Conclusion string     `json:"conclusion"`
}

// DailyTip drafts a tip about living together.
func (g *Gemini) DailyTip(ctx context.Context) (tip.Draft, error) {
	if g.models == nil {
		return tip.Draft{}, ErrMissingKey
	}
	text, err := g.generate(ctx, tipInstruction, tipPrompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   tipSchema,
		MaxOutputTokens:  600,
	})
	if err != nil {
		return tip.Draft{}, fmt.Errorf("suggest: daily tip: %w", err)
	}
	var payload tipPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return tip.Draft{}, fmt.Errorf("suggest: decode daily tip: %w", err)
	}
	return tip.Draft{
		Title:    strings.TrimSpace(payload.Title),
		Category: strings.TrimSpace(payload.Category),
		Content: tip.Content{
			Intro:      strings.TrimSpace(payload.Intro),
			Steps:      payload.Steps,
			Conclusion: strings.TrimSpace(payload.Conclusion),
		},
	}, nil
}

func (g *Gemini) generate(ctx context.Context, instruction, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func parseList(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	items := make([]string, 0, maxSuggestions)
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
		if len(items) == maxSuggestions {
			break
		}
	}
	return items, nil
}

func cleanTitle(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(strings.Trim(text, `"'“”`))
}

func placeholderFor(err error) []string {
	switch statusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return placeholderAuth
	case http.StatusTooManyRequests:
		return placeholderRateLimit
	default:
		return placeholderUnavailable
	}
}

func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
