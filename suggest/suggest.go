// Package suggest drafts rules, penalties, titles and daily tips with a
// generative model. Callers never see model errors: list suggestions degrade
// to human-readable placeholders and titles to a fixed fallback.
package suggest

import (
	"context"

	"concorda/agreement"
	"concorda/tip"
)

// Suggestions is a list answer. Degraded is set when Items are placeholders
// explaining a failure rather than real suggestions.
type Suggestions struct {
	Items    []string `json:"items"`
	Degraded bool     `json:"degraded"`
}

// Suggester is the suggestion client used by the creation flow and the tip service.
type Suggester interface {
	Rules(ctx context.Context, description string, tone agreement.Tone, category agreement.Category) Suggestions
	Penalties(ctx context.Context, description string, tone agreement.Tone, category agreement.Category) Suggestions
	Title(ctx context.Context, description string, tone agreement.Tone, category agreement.Category) string
	DailyTip(ctx context.Context) (tip.Draft, error)
}

var (
	placeholderUnavailable = []string{"Erro ao conectar com IA.", "Tente novamente mais tarde.", "Verifique sua conexão."}
	placeholderAuth        = []string{"Erro de Autenticação.", "Verifique sua API Key.", "Reinicie o servidor."}
	placeholderRateLimit   = []string{"Muitas requisições.", "Tente novamente em breve.", "Limite excedido."}
	placeholderMissingKey  = []string{"Erro: Chave API ausente.", "Verifique a configuração GEMINI_API_KEY.", "Reinicie o servidor."}
	placeholderMalformed   = []string{"IA não retornou o formato esperado.", "Tente novamente.", "Verifique os logs."}
)

func degraded(items []string) Suggestions {
	return Suggestions{Items: append([]string(nil), items...), Degraded: true}
}

var (
	_ Suggester        = (*Gemini)(nil)
	_ agreement.Titler = (*Gemini)(nil)
	_ tip.Generator    = (*Gemini)(nil)
)
