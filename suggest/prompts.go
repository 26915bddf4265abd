package suggest

import (
	"fmt"

	"concorda/agreement"
)

func rulesInstruction(tone agreement.Tone, category agreement.Category) string {
	prompt := "Você está redigindo cláusulas contratuais operacionais. Uma regra define O QUE deve ser feito, COMO deve ser feito e ONDE. NÃO sugira punições, dancinhas ou poemas. Foque na execução da tarefa."

	switch category {
	case agreement.CategoryFinancial:
		prompt += " Seja pragmático, numérico e focado em prazos e valores."
	case agreement.CategoryCouples:
		prompt += " Foque na convivência harmônica e acordos de relacionamento."
	case agreement.CategoryFriends:
		prompt += " Permita um tom mais descontraído e de zoeira, se o tom pedir."
	case agreement.CategoryHome:
		prompt += " Foque em organização, limpeza e responsabilidades domésticas."
	case agreement.CategoryFamily:
		prompt += " Foque em respeito mútuo, horários e hierarquia ou colaboração."
	}

	switch tone {
	case agreement.ToneNeutral:
		prompt += " Seja formal e direto. Ex: 'A louça deve ser lavada imediatamente após o uso, sem exceções.'"
	case agreement.ToneFun:
		prompt += " Use metáforas engraçadas, mas exigindo qualidade. Ex: 'A pia deve brilhar a ponto de o gato conseguir se ver no reflexo. Zero gordura permitida.'"
	case agreement.ToneAcid:
		prompt += " Seja passivo-agressivo e antecipe desculpas preguiçosas. Ex: 'Deixar de molho é proibido; água fria não é desculpa. Lavou, secou, guardou.'"
	}
	return prompt
}

func rulesPrompt(description string, category agreement.Category) string {
	return fmt.Sprintf("O acordo é sobre: %q. Categoria: %s. Sugira 3 regras operacionais para este contexto. Retorne um array JSON com 3 strings.", description, category)
}

func penaltiesInstruction() string {
	return "Você sugere multas simbólicas para quem descumprir um combinado entre amigos, casais ou família. Nada perigoso, ilegal ou humilhante de verdade."
}

func penaltiesPrompt(description string, tone agreement.Tone, category agreement.Category) string {
	var style string
	switch tone {
	case agreement.ToneFun:
		style = "divertidas e leves (ex: pagar um sorvete)"
	case agreement.ToneAcid:
		style = "humilhantes de forma engraçada ou sarcásticas (ex: postar uma foto feia)"
	default:
		style = "práticas e justas (ex: pagar o valor excedente)"
	}
	return fmt.Sprintf("Para o combinado %q (Categoria: %s), sugira 3 multas simbólicas seguindo um tom %s. Retorne um array JSON com 3 strings.", description, category, style)
}

func titlePrompt(description string, tone agreement.Tone, category agreement.Category) string {
	prompt := fmt.Sprintf("Crie um título curto para um acordo sobre: %q. Categoria: %s.", description, category)
	switch tone {
	case agreement.ToneNeutral:
		prompt += " Regra de Tom: Neutro. Crie um título formal e descritivo. (Ex: 'Acordo de Manutenção da Limpeza')."
	case agreement.ToneFun:
		prompt += " Regra de Tom: Divertido. Use trocadilhos, humor leve e emojis. (Ex: 'Operação Pia Limpa 🧼' ou 'A Saga da Toalha Molhada')."
	case agreement.ToneAcid:
		prompt += " Regra de Tom: Ácido. Seja sarcástico e use ironia fina. (Ex: 'Milagre da Louça Lavada' ou 'Espero que Dessa Vez Vá')."
	}
	return prompt + " Saída: Retorne APENAS o título, sem aspas."
}

const tipInstruction = "Você é um especialista em convivência harmoniosa e divertida."

const tipPrompt = `Gere uma dica curta, leve e educativa sobre convivência (roommates, casais ou amigos).
Campos: category (tag curta, ex: Convivência), title (título criativo com 1 emoji),
intro (frase introdutória envolvente de até 2 linhas), steps (exatamente 3 passos com
id "01", "02", "03", bold terminando em dois-pontos e text curto) e conclusion (frase final
de impacto curta). Seja sempre educativo e leve.`
