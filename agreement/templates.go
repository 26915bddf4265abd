package agreement

// Template is a ready-made starting point for the creation form.
type Template struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Rules       []string `json:"rules"`
	Penalty     string   `json:"penalty"`
	Validity    string   `json:"validity"`
	Color       string   `json:"color"`
	Icon        string   `json:"icon"`
}

var templates = []Template{
	{
		ID:          "1",
		Category:    CategoryCouples,
		Title:       "Escolha do Filme de Sexta",
		Description: "Acordo para decidir quem escolhe o filme da noite sem brigas ou enrolação.",
		Rules:       []string{"A escolha deve durar no máximo 5 minutos", "Proibido vetar mais de 2 opções", "O gênero deve alternar toda semana"},
		Penalty:     "Escolher o filme da próxima semana (e o outro escolhe o lanche)",
		Validity:    DefaultValidity,
		Color:       "#FF88BB",
		Icon:        "movie",
	},
	{
		ID:          "2",
		Category:    CategoryHome,
		Title:       "Pia Limpa ao Acordar",
		Description: "Garantir que ninguém encontre louça suja ao preparar o café da manhã.",
		Rules:       []string{"Toda louça deve ser lavada antes de dormir", "Restos de comida devem ir pro lixo imediatamente", "Secar é opcional, mas guardar é apreciado"},
		Penalty:     "Lavar a louça de todos no próximo jantar",
		Validity:    "1 Mês",
		Color:       "#4ADE80",
		Icon:        "restaurant",
	},
	{
		ID:          "3",
		Category:    CategoryOther,
		Title:       "DJ do Carro",
		Description: "Regras de ouro para a trilha sonora da viagem não virar um caos.",
		Rules:       []string{"O motorista tem poder de veto absoluto", "A playlist deve ser democrática", "Proibido repetir a mesma música 3 vezes"},
		Penalty:     "Ficar 30 minutos sem poder sugerir música",
		Validity:    DefaultValidity,
		Color:       "#B39DDB",
		Icon:        "directions_car",
	},
	{
		ID:          "4",
		Category:    CategoryFamily,
		Title:       "Cuidado com o Pet",
		Description: "Divisão justa das tarefas do nosso amigo de quatro patas.",
		Rules:       []string{"Passeio das 07h é do filho mais velho", "Troca da água é diária às 12h", "Escovação aos domingos"},
		Penalty:     `Limpar as "surpresas" do quintal por 3 dias seguidos`,
		Validity:    "3 Meses",
		Color:       "#FFD54F",
		Icon:        "pets",
	},
	{
		ID:          "5",
		Category:    CategoryFriends,
		Title:       "Rolezinho Planejado",
		Description: `Evitar o "vamos ver" e garantir que os encontros aconteçam.`,
		Rules:       []string{"Confirmar presença até 48h antes", "Proibido desmarcar por preguiça de última hora", "Foco total no papo (celular na bolsa)"},
		Penalty:     "Pagar a primeira rodada de drinks/sucos no próximo encontro",
		Validity:    "1 Ano",
		Color:       "#4FC3F7",
		Icon:        "celebration",
	},
	{
		ID:          "6",
		Category:    CategoryFinancial,
		Title:       "Fundo da Cerveja/Lazer",
		Description: "Caixinha comum para gastos com diversão do grupo.",
		Rules:       []string{"Depósito de R$ 50 todo dia 05", "Uso apenas para atividades em grupo", "Transparência total nos gastos"},
		Penalty:     "Pagar R$ 10 de multa para o fundo",
		Validity:    DefaultValidity,
		Color:       "#E2E8F0",
		Icon:        "savings",
	},
}

// Templates returns the starter templates, optionally narrowed to one
// category. An empty category returns all of them.
func Templates(category Category) []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		if category != "" && t.Category != category {
			continue
		}
		t.Rules = append([]string(nil), t.Rules...)
		out = append(out, t)
	}
	return out
}
