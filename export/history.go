package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"concorda/agreement"
)

const historySheet = "Acordos"

var historyHeaders = []string{
	"Título",
	"Categoria",
	"Tom",
	"Status",
	"Participantes",
	"Regras",
	"Multa",
	"Validade",
	"Renegociações",
	"Criado em",
	"Assinado em",
	"Encerrado em",
}

// HistorySheet renders one row per agreement into an XLSX workbook.
func HistorySheet(items []agreement.Agreement) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("export: history sheet: %w", err)
	}

	set := func(col, row int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = file.SetCellValue(historySheet, cell, value)
	}

	for i, header := range historyHeaders {
		set(i+1, 1, header)
	}
	if style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(historyHeaders), 1)
		_ = file.SetCellStyle(historySheet, "A1", last, style)
	}

	for i, a := range items {
		row := i + 2
		names := make([]string, 0, len(a.Participants))
		for _, p := range a.Participants {
			names = append(names, p.Name)
		}
		penalty := ""
		if a.Penalty != nil {
			penalty = *a.Penalty
		}

		set(1, row, a.Title)
		set(2, row, string(a.Category))
		set(3, row, string(a.Tone))
		set(4, row, statusLabel(a.Status))
		set(5, row, strings.Join(names, ", "))
		set(6, row, strings.Join(a.RuleTexts(), "\n"))
		set(7, row, penalty)
		set(8, row, a.Validity)
		set(9, row, a.NegotiationCount)
		set(10, row, formatDate(a.CreatedAt))
		if a.SignedAt != nil {
			set(11, row, formatDate(*a.SignedAt))
		}
		if a.CompletedAt != nil {
			set(12, row, formatDate(*a.CompletedAt))
		}
	}

	_ = file.SetColWidth(historySheet, "A", "A", 36)
	_ = file.SetColWidth(historySheet, "B", "D", 18)
	_ = file.SetColWidth(historySheet, "E", "G", 40)
	_ = file.SetColWidth(historySheet, "H", "L", 16)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: history sheet: %w", err)
	}
	return buf.Bytes(), nil
}
