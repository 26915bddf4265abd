// Package export renders agreements into shareable documents.
package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"concorda/agreement"
)

var imageTypes = map[string]string{
	"image/png":  "PNG",
	"image/jpeg": "JPG",
}

// Certificate renders the agreement as a one-document PDF with its rules,
// penalty, validity and every stored signature image.
func Certificate(a agreement.Agreement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetTitle(a.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(a.Title), "", "C", false)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s · %s · %s", a.Category, a.Tone, statusLabel(a.Status))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section(pdf, tr, "O combinado")
	pdf.MultiCell(0, 6, tr(a.Description), "", "L", false)
	pdf.Ln(2)

	section(pdf, tr, "Regras")
	if len(a.Rules) == 0 {
		pdf.MultiCell(0, 6, tr("Nenhuma regra cadastrada."), "", "L", false)
	}
	for i, r := range a.Rules {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, r.Text)), "", "L", false)
	}
	pdf.Ln(2)

	section(pdf, tr, "Condições")
	penalty := "Sem multa definida"
	if a.Penalty != nil {
		penalty = *a.Penalty
	}
	lines := []string{
		fmt.Sprintf("Multa: %s", penalty),
		fmt.Sprintf("Validade: %s", a.Validity),
		fmt.Sprintf("Renegociações: %d", a.NegotiationCount),
		fmt.Sprintf("Criado em: %s", formatDate(a.CreatedAt)),
	}
	if a.SignedAt != nil {
		lines = append(lines, fmt.Sprintf("Assinado em: %s", formatDate(*a.SignedAt)))
	}
	if a.CompletedAt != nil {
		lines = append(lines, fmt.Sprintf("Encerrado em: %s", formatDate(*a.CompletedAt)))
	}
	for _, line := range lines {
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}
	pdf.Ln(4)

	section(pdf, tr, "Assinaturas")
	signatures(pdf, tr, a.Participants, ratificationImages(a))
	if len(a.Closure) > 0 {
		pdf.Ln(2)
		section(pdf, tr, "Encerramento")
		signatures(pdf, tr, a.Participants, a.Closure)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("export: certificate: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: certificate: %w", err)
	}
	return buf.Bytes(), nil
}

// ratificationImages prefers the full map and falls back to the creator and
// partner slots kept for older rows.
func ratificationImages(a agreement.Agreement) agreement.SignatureMap {
	if len(a.Ratification) > 0 {
		return a.Ratification
	}
	out := agreement.SignatureMap{}
	slots := []*agreement.SignatureImage{a.CreatorSignature, a.PartnerSignature}
	for i, img := range slots {
		if img != nil && i < len(a.Participants) {
			out[a.Participants[i].ID] = *img
		}
	}
	return out
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Ln(1)
}

func signatures(pdf *gofpdf.Fpdf, tr func(string) string, participants []agreement.Participant, images agreement.SignatureMap) {
	const boxW, boxH = 60.0, 24.0
	for _, p := range participants {
		if pdf.GetY()+boxH+10 > 297-18 {
			pdf.AddPage()
		}
		x, y := pdf.GetX(), pdf.GetY()
		pdf.Rect(x, y, boxW, boxH, "D")
		if img, ok := images[p.ID]; ok {
			placeImage(pdf, img, x+1, y+1, boxW-2, boxH-2)
		} else {
			pdf.SetXY(x, y+boxH/2-3)
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(boxW, 6, tr("sem assinatura"), "", 0, "C", false, 0, "")
		}
		pdf.SetXY(x+boxW+4, y+boxH/2-3)
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, tr(p.Name), "", 1, "L", false, 0, "")
		pdf.SetXY(x, y+boxH+3)
	}
}

func placeImage(pdf *gofpdf.Fpdf, img agreement.SignatureImage, x, y, w, h float64) {
	mediaType, data, err := img.Decode()
	imageType, ok := imageTypes[mediaType]
	if err == nil && ok {
		name := imageName(data)
		opts := gofpdf.ImageOptions{ImageType: imageType}
		info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		if pdf.Ok() && info != nil && info.Width() > 0 && info.Height() > 0 {
			scale := min(w/info.Width(), h/info.Height())
			iw, ih := info.Width()*scale, info.Height()*scale
			pdf.ImageOptions(name, x+(w-iw)/2, y+(h-ih)/2, iw, ih, false, opts, 0, "")
			return
		}
		// Undecodable image bytes must not sink the whole certificate.
		pdf.ClearError()
	}
	pdf.SetXY(x, y+h/2-3)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(w, 6, "assinatura registrada", "", 0, "C", false, 0, "")
}

// imageName keys registered images by content; gofpdf reuses any image
// already registered under the same name.
func imageName(data []byte) string {
	sum := sha256.Sum256(data)
	return "sig-" + hex.EncodeToString(sum[:])
}

func statusLabel(s agreement.Status) string {
	switch s {
	case agreement.StatusWaitingSignatures:
		return "Aguardando assinaturas"
	case agreement.StatusActive:
		return "Ativo"
	case agreement.StatusCompleted:
		return "Cumprido"
	case agreement.StatusFailed:
		return "Descumprido"
	default:
		return strings.ReplaceAll(string(s), "_", " ")
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}
