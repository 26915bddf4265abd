package export

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"concorda/agreement"
)

func signaturePNG(t *testing.T) agreement.SignatureImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 10))
	for x := 0; x < 40; x++ {
		img.Set(x, 5, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return agreement.SignatureImage("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
}

func sampleAgreement(t *testing.T) agreement.Agreement {
	signed := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	penalty := "Pagar a pizza"
	sig := signaturePNG(t)
	return agreement.Agreement{
		ID:               "a1",
		Title:            "Operação Pia Limpa",
		Description:      "Louça lavada antes de dormir",
		Category:         agreement.CategoryHome,
		Tone:             agreement.ToneFun,
		Validity:         "1 Mês",
		Penalty:          &penalty,
		Status:           agreement.StatusActive,
		NegotiationCount: 2,
		CreatedAt:        signed.Add(-time.Hour),
		SignedAt:         &signed,
		Participants: []agreement.Participant{
			{ID: "p1", Name: "Ana"},
			{ID: "p2", Name: "Beto"},
			{ID: "p3", Name: "Caio"},
		},
		Rules: []agreement.Rule{{Text: "Lavar"}, {Text: "Secar"}},
		Ratification: agreement.SignatureMap{
			"p1": sig,
			"p2": sig,
			"p3": "data:image/png;base64,aGVsbG8=",
		},
	}
}

func TestCertificate(t *testing.T) {
	out, err := Certificate(sampleAgreement(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestImageNameDependsOnContent(t *testing.T) {
	first := []byte("assinatura-a")
	second := []byte("assinatura-b")
	require.Equal(t, len(first), len(second))

	assert.NotEqual(t, imageName(first), imageName(second))
	assert.Equal(t, imageName(first), imageName([]byte("assinatura-a")))
}

func TestCertificateWithClosureSignatures(t *testing.T) {
	a := sampleAgreement(t)
	a.Status = agreement.StatusCompleted
	a.Closure = agreement.SignatureMap{"p1": signaturePNG(t)}

	out, err := Certificate(a)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRatificationImagesFallsBackToSlots(t *testing.T) {
	sig := signaturePNG(t)
	a := agreement.Agreement{
		Participants:     []agreement.Participant{{ID: "p1"}, {ID: "p2"}},
		CreatorSignature: &sig,
	}
	got := ratificationImages(a)
	assert.Equal(t, agreement.SignatureMap{"p1": sig}, got)
}

func TestHistorySheet(t *testing.T) {
	a := sampleAgreement(t)
	out, err := HistorySheet([]agreement.Agreement{a})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, historyHeaders, rows[0])
	assert.Equal(t, "Operação Pia Limpa", rows[1][0])
	assert.Equal(t, "Ativo", rows[1][3])
	assert.Equal(t, "Ana, Beto, Caio", rows[1][4])
	assert.Equal(t, "2", rows[1][8])
	assert.Equal(t, "02/03/2025", rows[1][10])
}
