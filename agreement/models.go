package agreement

import (
	"fmt"
	"time"
)

// Category groups agreements by the kind of relationship they govern.
type Category string

const (
	CategoryCouples   Category = "Casais"
	CategoryFriends   Category = "Amigos"
	CategoryHome      Category = "Casa"
	CategoryFinancial Category = "Financeiro"
	CategoryFamily    Category = "Família"
	CategoryOther     Category = "Outros"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryCouples,
	CategoryFriends,
	CategoryHome,
	CategoryFinancial,
	CategoryFamily,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Tone steers the voice used for generated titles, rules and penalties.
type Tone string

const (
	ToneFun     Tone = "Divertido"
	ToneAcid    Tone = "Ácido"
	ToneNeutral Tone = "Neutro"
)

// Valid reports whether t is one of the known tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneFun, ToneAcid, ToneNeutral:
		return true
	default:
		return false
	}
}

// DefaultValidity is applied when an agreement is created without a validity label.
const DefaultValidity = "Indeterminado"

// Participant is a named party to an agreement. Its ID is minted before the
// row is inserted so every signature flow can key on it.
type Participant struct {
	ID          string
	AgreementID string
	Position    int
	Name        string
	Color       string
	CreatedAt   time.Time
}

// Rule is a single free-text clause owned by an agreement.
type Rule struct {
	ID          int64
	AgreementID string
	Position    int
	Text        string
}

// SignatureMap maps a participant id to a signature image.
type SignatureMap map[string]SignatureImage

// Agreement is the typed view of an agreements row with its participants and
// rules eagerly joined.
type Agreement struct {
	ID               string
	CreatedBy        string
	Title            string
	Description      string
	Category         Category
	Tone             Tone
	Validity         string
	Penalty          *string
	Status           Status
	CreatorSignature *SignatureImage
	PartnerSignature *SignatureImage
	Ratification     SignatureMap
	Closure          SignatureMap
	NegotiationCount int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	SignedAt         *time.Time
	CompletedAt      *time.Time
	Participants     []Participant
	Rules            []Rule
}

// RuleTexts returns the rule clauses in order.
func (a Agreement) RuleTexts() []string {
	out := make([]string, 0, len(a.Rules))
	for _, r := range a.Rules {
		out = append(out, r.Text)
	}
	return out
}

// validate checks the decoded row before it leaves the persistence boundary.
func (a Agreement) validate() error {
	if a.ID == "" {
		return fmt.Errorf("agreement: row without id")
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q on %s", ErrCorruptRecord, a.Status, a.ID)
	}
	if !a.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q on %s", ErrCorruptRecord, a.Category, a.ID)
	}
	if !a.Tone.Valid() {
		return fmt.Errorf("%w: unknown tone %q on %s", ErrCorruptRecord, a.Tone, a.ID)
	}
	if a.NegotiationCount < 0 {
		return fmt.Errorf("%w: negative negotiation count on %s", ErrCorruptRecord, a.ID)
	}
	for _, p := range a.Participants {
		if p.ID == "" || p.AgreementID != a.ID {
			return fmt.Errorf("%w: participant linkage broken on %s", ErrCorruptRecord, a.ID)
		}
	}
	return nil
}
