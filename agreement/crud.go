package agreement

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CreateParams is the input of the creation form.
type CreateParams struct {
	Title        string
	Description  string
	Category     Category
	Tone         Tone
	Validity     string
	Penalty      string
	Participants []string
	Rules        []string
}

// ListFilters narrows agreement listings. Zero values mean "any".
type ListFilters struct {
	OwnerID  string
	Statuses []Status
	Category Category
	Page     int
	PageSize int
}

func (f *ListFilters) normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

func (f ListFilters) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		clauses = append(clauses, fmt.Sprintf("a.created_by = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf("a.status::text = ANY($%d)", len(args)))
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		clauses = append(clauses, fmt.Sprintf("a.category = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// CRUDStore is the persistence required for creating and reading agreements.
type CRUDStore interface {
	InsertAgreement(ctx context.Context, a Agreement) (Agreement, error)
	InsertParticipants(ctx context.Context, agreementID string, participants []Participant) error
	InsertRules(ctx context.Context, agreementID string, rules []Rule) error
	Get(ctx context.Context, id string) (Agreement, error)
	List(ctx context.Context, filters ListFilters) ([]Agreement, int, error)
	Count(ctx context.Context, filters ListFilters) (int, error)
}

// Titler drafts a title for an agreement. Implementations never fail; they
// fall back to a fixed title instead.
type Titler interface {
	Title(ctx context.Context, description string, tone Tone, category Category) string
}

// CRUDService creates and reads agreements.
type CRUDService struct {
	store        CRUDStore
	titler       Titler
	titleTimeout time.Duration
	log          zerolog.Logger
	idGenerator  func() string
	colorPicker  func() string
}

// NewCRUDService builds the service. titler may be nil, in which case
// untitled agreements get the fallback title.
func NewCRUDService(store CRUDStore, titler Titler, log zerolog.Logger) *CRUDService {
	return &CRUDService{
		store:        store,
		titler:       titler,
		titleTimeout: 10 * time.Second,
		log:          log,
		idGenerator:  uuid.NewString,
		colorPicker:  randomColor,
	}
}

// WithIDGenerator overrides id minting for agreements and participants.
func (s *CRUDService) WithIDGenerator(gen func() string) *CRUDService {
	s.idGenerator = gen
	return s
}

// WithTitleTimeout bounds how long creation waits for a drafted title.
func (s *CRUDService) WithTitleTimeout(d time.Duration) *CRUDService {
	s.titleTimeout = d
	return s
}

// FallbackTitle is the title used when none is given or drafted.
func FallbackTitle(category Category) string {
	return "Acordo de " + string(category)
}

// Create inserts the agreement, then its participants, then its rules. The
// steps are not wrapped in a transaction: when a later step fails the
// agreement row stays behind and a *PartialCreateError names it.
func (s *CRUDService) Create(ctx context.Context, ownerID string, params CreateParams) (Agreement, error) {
	if ownerID == "" {
		return Agreement{}, fmt.Errorf("%w: owner required", ErrValidation)
	}
	description := strings.TrimSpace(params.Description)
	if description == "" {
		return Agreement{}, fmt.Errorf("%w: description required", ErrValidation)
	}
	if !params.Category.Valid() {
		return Agreement{}, fmt.Errorf("%w: unknown category %q", ErrValidation, params.Category)
	}
	if !params.Tone.Valid() {
		return Agreement{}, fmt.Errorf("%w: unknown tone %q", ErrValidation, params.Tone)
	}

	names := compact(params.Participants)
	if len(names) < 2 {
		return Agreement{}, fmt.Errorf("%w: at least two participants required", ErrValidation)
	}
	ruleTexts := compact(params.Rules)

	validity := strings.TrimSpace(params.Validity)
	if validity == "" {
		validity = DefaultValidity
	}
	var penalty *string
	if p := strings.TrimSpace(params.Penalty); p != "" {
		penalty = &p
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = s.draftTitle(ctx, description, params.Tone, params.Category)
	}

	created, err := s.store.InsertAgreement(ctx, Agreement{
		ID:          s.idGenerator(),
		CreatedBy:   ownerID,
		Title:       title,
		Description: description,
		Category:    params.Category,
		Tone:        params.Tone,
		Validity:    validity,
		Penalty:     penalty,
		Status:      StatusWaitingSignatures,
	})
	if err != nil {
		return Agreement{}, err
	}

	participants := make([]Participant, 0, len(names))
	for i, name := range names {
		participants = append(participants, Participant{
			ID:          s.idGenerator(),
			AgreementID: created.ID,
			Position:    i,
			Name:        name,
			Color:       s.colorPicker(),
		})
	}
	if err := s.store.InsertParticipants(ctx, created.ID, participants); err != nil {
		return Agreement{}, s.partial(created.ID, "participants", err)
	}

	rules := make([]Rule, 0, len(ruleTexts))
	for i, text := range ruleTexts {
		rules = append(rules, Rule{AgreementID: created.ID, Position: i, Text: text})
	}
	if err := s.store.InsertRules(ctx, created.ID, rules); err != nil {
		return Agreement{}, s.partial(created.ID, "rules", err)
	}

	s.log.Info().
		Str("agreement_id", created.ID).
		Int("participants", len(participants)).
		Int("rules", len(rules)).
		Msg("agreement created")

	return s.store.Get(ctx, created.ID)
}

// Get returns the owner's agreement with participants and rules.
func (s *CRUDService) Get(ctx context.Context, ownerID, id string) (Agreement, error) {
	return loadOwned(ctx, s.store, ownerID, id)
}

// List returns a page of agreements and the total count.
func (s *CRUDService) List(ctx context.Context, filters ListFilters) ([]Agreement, int, error) {
	if filters.Category != "" && !filters.Category.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown category %q", ErrValidation, filters.Category)
	}
	for _, st := range filters.Statuses {
		if !st.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, st)
		}
	}
	filters.normalize()
	return s.store.List(ctx, filters)
}

// Count returns how many of the owner's agreements are in status.
func (s *CRUDService) Count(ctx context.Context, ownerID string, status Status) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.store.Count(ctx, ListFilters{OwnerID: ownerID, Statuses: []Status{status}})
}

func (s *CRUDService) draftTitle(ctx context.Context, description string, tone Tone, category Category) string {
	if s.titler == nil {
		return FallbackTitle(category)
	}
	ctx, cancel := context.WithTimeout(ctx, s.titleTimeout)
	defer cancel()
	if title := strings.TrimSpace(s.titler.Title(ctx, description, tone, category)); title != "" {
		return title
	}
	return FallbackTitle(category)
}

func (s *CRUDService) partial(agreementID, step string, err error) error {
	s.log.Warn().
		Err(err).
		Str("agreement_id", agreementID).
		Str("step", step).
		Msg("agreement left partially created; no cleanup attempted")
	return &PartialCreateError{AgreementID: agreementID, Step: step, Err: err}
}

type getter interface {
	Get(ctx context.Context, id string) (Agreement, error)
}

func loadOwned(ctx context.Context, store getter, ownerID, id string) (Agreement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Agreement{}, ErrNotFound
	}
	a, err := store.Get(ctx, id)
	if err != nil {
		return Agreement{}, err
	}
	if ownerID != "" && a.CreatedBy != ownerID {
		return Agreement{}, ErrNotFound
	}
	return a, nil
}

// IsPartialCreate extracts the orphaned agreement id from err, if any.
func IsPartialCreate(err error) (string, bool) {
	var pe *PartialCreateError
	if errors.As(err, &pe) {
		return pe.AgreementID, true
	}
	return "", false
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func randomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(0x1000000))
}
