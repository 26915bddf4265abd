package agreement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUndefinedFunction = "42883"

// PGRepository is the PostgreSQL persistence gateway for agreements, their
// participants and rules.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed gateway.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const agreementColumns = `
	a.id::text, a.created_by::text, a.title, a.description, a.category, a.tone, a.validity,
	a.penalty, a.status::text, a.initial_signature_creator, a.initial_signature_partner,
	a.initial_signatures, a.signatures, a.negotiation_count, a.created_at, a.updated_at,
	a.signed_at, a.completed_at`

// InsertAgreement creates the agreement row and returns it as stored.
func (r *PGRepository) InsertAgreement(ctx context.Context, a Agreement) (Agreement, error) {
	insertSQL := `
		INSERT INTO agreements AS a (id, created_by, title, description, category, tone, validity, penalty, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::agreement_status)
		RETURNING ` + agreementColumns

	stored, err := scanAgreement(r.pool.QueryRow(ctx, insertSQL,
		a.ID, a.CreatedBy, a.Title, a.Description, a.Category, a.Tone, a.Validity, a.Penalty, a.Status,
	))
	if err != nil {
		return Agreement{}, fmt.Errorf("agreement: insert: %w", err)
	}
	return stored, nil
}

// InsertParticipants bulk-inserts participant rows for agreementID.
func (r *PGRepository) InsertParticipants(ctx context.Context, agreementID string, participants []Participant) error {
	if len(participants) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range participants {
		batch.Queue(`
			INSERT INTO agreement_participants (id, agreement_id, position, name, color)
			VALUES ($1, $2, $3, $4, $5)
		`, p.ID, agreementID, p.Position, p.Name, p.Color)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("agreement: insert participants: %w", err)
	}
	return nil
}

// InsertRules bulk-inserts rule rows for agreementID.
func (r *PGRepository) InsertRules(ctx context.Context, agreementID string, rules []Rule) error {
	if len(rules) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rule := range rules {
		batch.Queue(`
			INSERT INTO agreement_rules (agreement_id, position, text)
			VALUES ($1, $2, $3)
		`, agreementID, rule.Position, rule.Text)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("agreement: insert rules: %w", err)
	}
	return nil
}

// Get fetches one agreement with its participants and rules.
func (r *PGRepository) Get(ctx context.Context, id string) (Agreement, error) {
	a, err := scanAgreement(r.pool.QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements a WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agreement{}, ErrNotFound
		}
		return Agreement{}, fmt.Errorf("agreement: get: %w", err)
	}

	participants, err := r.participantsFor(ctx, []string{id})
	if err != nil {
		return Agreement{}, err
	}
	a.Participants = participants[id]

	rows, err := r.pool.Query(ctx, `
		SELECT id, agreement_id::text, position, text
		FROM agreement_rules
		WHERE agreement_id = $1
		ORDER BY position ASC, id ASC
	`, id)
	if err != nil {
		return Agreement{}, fmt.Errorf("agreement: get rules: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.AgreementID, &rule.Position, &rule.Text); err != nil {
			return Agreement{}, fmt.Errorf("agreement: scan rule: %w", err)
		}
		a.Rules = append(a.Rules, rule)
	}
	if err := rows.Err(); err != nil {
		return Agreement{}, fmt.Errorf("agreement: iterate rules: %w", err)
	}

	if err := a.validate(); err != nil {
		return Agreement{}, err
	}
	return a, nil
}

// List returns one page of agreements matching filters, newest first, plus
// the total number of matches. Participants are joined; rules are not.
func (r *PGRepository) List(ctx context.Context, filters ListFilters) ([]Agreement, int, error) {
	where, args := filters.where()

	query := `SELECT ` + agreementColumns + ` FROM agreements a` + where +
		fmt.Sprintf(" ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)...)
	if err != nil {
		return nil, 0, fmt.Errorf("agreement: list: %w", err)
	}
	defer rows.Close()

	items := make([]Agreement, 0, filters.PageSize)
	ids := make([]string, 0, filters.PageSize)
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("agreement: scan list: %w", err)
		}
		items = append(items, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("agreement: iterate list: %w", err)
	}

	participants, err := r.participantsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Participants = participants[items[i].ID]
		if err := items[i].validate(); err != nil {
			return nil, 0, err
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agreements a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("agreement: count list: %w", err)
	}
	return items, total, nil
}

// Count returns how many agreements match filters, ignoring pagination.
func (r *PGRepository) Count(ctx context.Context, filters ListFilters) (int, error) {
	where, args := filters.where()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agreements a`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("agreement: count: %w", err)
	}
	return total, nil
}

// Update writes the non-nil fields of patch. When ExpectStatus is set and
// the row moved on, ErrInvalidTransition is returned and nothing is written.
func (r *PGRepository) Update(ctx context.Context, id string, patch Patch) error {
	sets := make([]string, 0, 10)
	args := make([]any, 0, 12)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		args = append(args, string(*patch.Status))
		sets = append(sets, fmt.Sprintf("status = $%d::agreement_status", len(args)))
	}
	if patch.Validity != nil {
		set("validity", *patch.Validity)
	}
	if patch.NegotiationCount != nil {
		set("negotiation_count", *patch.NegotiationCount)
	}
	if patch.CreatorSignature != nil {
		set("initial_signature_creator", string(*patch.CreatorSignature))
	}
	if patch.PartnerSignature != nil {
		set("initial_signature_partner", string(*patch.PartnerSignature))
	}
	if patch.Ratification != nil {
		raw, err := json.Marshal(patch.Ratification)
		if err != nil {
			return fmt.Errorf("agreement: marshal ratification: %w", err)
		}
		set("initial_signatures", raw)
	}
	if patch.Closure != nil {
		raw, err := json.Marshal(patch.Closure)
		if err != nil {
			return fmt.Errorf("agreement: marshal closure: %w", err)
		}
		set("signatures", raw)
	}
	if patch.SignedAt != nil {
		set("signed_at", patch.SignedAt.UTC())
	}
	if patch.CompletedAt != nil {
		set("completed_at", patch.CompletedAt.UTC())
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: empty update", ErrValidation)
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE agreements SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if patch.ExpectStatus != "" {
		args = append(args, string(patch.ExpectStatus))
		query += fmt.Sprintf(" AND status = $%d::agreement_status", len(args))
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("agreement: update: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	if err := r.pool.QueryRow(ctx, `SELECT status::text FROM agreements WHERE id = $1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("agreement: update check: %w", err)
	}
	return fmt.Errorf("%w: %s is %s, expected %s", ErrInvalidTransition, id, current, patch.ExpectStatus)
}

// IncrementNegotiation renews an active agreement through the
// increment_negotiation database function and returns the new count.
func (r *PGRepository) IncrementNegotiation(ctx context.Context, id, validity string) (int, error) {
	var count *int
	err := r.pool.QueryRow(ctx, `SELECT increment_negotiation($1::uuid, $2)`, id, validity).Scan(&count)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedFunction {
			return 0, ErrAtomicUnavailable
		}
		return 0, fmt.Errorf("agreement: increment negotiation: %w", err)
	}
	if count == nil {
		return 0, fmt.Errorf("%w: %s is not active", ErrInvalidTransition, id)
	}
	return *count, nil
}

func (r *PGRepository) participantsFor(ctx context.Context, ids []string) (map[string][]Participant, error) {
	out := make(map[string][]Participant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, agreement_id::text, position, name, color, created_at
		FROM agreement_participants
		WHERE agreement_id = ANY($1::uuid[])
		ORDER BY agreement_id, position ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("agreement: list participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.AgreementID, &p.Position, &p.Name, &p.Color, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("agreement: scan participant: %w", err)
		}
		out[p.AgreementID] = append(out[p.AgreementID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agreement: iterate participants: %w", err)
	}
	return out, nil
}

func scanAgreement(row pgx.Row) (Agreement, error) {
	var (
		a                Agreement
		creatorSig       *string
		partnerSig       *string
		ratificationJSON []byte
		closureJSON      []byte
		signedAt         *time.Time
		completedAt      *time.Time
	)
	err := row.Scan(
		&a.ID,
		&a.CreatedBy,
		&a.Title,
		&a.Description,
		&a.Category,
		&a.Tone,
		&a.Validity,
		&a.Penalty,
		&a.Status,
		&creatorSig,
		&partnerSig,
		&ratificationJSON,
		&closureJSON,
		&a.NegotiationCount,
		&a.CreatedAt,
		&a.UpdatedAt,
		&signedAt,
		&completedAt,
	)
	if err != nil {
		return Agreement{}, err
	}

	if creatorSig != nil {
		img := SignatureImage(*creatorSig)
		a.CreatorSignature = &img
	}
	if partnerSig != nil {
		img := SignatureImage(*partnerSig)
		a.PartnerSignature = &img
	}
	if a.Ratification, err = decodeSignatureMap(ratificationJSON); err != nil {
		return Agreement{}, fmt.Errorf("%w: ratification signatures on %s: %v", ErrCorruptRecord, a.ID, err)
	}
	if a.Closure, err = decodeSignatureMap(closureJSON); err != nil {
		return Agreement{}, fmt.Errorf("%w: closure signatures on %s: %v", ErrCorruptRecord, a.ID, err)
	}
	a.SignedAt = signedAt
	a.CompletedAt = completedAt
	return a, nil
}

func decodeSignatureMap(raw []byte) (SignatureMap, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out := make(SignatureMap, len(m))
	for id, img := range m {
		out[id] = SignatureImage(img)
	}
	return out, nil
}
