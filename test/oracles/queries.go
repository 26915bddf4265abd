package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns invariant queries; each returns rows only when violated.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_signed_at_matches_status",
			SQL: `SELECT id, status FROM agreements
                  WHERE (status = 'waiting_signatures' AND signed_at IS NOT NULL)
                     OR (status IN ('active','completed','failed') AND signed_at IS NULL)`,
		},
		{
			Name: "O2_completed_at_only_when_terminal",
			SQL: `SELECT id, status FROM agreements
                  WHERE (status IN ('completed','failed')) <> (completed_at IS NOT NULL)`,
		},
		{
			Name: "O3_negotiation_count_non_negative",
			SQL:  `SELECT id, negotiation_count FROM agreements WHERE negotiation_count < 0`,
		},
		{
			Name: "O4_ratification_covers_participants",
			SQL: `SELECT a.id FROM agreements a
                  WHERE a.status <> 'waiting_signatures'
                    AND (SELECT COUNT(*) FROM agreement_participants p WHERE p.agreement_id = a.id)
                        > (SELECT COUNT(*) FROM jsonb_object_keys(COALESCE(a.initial_signatures, '{}'::jsonb)))`,
		},
		{
			Name: "O5_temporal_order",
			SQL: `SELECT id FROM agreements
                  WHERE completed_at < signed_at`,
		},
		{
			Name: "O6_participant_positions_unique",
			SQL: `SELECT agreement_id, position FROM agreement_participants
                  GROUP BY agreement_id, position HAVING COUNT(*) > 1`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}

// NegotiationCount reads the stored renewal count of one agreement.
func NegotiationCount(ctx context.Context, pool *pgxpool.Pool, id string) (int, error) {
	var n int
	if err := pool.QueryRow(ctx, `SELECT negotiation_count FROM agreements WHERE id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("negotiation count %s: %w", id, err)
	}
	return n, nil
}
