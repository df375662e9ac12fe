package pg

import (
	"context"
	"time"

	"carcost-bot/internal/application"
	"carcost-bot/internal/domain"
)

// LeadRepo stores the retry buffer in Postgres for deployments where a
// local JSON file would not survive pod restarts.
type LeadRepo struct{ db *DB }

var _ application.LeadQueue = (*LeadRepo)(nil)

func NewLeadRepo(db *DB) *LeadRepo { return &LeadRepo{db: db} }

func (r *LeadRepo) Append(ctx context.Context, lead domain.LeadDraft) error {
	const up = `
        INSERT INTO leads(id, chat_id, name, phone, budget_rub, listing_url, status, created_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO UPDATE
          SET chat_id=EXCLUDED.chat_id, name=EXCLUDED.name, phone=EXCLUDED.phone,
              budget_rub=EXCLUDED.budget_rub, listing_url=EXCLUDED.listing_url,
              status=EXCLUDED.status, completed_at=EXCLUDED.completed_at`
	_, err := r.db.Pool.Exec(ctx, up,
		lead.ID, lead.ChatID, lead.Name, lead.Phone, lead.BudgetRub,
		lead.ListingURL, string(lead.Status), lead.CreatedAt, lead.CompletedAt)
	return err
}

func (r *LeadRepo) ListPending(ctx context.Context) ([]domain.LeadDraft, error) {
	const q = `
        SELECT id, chat_id, name, phone, budget_rub, listing_url, status, created_at, completed_at
        FROM leads WHERE status=$1 ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q, string(domain.LeadStatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LeadDraft
	for rows.Next() {
		var l domain.LeadDraft
		var status string
		if err := rows.Scan(&l.ID, &l.ChatID, &l.Name, &l.Phone, &l.BudgetRub,
			&l.ListingURL, &status, &l.CreatedAt, &l.CompletedAt); err != nil {
			return nil, err
		}
		l.Status = domain.LeadStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LeadRepo) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE leads SET status=$2, completed_at=$3 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, string(domain.LeadStatusCompleted), at)
	return err
}
