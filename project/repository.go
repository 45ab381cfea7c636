package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/remip/giftmanager/reconcile"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p Project) error {
	query := `INSERT INTO projects (code, name, created_by, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, p.Code, p.Name, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// GetByCode loads a full project: members, expenses in insertion order,
// sub-events with their items. Returns nil when the code is unknown.
func (r *repository) GetByCode(ctx context.Context, code string) (*Project, error) {
	query := `SELECT code, name, created_by, created_at FROM projects WHERE code = $1`

	var p Project
	err := r.db.QueryRowContext(ctx, query, code).Scan(&p.Code, &p.Name, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying project: %w", err)
	}

	if p.Members, err = r.members(ctx, code); err != nil {
		return nil, err
	}
	if p.Expenses, err = r.expenses(ctx, code); err != nil {
		return nil, err
	}
	if p.SubEvents, err = r.subEvents(ctx, code); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) members(ctx context.Context, code string) ([]reconcile.Member, error) {
	query := `SELECT name, linked_user_id FROM project_members WHERE project_code = $1 ORDER BY joined_at, name`

	rows, err := r.db.QueryContext(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []reconcile.Member
	for rows.Next() {
		var m reconcile.Member
		var linked uuid.NullUUID
		if err := rows.Scan(&m.Name, &linked); err != nil {
			return nil, err
		}
		if linked.Valid {
			m.LinkedUserID = &linked.UUID
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *repository) expenses(ctx context.Context, code string) ([]reconcile.Flow, error) {
	query := `SELECT id, type, title, amount, payer, COALESCE(receiver, ''), COALESCE(beneficiary, ''), involved, shares, is_bought, created_at
              FROM expenses
              WHERE project_code = $1
              ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	var flows []reconcile.Flow
	for rows.Next() {
		var flow reconcile.Flow
		var involved pq.StringArray
		var shares []byte
		err := rows.Scan(
			&flow.ID,
			&flow.Kind,
			&flow.Title,
			&flow.Amount,
			&flow.Payer,
			&flow.Receiver,
			&flow.Beneficiary,
			&involved,
			&shares,
			&flow.Bought,
			&flow.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		flow.Participants = involved
		if len(shares) > 0 {
			if err := json.Unmarshal(shares, &flow.Weights); err != nil {
				return nil, fmt.Errorf("decoding shares for expense %s: %w", flow.ID, err)
			}
		}
		flows = append(flows, flow)
	}
	return flows, rows.Err()
}

func (r *repository) subEvents(ctx context.Context, code string) ([]reconcile.SubEvent, error) {
	query := `SELECT id, title, beneficiary, buyer, pledges FROM sub_events WHERE project_code = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("querying sub-events: %w", err)
	}
	defer rows.Close()

	var subEvents []reconcile.SubEvent
	for rows.Next() {
		var se reconcile.SubEvent
		var pledges []byte
		if err := rows.Scan(&se.ID, &se.Title, &se.Beneficiary, &se.Buyer, &pledges); err != nil {
			return nil, err
		}
		if len(pledges) > 0 {
			if err := json.Unmarshal(pledges, &se.Pledges); err != nil {
				return nil, fmt.Errorf("decoding pledges for sub-event %s: %w", se.ID, err)
			}
		}
		subEvents = append(subEvents, se)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range subEvents {
		items, err := r.subEventItems(ctx, subEvents[i].ID)
		if err != nil {
			return nil, err
		}
		subEvents[i].Items = items
	}
	return subEvents, nil
}

func (r *repository) subEventItems(ctx context.Context, subEventID string) ([]reconcile.SubEventItem, error) {
	query := `SELECT id, title, amount, is_bought FROM sub_event_items WHERE sub_event_id = $1 ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, subEventID)
	if err != nil {
		return nil, fmt.Errorf("querying sub-event items: %w", err)
	}
	defer rows.Close()

	var items []reconcile.SubEventItem
	for rows.Next() {
		var item reconcile.SubEventItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Amount, &item.Bought); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) Delete(ctx context.Context, code string) error {
	query := `DELETE FROM projects WHERE code = $1`
	_, err := r.db.ExecContext(ctx, query, code)
	return err
}

func (r *repository) AddMember(ctx context.Context, code string, m reconcile.Member) error {
	query := `INSERT INTO project_members (project_code, name, linked_user_id) VALUES ($1, $2, $3)
              ON CONFLICT (project_code, lower(name)) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, code, m.Name, m.LinkedUserID)
	if err != nil {
		return fmt.Errorf("inserting member: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMemberExists
	}
	return nil
}

// LinkMember attaches a user account to a member name, creating the member
// when it does not exist yet.
func (r *repository) LinkMember(ctx context.Context, code, name string, userID uuid.UUID) error {
	query := `INSERT INTO project_members (project_code, name, linked_user_id) VALUES ($1, $2, $3)
              ON CONFLICT (project_code, lower(name)) DO UPDATE SET linked_user_id = EXCLUDED.linked_user_id`
	_, err := r.db.ExecContext(ctx, query, code, name, userID)
	if err != nil {
		return fmt.Errorf("linking member: %w", err)
	}
	return nil
}

func (r *repository) ListCodesByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `SELECT project_code FROM project_members WHERE linked_user_id = $1 ORDER BY joined_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user projects: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// SaveExpense upserts by id, so editing a gift keeps its place in the flow
// order (created_at is only set on insert).
func (r *repository) SaveExpense(ctx context.Context, code string, flow reconcile.Flow) error {
	shares, err := json.Marshal(flow.Weights)
	if err != nil {
		return fmt.Errorf("encoding shares: %w", err)
	}

	query := `INSERT INTO expenses (id, project_code, type, title, amount, payer, receiver, beneficiary, involved, shares, is_bought, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12)
              ON CONFLICT (id) DO UPDATE SET
                  title = EXCLUDED.title,
                  amount = EXCLUDED.amount,
                  payer = EXCLUDED.payer,
                  receiver = EXCLUDED.receiver,
                  beneficiary = EXCLUDED.beneficiary,
                  involved = EXCLUDED.involved,
                  shares = EXCLUDED.shares,
                  is_bought = EXCLUDED.is_bought`
	_, err = r.db.ExecContext(ctx, query,
		flow.ID,
		code,
		flow.Kind,
		flow.Title,
		flow.Amount,
		flow.Payer,
		flow.Receiver,
		flow.Beneficiary,
		pq.Array(flow.Participants),
		shares,
		flow.Bought,
		flow.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving expense: %w", err)
	}
	return nil
}

func (r *repository) DeleteExpense(ctx context.Context, code, id string) error {
	query := `DELETE FROM expenses WHERE project_code = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, query, code, id)
	return err
}

func (r *repository) SaveSubEvent(ctx context.Context, code string, se reconcile.SubEvent) error {
	pledges, err := json.Marshal(se.Pledges)
	if err != nil {
		return fmt.Errorf("encoding pledges: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO sub_events (id, project_code, title, beneficiary, buyer, pledges, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, now())
              ON CONFLICT (id) DO UPDATE SET
                  title = EXCLUDED.title,
                  beneficiary = EXCLUDED.beneficiary,
                  buyer = EXCLUDED.buyer,
                  pledges = EXCLUDED.pledges`
	if _, err := tx.ExecContext(ctx, query, se.ID, code, se.Title, se.Beneficiary, se.Buyer, pledges); err != nil {
		return fmt.Errorf("saving sub-event: %w", err)
	}

	// Items are replaced wholesale; their stored position preserves the
	// purchase list order.
	if _, err := tx.ExecContext(ctx, `DELETE FROM sub_event_items WHERE sub_event_id = $1`, se.ID); err != nil {
		return fmt.Errorf("clearing sub-event items: %w", err)
	}
	for i, item := range se.Items {
		query = `INSERT INTO sub_event_items (id, sub_event_id, title, amount, is_bought, position) VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, query, item.ID, se.ID, item.Title, item.Amount, item.Bought, i); err != nil {
			return fmt.Errorf("saving sub-event item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *repository) DeleteSubEvent(ctx context.Context, code, id string) error {
	query := `DELETE FROM sub_events WHERE project_code = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, query, code, id)
	return err
}

type ProjectStats struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	MemberCount  int     `json:"member_count"`
	ExpenseCount int     `json:"expense_count"`
	TotalSpent   float64 `json:"total_spent"`
}

// AdminStats aggregates per-project counts and spend across all projects.
// Totals are summed with decimals so the reported figure is exact cents.
func (r *repository) AdminStats(ctx context.Context) ([]ProjectStats, error) {
	query := `SELECT p.code, p.name,
                     (SELECT count(*) FROM project_members m WHERE m.project_code = p.code),
                     (SELECT count(*) FROM expenses e WHERE e.project_code = p.code)
              FROM projects p
              ORDER BY p.created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying project stats: %w", err)
	}
	defer rows.Close()

	var stats []ProjectStats
	for rows.Next() {
		var s ProjectStats
		if err := rows.Scan(&s.Code, &s.Name, &s.MemberCount, &s.ExpenseCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range stats {
		total, err := r.totalSpent(ctx, stats[i].Code)
		if err != nil {
			return nil, err
		}
		stats[i].TotalSpent = total
	}
	return stats, nil
}

func (r *repository) totalSpent(ctx context.Context, code string) (float64, error) {
	query := `SELECT amount FROM expenses WHERE project_code = $1 AND type = 'expense'`

	rows, err := r.db.QueryContext(ctx, query, code)
	if err != nil {
		return 0, fmt.Errorf("querying amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount float64
		if err := rows.Scan(&amount); err != nil {
			return 0, err
		}
		total = total.Add(decimal.NewFromFloat(amount))
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	f, _ := total.Round(2).Float64()
	return f, nil
}
