package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type sqlEventLogger struct {
	db *sql.DB
}

func NewSqlEventLogger(db *sql.DB) *sqlEventLogger {
	return &sqlEventLogger{db: db}
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}

	statement := `INSERT INTO events (id, event_type, project_code, actor, event_data, created_at)
                  VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)`
	_, err = el.db.ExecContext(ctx, statement, e.ID, e.Type, e.ProjectCode, e.Actor, data, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (el *sqlEventLogger) ListByProject(ctx context.Context, code string) ([]Event, error) {
	query := `SELECT id, event_type, COALESCE(project_code, ''), COALESCE(actor, ''), event_data, created_at
              FROM events WHERE project_code = $1 ORDER BY created_at`
	rows, err := el.db.QueryContext(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var event Event
		var data []byte
		if err := rows.Scan(&event.ID, &event.Type, &event.ProjectCode, &event.Actor, &data, &event.CreatedAt); err != nil {
			return events, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &event.Data); err != nil {
				return events, fmt.Errorf("decoding event data: %w", err)
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
