// Package inbox records consumed event ids so redelivered messages are applied once.
package inbox

import (
	"context"

	"github.com/md-rashed-zaman/salonbook/libs/db"
)

type Repository struct {
	conn db.Conn
}

func NewRepository(conn db.Conn) *Repository {
	return &Repository{conn: conn}
}

// Record reports false when the event was already seen.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	if db.HasCode(err, db.CodeUniqueViolation) {
		return false, nil
	}
	return false, err
}

// Release forgets an event so a redelivery is applied again. Used when the handler fails.
func (r *Repository) Release(ctx context.Context, eventID string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM inbox_events WHERE event_id = $1`, eventID)
	return err
}
