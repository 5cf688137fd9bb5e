// Package journal persists an audit trail of every request that crossed
// the trust boundary: validated messages as they are enqueued, and faults
// as the runtime's fault path records them.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a journal entry.
type Outcome string

const (
	// OutcomeEnqueued records a validated message handed to a service.
	OutcomeEnqueued Outcome = "enqueued"
	// OutcomeBusy records a request bounced by resource exhaustion.
	OutcomeBusy Outcome = "busy"
	// OutcomeFault records a terminated caller context.
	OutcomeFault Outcome = "fault"
)

// Entry is one journaled boundary crossing.
type Entry struct {
	ID        string
	MsgID     string
	SID       uint32
	Handle    int32
	Kind      string
	Trust     string
	Outcome   Outcome
	Detail    string
	CreatedAt time.Time
}

// Journal writes and reads the request log.
type Journal struct {
	db *sql.DB
}

// New wraps an opened journal database.
func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Record appends one entry. The entry ID and timestamp are assigned here.
func (j *Journal) Record(ctx context.Context, e Entry) (string, error) {
	if e.Outcome == "" {
		return "", fmt.Errorf("outcome is empty")
	}
	if e.Kind == "" {
		return "", fmt.Errorf("kind is empty")
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var msgID any
	if e.MsgID != "" {
		msgID = e.MsgID
	}
	var detail any
	if e.Detail != "" {
		detail = e.Detail
	}

	_, err := j.db.ExecContext(ctx, `
INSERT INTO request_log(id, msg_id, sid, handle, kind, trust, outcome, detail, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);
`, id, msgID, e.SID, e.Handle, e.Kind, e.Trust, e.Outcome, detail, now)
	if err != nil {
		return "", fmt.Errorf("record request: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT id, msg_id, sid, handle, kind, trust, outcome, detail, created_at
FROM request_log
ORDER BY created_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query request log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			msgID      sql.NullString
			detail     sql.NullString
			createdAtS string
		)
		if err := rows.Scan(&e.ID, &msgID, &e.SID, &e.Handle, &e.Kind, &e.Trust, &e.Outcome, &detail, &createdAtS); err != nil {
			return nil, fmt.Errorf("scan request log: %w", err)
		}
		if msgID.Valid {
			e.MsgID = msgID.String
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAtS); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByOutcome reports how many entries carry each outcome.
func (j *Journal) CountByOutcome(ctx context.Context) (map[Outcome]int, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT outcome, COUNT(*) FROM request_log GROUP BY outcome;
`)
	if err != nil {
		return nil, fmt.Errorf("count request log: %w", err)
	}
	defer rows.Close()

	out := make(map[Outcome]int)
	for rows.Next() {
		var (
			o Outcome
			n int
		)
		if err := rows.Scan(&o, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[o] = n
	}
	return out, rows.Err()
}

// Prune deletes entries older than the retention window.
func (j *Journal) Prune(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	if _, err := j.db.ExecContext(ctx, `DELETE FROM request_log WHERE created_at < ?;`, cutoff); err != nil {
		return fmt.Errorf("prune request log: %w", err)
	}
	return nil
}
